package events

import (
	"fmt"
	"log/slog"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/pthm-cable/legion/components"
)

// AttributeBridge reads and writes named unit attributes.
type AttributeBridge interface {
	Attribute(unit components.Handle, name string) (float64, bool)
	SetAttribute(unit components.Handle, name string, value float64) bool
}

// LuaListener forwards events to a script's on_event(tag, unit, payload) function.
// Scripts see get_attribute(unit, name) and set_attribute(unit, name, value).
// The VM is not goroutine-safe, so calls are serialized.
type LuaListener struct {
	mu     sync.Mutex
	vm     *lua.LState
	bridge AttributeBridge
	name   string
	subs   map[components.Tag]ListenerID
}

// NewLuaListener loads a script file.
func NewLuaListener(path string, bridge AttributeBridge) (*LuaListener, error) {
	l := newLuaListener(path, bridge)
	if err := l.vm.DoFile(path); err != nil {
		l.vm.Close()
		return nil, fmt.Errorf("load lua script %s: %w", path, err)
	}
	return l, nil
}

// NewLuaListenerString loads a script from source.
func NewLuaListenerString(name, src string, bridge AttributeBridge) (*LuaListener, error) {
	l := newLuaListener(name, bridge)
	if err := l.vm.DoString(src); err != nil {
		l.vm.Close()
		return nil, fmt.Errorf("load lua script %s: %w", name, err)
	}
	return l, nil
}

func newLuaListener(name string, bridge AttributeBridge) *LuaListener {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	l := &LuaListener{vm: vm, bridge: bridge, name: name, subs: make(map[components.Tag]ListenerID)}

	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("get_attribute", vm.NewFunction(l.luaGetAttribute))
	vm.SetGlobal("set_attribute", vm.NewFunction(l.luaSetAttribute))
	return l
}

// Attach subscribes the script to each tag on bus.
func (l *LuaListener) Attach(bus *Bus, tags ...components.Tag) {
	for _, tag := range tags {
		l.subs[tag] = bus.Subscribe(tag, l.Handle)
	}
}

// Detach removes every subscription made by Attach.
func (l *LuaListener) Detach(bus *Bus) {
	for tag, id := range l.subs {
		bus.Unsubscribe(tag, id)
	}
	clear(l.subs)
}

// Handle is a Listener that calls on_event. Script errors are logged and dropped.
func (l *LuaListener) Handle(tag components.Tag, unit components.Handle, p Payload) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn := l.vm.GetGlobal("on_event")
	if fn == lua.LNil {
		return
	}

	pt := l.vm.NewTable()
	pt.RawSetString("instigator", l.handleTable(p.Instigator))
	pt.RawSetString("target", l.handleTable(p.Target))
	pt.RawSetString("magnitude", lua.LNumber(p.Magnitude))
	values := l.vm.NewTable()
	for k, v := range p.Values {
		values.RawSetString(k, lua.LNumber(v))
	}
	pt.RawSetString("values", values)

	if err := l.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LString(tag), l.handleTable(unit), pt); err != nil {
		slog.Warn("lua_event_error", "script", l.name, "tag", tag, "error", err)
	}
}

// Close releases the VM.
func (l *LuaListener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.vm.Close()
}

func (l *LuaListener) handleTable(h components.Handle) *lua.LTable {
	t := l.vm.NewTable()
	t.RawSetString("index", lua.LNumber(h.Index))
	t.RawSetString("generation", lua.LNumber(h.Generation))
	return t
}

func tableHandle(t *lua.LTable) components.Handle {
	return components.Handle{
		Index:      uint32(lua.LVAsNumber(t.RawGetString("index"))),
		Generation: uint32(lua.LVAsNumber(t.RawGetString("generation"))),
	}
}

// get_attribute(unit, name) -> number or nil
func (l *LuaListener) luaGetAttribute(L *lua.LState) int {
	h := tableHandle(L.CheckTable(1))
	name := L.CheckString(2)
	if l.bridge == nil {
		L.Push(lua.LNil)
		return 1
	}
	v, ok := l.bridge.Attribute(h, name)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(v))
	return 1
}

// set_attribute(unit, name, value) -> bool
func (l *LuaListener) luaSetAttribute(L *lua.LState) int {
	h := tableHandle(L.CheckTable(1))
	name := L.CheckString(2)
	value := float64(L.CheckNumber(3))
	ok := l.bridge != nil && l.bridge.SetAttribute(h, name, value)
	L.Push(lua.LBool(ok))
	return 1
}
