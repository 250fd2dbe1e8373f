package systems

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/entity"
)

const testDT = 1.0 / 60.0

func newTestWorld(t *testing.T) (*config.Config, *entity.Manager) {
	t.Helper()
	cfg := config.Default()
	cfg.Combat.StunChance = 0
	m := entity.NewManager(entity.NewStore(64), 0, nil)
	m.LoadTemplates(cfg)
	return cfg, m
}

func spawnAt(t *testing.T, m *entity.Manager, template string, pos r3.Vec) components.Handle {
	t.Helper()
	h, err := m.SpawnByName(template, components.Transform{Position: pos})
	if err != nil {
		t.Fatalf("spawn %s: %v", template, err)
	}
	return h
}

func near(a, b r3.Vec, tol float64) bool {
	return r3.Norm(r3.Sub(a, b)) <= tol
}
