package systems

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/entity"
	"github.com/pthm-cable/legion/events"
)

type pathRequest struct {
	unit        components.Handle
	destination r3.Vec
	token       uuid.UUID
}

type pathCompletion struct {
	token uuid.UUID
	code  PathResult
	path  []r3.Vec
}

// NavigationSystem batches path requests to a PathOracle and writes completed
// paths back into Navigation components.
//
// Oracle callbacks only record completions under mu. Every component write
// happens in ApplyResults on the tick goroutine, after the owning handle has been
// re-validated, so results for destroyed or re-requested units are discarded.
type NavigationSystem struct {
	store  *entity.Store
	oracle PathOracle
	events events.Dispatcher
	filter *ecs.Filter5[
		components.Transform,
		components.Navigation,
		components.Target,
		components.Formation,
		components.UnitState,
	]

	maxPerFrame int
	batchSize   int
	arrivalSq   float64

	queue    []pathRequest
	inFlight map[uuid.UUID]components.Handle
	batch    []PathQuery

	mu          sync.Mutex
	completions []pathCompletion
}

// NewNavigationSystem creates the navigation queue. bus may be nil.
func NewNavigationSystem(store *entity.Store, oracle PathOracle, cfg *config.Config, bus events.Dispatcher) *NavigationSystem {
	return &NavigationSystem{
		store:  store,
		oracle: oracle,
		events: bus,
		filter: ecs.NewFilter5[
			components.Transform,
			components.Navigation,
			components.Target,
			components.Formation,
			components.UnitState,
		](store.World()),
		maxPerFrame: cfg.Navigation.MaxPathRequestsPerFrame,
		batchSize:   cfg.Navigation.PathRequestBatchSize,
		arrivalSq:   cfg.Derived.WaypointArrivalSq,
		inFlight:    make(map[uuid.UUID]components.Handle),
	}
}

// RequestPath queues a path request for unit. A newer request supersedes any
// earlier one still queued or in flight.
func (s *NavigationSystem) RequestPath(unit components.Handle, destination r3.Vec) bool {
	nav := s.store.Navigation(unit)
	if nav == nil || s.store.Transform(unit) == nil {
		slog.Warn("stale_handle", "op", "request_path", "unit", unit.String())
		return false
	}

	token := uuid.New()
	nav.Destination = destination
	nav.PathRequested = true
	nav.PathValid = false
	nav.RequestID = token

	s.queue = append(s.queue, pathRequest{unit: unit, destination: destination, token: token})
	return true
}

// Pending returns the number of queued requests.
func (s *NavigationSystem) Pending() int { return len(s.queue) }

// InFlight returns the number of requests issued to the oracle without a result applied.
func (s *NavigationSystem) InFlight() int { return len(s.inFlight) }

// ProcessPathRequests issues up to MaxPathRequestsPerFrame queued requests to the
// oracle in sub-batches of PathRequestBatchSize and returns how many it issued.
// Requests whose unit is gone or was re-requested are dropped without counting.
func (s *NavigationSystem) ProcessPathRequests() int {
	issued := 0
	consumed := 0
	s.batch = s.batch[:0]

	for consumed < len(s.queue) && issued < s.maxPerFrame {
		req := s.queue[consumed]
		consumed++

		tf := s.store.Transform(req.unit)
		nav := s.store.Navigation(req.unit)
		if tf == nil || nav == nil || nav.RequestID != req.token {
			slog.Debug("path_request_dropped", "unit", req.unit.String())
			continue
		}

		s.inFlight[req.token] = req.unit
		s.batch = append(s.batch, PathQuery{Token: req.token, Origin: tf.Position, Destination: req.destination})
		issued++

		if len(s.batch) == s.batchSize {
			s.flush()
		}
	}
	s.flush()

	s.queue = append(s.queue[:0], s.queue[consumed:]...)
	return issued
}

func (s *NavigationSystem) flush() {
	if len(s.batch) == 0 {
		return
	}
	queries := make([]PathQuery, len(s.batch))
	copy(queries, s.batch)
	s.batch = s.batch[:0]
	s.oracle.FindPaths(queries, s.onPathResult)
}

// onPathResult may run on an oracle goroutine.
func (s *NavigationSystem) onPathResult(token uuid.UUID, code PathResult, path []r3.Vec) {
	s.mu.Lock()
	s.completions = append(s.completions, pathCompletion{token: token, code: code, path: path})
	s.mu.Unlock()
}

// ApplyResults writes completed paths into their units' Navigation components
// and returns the number applied.
func (s *NavigationSystem) ApplyResults() int {
	s.mu.Lock()
	done := s.completions
	s.completions = nil
	s.mu.Unlock()

	applied := 0
	for _, c := range done {
		unit, ok := s.inFlight[c.token]
		if !ok {
			continue
		}
		delete(s.inFlight, c.token)

		nav := s.store.Navigation(unit)
		if nav == nil {
			slog.Debug("path_result_discarded", "unit", unit.String(), "reason", "stale_handle")
			continue
		}
		if nav.RequestID != c.token {
			slog.Debug("path_result_discarded", "unit", unit.String(), "reason", "superseded")
			continue
		}

		nav.PathRequested = false
		if c.code != PathSuccess || len(c.path) == 0 {
			nav.PathValid = false
			slog.Info("path_failed", "unit", unit.String(), "code", c.code.String(), "err", pathError(c.code))
			s.dispatch(events.PathFailed, unit, 0)
			continue
		}

		nav.Path = c.path
		nav.PathIndex = 0
		nav.PathValid = true
		applied++
		s.dispatch(events.PathReady, unit, float64(len(c.path)))
	}
	return applied
}

// FollowPaths steers units with a valid path along it by moving their target
// location to the current waypoint. Units in a formation or chasing a target
// entity are left alone.
func (s *NavigationSystem) FollowPaths() {
	query := s.filter.Query()
	for query.Next() {
		tf, nav, tgt, form, st := query.Get()
		if !nav.PathValid || form.InFormation() || !tgt.Entity.IsNil() || st.IsDisabled() {
			continue
		}
		if wp, ok := NextWaypoint(nav.Path, &nav.PathIndex, tf.Position, s.arrivalSq); ok {
			tgt.Location = wp
			continue
		}
		nav.PathValid = false
		tgt.Location = nav.Destination
	}
}

// Update runs one frame: issue requests, apply results, follow paths.
func (s *NavigationSystem) Update() {
	s.ProcessPathRequests()
	s.ApplyResults()
	s.FollowPaths()
}

func (s *NavigationSystem) dispatch(tag components.Tag, unit components.Handle, magnitude float64) {
	if s.events != nil {
		s.events.Dispatch(tag, unit, events.Payload{Magnitude: magnitude})
	}
}

func pathError(code PathResult) error {
	if code == PathSuccess {
		return nil
	}
	return fmt.Errorf("%s: %w", code, ErrNoPath)
}
