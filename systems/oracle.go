package systems

import (
	"errors"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoPath is reported when the oracle could not connect origin and destination.
var ErrNoPath = errors.New("systems: no path")

// PathResult is the completion code of a path query.
type PathResult uint8

const (
	PathSuccess PathResult = iota
	PathFailure
	PathCancelled
)

func (r PathResult) String() string {
	switch r {
	case PathSuccess:
		return "success"
	case PathFailure:
		return "failure"
	case PathCancelled:
		return "cancelled"
	}
	return "unknown"
}

// PathQuery asks for a path between two points. Token correlates the result.
type PathQuery struct {
	Token       uuid.UUID
	Origin      r3.Vec
	Destination r3.Vec
}

// PathCallback receives one query's result. It may run on any goroutine.
type PathCallback func(token uuid.UUID, code PathResult, path []r3.Vec)

// PathOracle answers path queries asynchronously. FindPaths must not block on
// the search itself; done is invoked once per query.
type PathOracle interface {
	FindPaths(queries []PathQuery, done PathCallback)
}

type pathJob struct {
	query PathQuery
	done  PathCallback
}

// GridOracle is a PathOracle running A* on a NavGrid with a persistent worker pool.
type GridOracle struct {
	grid       *NavGrid
	numWorkers int

	mu       sync.Mutex
	closed   bool
	backlog  []pathJob      // overflow when workChan is full; drained by workers
	workChan chan pathJob   // sends work to workers
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
}

// NewGridOracle starts workers over grid. workers <= 0 uses GOMAXPROCS.
// queueSize bounds the number of queries waiting for a worker.
func NewGridOracle(grid *NavGrid, workers, queueSize int) *GridOracle {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueSize <= 0 {
		queueSize = workers * 16
	}
	o := &GridOracle{
		grid:       grid,
		numWorkers: workers,
		workChan:   make(chan pathJob, queueSize),
		stopChan:   make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	return o
}

// Grid returns the grid the oracle searches.
func (o *GridOracle) Grid() *NavGrid { return o.grid }

// FindPaths queues the queries and returns without waiting for a worker.
// Queries that do not fit the queue wait in a backlog. After Close every
// query is cancelled synchronously.
func (o *GridOracle) FindPaths(queries []PathQuery, done PathCallback) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		for _, q := range queries {
			done(q.Token, PathCancelled, nil)
		}
		return
	}
	for _, q := range queries {
		job := pathJob{query: q, done: done}
		if len(o.backlog) > 0 {
			o.backlog = append(o.backlog, job)
			continue
		}
		select {
		case o.workChan <- job:
		default:
			o.backlog = append(o.backlog, job)
		}
	}
	o.mu.Unlock()
}

// Backlog returns the number of queries waiting behind a full queue.
func (o *GridOracle) Backlog() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.backlog)
}

// nextBacklog pops the oldest overflow job.
func (o *GridOracle) nextBacklog() (pathJob, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || len(o.backlog) == 0 {
		return pathJob{}, false
	}
	job := o.backlog[0]
	o.backlog[0] = pathJob{}
	o.backlog = o.backlog[1:]
	return job, true
}

// Close stops the workers. Queries still queued are cancelled.
func (o *GridOracle) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.stopChan)
	backlog := o.backlog
	o.backlog = nil
	o.mu.Unlock()

	o.wg.Wait()
	defer func() {
		for _, job := range backlog {
			job.done(job.query.Token, PathCancelled, nil)
		}
	}()
	for {
		select {
		case job := <-o.workChan:
			job.done(job.query.Token, PathCancelled, nil)
		default:
			return
		}
	}
}

// worker runs in a goroutine, processing queries until stopped.
func (o *GridOracle) worker() {
	defer o.wg.Done()
	planner := NewAStarPlanner(o.grid)

	for {
		select {
		case <-o.stopChan:
			return
		case job := <-o.workChan:
			for ok := true; ok; job, ok = o.nextBacklog() {
				path := planner.FindPath(job.query.Origin, job.query.Destination)
				if path == nil {
					job.done(job.query.Token, PathFailure, nil)
					continue
				}
				job.done(job.query.Token, PathSuccess, path)
			}
		}
	}
}
