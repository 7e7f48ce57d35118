// Package group implements ParallelGroup (§4.12): an in-process pool of
// PnsSolver workers — each a DFPN, PDFPN, or BasicPNS instance, chosen
// by configuration — sharing a single NimberDatabase and fed a stream
// of (couple, iteration-budget) jobs.
package group

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/nimberdb"
	"github.com/cizektom/spots/pns"
	"github.com/cizektom/spots/ttable"
)

// StateLevel governs what a worker drops when it is handed a job whose
// root couple differs from the last one it worked on.
type StateLevel int

const (
	// KeepBoth keeps the worker's transposition table and the shared
	// nimber database untouched across a root change.
	KeepBoth StateLevel = 0
	// DropTree clears only the worker's local transposition table.
	DropTree StateLevel = 1
	// DropTreeAndNimbers clears the worker's transposition table and the
	// shared nimber database. Coarse by construction: with groupSize>1
	// this affects every worker's shared knowledge, not just the one
	// that changed root.
	DropTreeAndNimbers StateLevel = 2
)

// Job is one unit of work: solve couple within a bounded number of
// search iterations.
type Job struct {
	Couple        nimber.Couple
	MaxIterations uint64
}

// SolverFactory builds one worker's InnerExpander, given the group's
// shared nimber database and a fresh per-worker transposition table.
type SolverFactory func(db *nimberdb.Database, stored *ttable.PnsDatabase) pns.InnerExpander

// queuedJob pairs a Job with its index into the slice passed to the
// current Expand call, so a completion can be written back to the
// right output slot regardless of which worker (or how many of a
// worker's jobs) finishes it.
type queuedJob struct {
	jobIdx int
	job    Job
}

type completion struct {
	jobIdx   int
	workerID int
	info     pns.ExpansionInfo
	duration time.Duration
}

type workerState struct {
	solver     pns.InnerExpander
	stored     *ttable.PnsDatabase
	lastCouple string
	jobsDone   uint64
	busyTime   time.Duration
}

// ParallelGroup owns a single shared NimberDatabase and groupSize
// worker solvers, and exposes Expand(jobs) as the only entry point a
// caller (a PnsTreeManager or a CLI harness) needs.
type ParallelGroup struct {
	DB         *nimberdb.Database
	StateLevel StateLevel
	NoSharing  bool

	size    int
	factory SolverFactory
	tableCapacity uint64

	mu         sync.Mutex
	cond       *sync.Cond
	workers    []*workerState
	pool       []queuedJob
	unassigned *workDeque
	assigned   map[int]queuedJob
	completed  []completion
	terminate  bool
	started    bool
	wg         sync.WaitGroup
}

// New builds a group of groupSize workers, each constructed by factory,
// sharing db. tableCapacity sizes each worker's own transposition table.
func New(db *nimberdb.Database, groupSize int, tableCapacity uint64, factory SolverFactory) *ParallelGroup {
	g := &ParallelGroup{
		DB:            db,
		size:          groupSize,
		factory:       factory,
		tableCapacity: tableCapacity,
		assigned:      make(map[int]queuedJob),
		unassigned:    newWorkDeque(),
	}
	g.cond = sync.NewCond(&g.mu)
	for i := 0; i < groupSize; i++ {
		stored := ttable.NewPnsDatabase(tableCapacity, groupSize > 1)
		g.workers = append(g.workers, &workerState{solver: factory(db, stored), stored: stored})
	}
	return g
}

// Expand runs every job in jobs to completion and returns their
// ExpansionInfo results in the same order. With groupSize==1 this runs
// sequentially on the caller's goroutine; otherwise jobs are dispatched
// to the worker pool, preferring affinity (reusing the worker that last
// handled the same root couple, if it has no job waiting already) and
// otherwise pushing onto a shared unassigned queue that idle workers
// pop from, newest job first.
func (g *ParallelGroup) Expand(jobs []Job) []pns.ExpansionInfo {
	if g.size == 1 {
		out := make([]pns.ExpansionInfo, len(jobs))
		w := g.workers[0]
		for i, j := range jobs {
			g.applyStateLevel(w, j.Couple)
			start := time.Now()
			out[i] = w.solver.ExpandCouple(j.Couple, j.MaxIterations)
			w.busyTime += time.Since(start)
			w.jobsDone++
			w.lastCouple = j.Couple.Compact()
		}
		return out
	}

	g.ensureStarted()

	out := make([]pns.ExpansionInfo, len(jobs))
	g.mu.Lock()
	for i, j := range jobs {
		g.dispatchLocked(i, j)
	}
	pending := len(jobs)
	for pending > 0 {
		for len(g.completed) == 0 {
			g.cond.Wait()
		}
		for _, c := range g.completed {
			out[c.jobIdx] = c.info
			pending--
		}
		g.completed = g.completed[:0]
	}
	g.mu.Unlock()

	return out
}

// dispatchLocked assigns job j (the jobIdx'th job of the current Expand
// call) to the worker that last handled the same root couple if one
// exists (affinity routing keeps that worker's transposition table
// warm), otherwise onto the work-stealing unassigned deque for
// whichever worker wakes up first. jobIdx is carried through to the
// eventual completion so Expand can write the result back to the
// right slot even when a worker completes several jobs, or jobs are
// stolen out of submission order.
func (g *ParallelGroup) dispatchLocked(jobIdx int, j Job) {
	qj := queuedJob{jobIdx: jobIdx, job: j}
	key := j.Couple.Compact()
	for id, w := range g.workers {
		if _, busy := g.assigned[id]; !busy && w.lastCouple == key {
			g.assigned[id] = qj
			g.cond.Broadcast()
			return
		}
	}
	g.pool = append(g.pool, qj)
	g.unassigned.push(len(g.pool) - 1)
	g.cond.Broadcast()
}

func (g *ParallelGroup) ensureStarted() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return
	}
	g.started = true
	for id := range g.workers {
		g.wg.Add(1)
		go g.workerLoop(id)
	}
}

func (g *ParallelGroup) workerLoop(id int) {
	defer g.wg.Done()
	w := g.workers[id]
	for {
		g.mu.Lock()
		for {
			if g.terminate {
				g.mu.Unlock()
				return
			}
			if qj, ok := g.assigned[id]; ok {
				delete(g.assigned, id)
				g.mu.Unlock()
				g.runJob(id, w, qj)
				break
			}
			if idx, ok := g.unassigned.pop(); ok {
				qj := g.pool[idx]
				g.mu.Unlock()
				g.runJob(id, w, qj)
				break
			}
			g.cond.Wait()
		}
	}
}

func (g *ParallelGroup) runJob(id int, w *workerState, qj queuedJob) {
	job := qj.job
	g.applyStateLevel(w, job.Couple)
	start := time.Now()
	info := w.solver.ExpandCouple(job.Couple, job.MaxIterations)
	elapsed := time.Since(start)

	g.mu.Lock()
	w.busyTime += elapsed
	w.jobsDone++
	w.lastCouple = job.Couple.Compact()
	g.completed = append(g.completed, completion{jobIdx: qj.jobIdx, workerID: id, info: info, duration: elapsed})
	g.cond.Broadcast()
	g.mu.Unlock()
}

// applyStateLevel clears a worker's local state per g.StateLevel when
// job's root couple differs from the worker's last one.
func (g *ParallelGroup) applyStateLevel(w *workerState, root nimber.Couple) {
	key := root.Compact()
	if w.lastCouple == "" || w.lastCouple == key {
		return
	}
	switch g.StateLevel {
	case DropTree:
		w.stored = ttable.NewPnsDatabase(g.tableCapacity, g.size > 1)
		w.solver = g.factory(g.DB, w.stored)
	case DropTreeAndNimbers:
		w.stored = ttable.NewPnsDatabase(g.tableCapacity, g.size > 1)
		g.DB.Clear()
		w.solver = g.factory(g.DB, w.stored)
	}
}

// GetTrackedNimbers drains (or snapshots) the shared nimber database's
// overlay of positions inserted since the last drain — consumed by the
// caller (typically a manager.PnsTreeManager) after every completed job
// batch so discoveries reach proof propagation. When NoSharing is set,
// it always returns nil, modeling the --no-sharing CLI flag.
func (g *ParallelGroup) GetTrackedNimbers(clear bool) map[string]nimber.Nimber {
	if g.NoSharing {
		return nil
	}
	return g.DB.GetTrackedNimbers(clear)
}

// Stats reports per-worker job counts and busy time for the statistics
// layer.
type WorkerStats struct {
	JobsDone uint64
	BusyTime time.Duration
}

func (g *ParallelGroup) Stats() []WorkerStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo.Map(g.workers, func(w *workerState, _ int) WorkerStats {
		return WorkerStats{JobsDone: w.jobsDone, BusyTime: w.busyTime}
	})
}

// Close stops every worker goroutine and waits for them to exit.
func (g *ParallelGroup) Close() {
	g.mu.Lock()
	g.terminate = true
	g.cond.Broadcast()
	g.mu.Unlock()
	g.wg.Wait()
	log.Info().Int("group-size", g.size).Msg("parallel group closed")
}
