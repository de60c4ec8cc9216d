// Package reactor implements the level-stratified, multi-worker GEDF-NP
// (Global Earliest Deadline First, Non-Preemptive) scheduler at the core
// of the reactor runtime: it partitions the ready set of reactions by
// precedence level, drains each level in increasing order across a fixed
// pool of worker goroutines, and hands tag advancement off to whichever
// worker happens to be the last to go idle.
//
// The scheduler never decides *when* a tag advances on its own: that is
// delegated to a TagAdvancer (the "event horizon" external collaborator),
// kept out of this package exactly as spec.md demands.
package reactor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// TagAdvancer is the external collaborator the scheduler calls into once
// a tag's reaction queues are fully drained. Implementations correspond
// to _lf_next_locked and logical_tag_complete in the original C scheduler.
type TagAdvancer interface {
	// NextLocked advances to the next tag and populates the scheduler's
	// reaction queues via TriggerReaction for every reaction that fires
	// at the new tag. It may block on wall-clock time or on an event
	// queue. Called with the scheduler's global mutex held, matching
	// "assumes the caller holds the mutex lock" in the original.
	NextLocked(ctx context.Context) (stop bool)

	// LogicalTagComplete is the federation hook (logical_tag_complete in
	// the original), called once per tag after every level has
	// executed. It owns current_tag/stop_tag and compare_tags
	// internally and reports whether the run should stop.
	LogicalTagComplete() (atStopTag bool)
}

// Config are the compile-time parameters of spec.md §6.
type Config struct {
	// NumberOfWorkers is NUMBER_OF_WORKERS; at least 1.
	NumberOfWorkers int
	// MaxLevel is MAX_REACTION_LEVEL; the RQA holds MaxLevel+1 slots.
	MaxLevel uint32
	// InitialQueueSize is INITIAL_REACT_QUEUE_SIZE, the starting
	// capacity of each per-level priority queue.
	InitialQueueSize int
}

// Scheduler is the process-wide scheduler state of spec.md §3's table,
// encapsulated per the design note in §9 ("A systems-language port
// should encapsulate [global state] in a single scheduler object").
type Scheduler struct {
	log *slog.Logger

	advancer TagAdvancer

	rqa      []*levelQueue // Reaction Queue Array, one slot per level
	maxLevel uint32

	// execQMutex guards pop_min on the currently executing level and
	// same-level inserts (EP's concurrency rule, §4.1).
	execQMutex sync.Mutex
	// execLevel is the level EQP currently names; New starts it at 0.
	execLevel int64

	// globalMutex serializes tag advancement; strictly acquired without
	// execQMutex held, per §5's deadlock argument (global ⊐ execQMutex).
	globalMutex sync.Mutex

	sem *semaphore.Weighted

	numWorkers int64
	idle       int64 // n_idle, atomic

	nextLevel    int64 // next_level, sole-owned by the elected advancer
	tagCompleted bool  // tag_completed, sole-owned by the elected advancer

	shouldStop atomic.Bool
}

// New initializes the scheduler (LC's lf_sched_init). advancer must be
// non-nil; it is the only way RQA ever gets populated beyond TriggerReaction
// calls from reaction bodies.
func New(cfg Config, advancer TagAdvancer, log *slog.Logger) *Scheduler {
	if cfg.NumberOfWorkers <= 0 {
		cfg.NumberOfWorkers = 1
	}
	if cfg.InitialQueueSize <= 0 {
		cfg.InitialQueueSize = 16
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Scheduler{
		log:        log,
		advancer:   advancer,
		maxLevel:   cfg.MaxLevel,
		numWorkers: int64(cfg.NumberOfWorkers),
		sem:        semaphore.NewWeighted(int64(cfg.NumberOfWorkers)),
		execLevel:  -1,
	}
	s.rqa = make([]*levelQueue, cfg.MaxLevel+1)
	for i := range s.rqa {
		s.rqa[i] = newLevelQueue(cfg.InitialQueueSize)
	}
	s.execLevel = 0

	// The semaphore starts with every permit immediately acquired so
	// that workers calling wait_for_work block on it exactly as the
	// original's count-0 counting semaphore does; notifyWorkers later
	// releases permits one at a time to wake parked workers.
	if err := s.sem.Acquire(context.Background(), int64(cfg.NumberOfWorkers)); err != nil {
		panic("reactor: failed to drain startup semaphore: " + err.Error())
	}

	return s
}

// Close tears down the scheduler (LC's lf_sched_free). Unlike the
// original, which left a "weird memory errors" comment and skipped
// freeing the per-level queues, Close here simply drops every reference;
// Go's GC reclaims the queues once no reaction holds a pointer into them,
// so there is nothing unsafe to free explicitly. Close must be called
// only after every worker has joined and no TriggerReaction call is still
// in flight.
func (s *Scheduler) Close() {
	for i := range s.rqa {
		s.rqa[i] = nil
	}
}

// TriggerReaction is the Enqueue Path (EP) operation: spec.md §4.1.
// workerID may be -1 for non-worker callers (e.g. the event horizon).
func (s *Scheduler) TriggerReaction(r *Reaction, workerID int) {
	if r == nil {
		return
	}
	if !r.compareAndSetStatus(StatusInactive, StatusQueued) {
		// Already queued for this tag: duplicate trigger, silently
		// absorbed per the dedup invariant.
		return
	}

	level := Level(r.Index)
	executing := atomic.LoadInt64(&s.execLevel)
	if int64(level) == executing {
		// Same-level insert during execution: must be serialized
		// against the workers' pop_min under execQMutex (§4.1
		// rationale: races with in-flight network-input-style
		// control reactions that re-trigger work at their own level).
		s.execQMutex.Lock()
		s.rqa[level].insert(r)
		s.execQMutex.Unlock()
	} else {
		// Quiescent slot: tag advancement only happens when every
		// worker is idle, so no worker can be draining this slot.
		s.rqa[level].insert(r)
	}
}

// GetReadyReaction is the Worker Loop Contract's fetch operation:
// spec.md §4.2. It blocks until a reaction is ready or the scheduler is
// stopping, in which case ok is false.
func (s *Scheduler) GetReadyReaction(workerID int) (*Reaction, bool) {
	for !s.shouldStop.Load() {
		s.execQMutex.Lock()
		level := atomic.LoadInt64(&s.execLevel)
		var r *Reaction
		if level >= 0 {
			r = s.rqa[level].popMin()
		}
		s.execQMutex.Unlock()

		if r != nil {
			return r, true
		}

		s.waitForWork(workerID)
	}
	return nil, false
}

// DoneWithReaction is the Worker Loop Contract's completion report:
// spec.md §4.2. Observing any status other than queued is a fatal
// invariant violation.
func (s *Scheduler) DoneWithReaction(workerID int, r *Reaction) {
	if !r.compareAndSetStatus(StatusQueued, StatusInactive) {
		s.log.Error("invariant violation: reaction not queued at completion",
			"worker_id", workerID, "reaction", r.Name, "status", r.loadStatus())
		panic("reactor: done_with_reaction observed status != queued")
	}
}

// waitForWork is WIT's wait_for_work, spec.md §4.3: election by last-idle
// arrival, the design's load-bearing trick.
func (s *Scheduler) waitForWork(workerID int) {
	prev := atomic.AddInt64(&s.idle, 1) - 1
	if prev == s.numWorkers-1 {
		s.log.Debug("worker elected advancer", "worker_id", workerID)
		s.tryAdvance(workerID)
		return
	}

	if err := s.sem.Acquire(context.Background(), 1); err != nil {
		// context.Background() never cancels; a non-nil error here
		// means the semaphore itself is broken.
		panic("reactor: semaphore acquire failed: " + err.Error())
	}
}
