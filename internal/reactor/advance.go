package reactor

import (
	"context"
	"sync/atomic"
)

// tryAdvance is the Level Advancer, called by exactly one worker — the
// one elected by waitForWork — with no locks held. Spec.md §4.4.
func (s *Scheduler) tryAdvance(workerID int) {
	ctx := context.Background()
	for {
		if atomic.LoadInt64(&s.nextLevel) == int64(s.maxLevel)+1 {
			atomic.StoreInt64(&s.nextLevel, 0)

			s.globalMutex.Lock()
			stop := s.advanceTagLocked(ctx)
			s.globalMutex.Unlock()

			if stop {
				s.log.Debug("reached stop tag", "worker_id", workerID)
				s.signalStop()
				return
			}
		}

		if k := s.distributeReadyReactions(); k > 0 {
			s.notifyWorkers(k)
			return
		}
	}
}

// advanceTagLocked is the Tag-Advance Gateway, spec.md §4.5. Called with
// globalMutex held.
func (s *Scheduler) advanceTagLocked(ctx context.Context) (stop bool) {
	if s.tagCompleted {
		if s.advancer.LogicalTagComplete() {
			return true
		}
	}
	s.tagCompleted = true
	return s.advancer.NextLocked(ctx)
}

// distributeReadyReactions scans the RQA starting at nextLevel for the
// first non-empty level, sets the executing level (EQP) to it, and
// returns how many reactions are ready there. Spec.md §4.4 step 2.
func (s *Scheduler) distributeReadyReactions() int {
	for atomic.LoadInt64(&s.nextLevel) <= int64(s.maxLevel) {
		level := atomic.LoadInt64(&s.nextLevel)
		atomic.StoreInt64(&s.execLevel, level)
		k := s.rqa[level].size()
		if k > 0 {
			atomic.AddInt64(&s.nextLevel, 1)
			return k
		}
		atomic.AddInt64(&s.nextLevel, 1)
	}
	return 0
}

// notifyWorkers wakes the idle workers needed to drain k ready
// reactions. Spec.md §4.6: at most k workers are needed; the elected
// advancer is itself one of the idle workers being accounted for and
// self-dispatches without an extra semaphore round trip.
func (s *Scheduler) notifyWorkers(k int) {
	idle := atomic.LoadInt64(&s.idle)
	w := idle
	if int64(k) < w {
		w = int64(k)
	}
	atomic.AddInt64(&s.idle, -w)
	if w > 1 {
		s.sem.Release(w - 1)
	}
}

// signalStop is the Stop Protocol, spec.md §4.7. The calling goroutine
// (the advancer) is one of the n_workers and returns to its own loop
// without parking; every other worker is released.
func (s *Scheduler) signalStop() {
	s.shouldStop.Store(true)
	if n := s.numWorkers - 1; n > 0 {
		s.sem.Release(n)
	}
}
