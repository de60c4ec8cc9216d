// Package workerloop drives the reactor.Scheduler's Worker Loop Contract
// from real goroutines: spawn N workers, each looping
// GetReadyReaction -> run body -> DoneWithReaction until the scheduler
// signals stop. Thread creation is a platform primitive spec.md
// deliberately keeps out of the core scheduler package; this is that
// primitive's Go-native realization (goroutines rather than OS threads),
// grounded on the teacher's Pool.Start worker-spawn idiom.
package workerloop

import (
	"log/slog"
	"sync"

	"reactorsched/internal/reactor"
)

// Pool owns the goroutines executing a scheduler's worker loop.
type Pool struct {
	sched *reactor.Scheduler
	log   *slog.Logger
	wg    sync.WaitGroup
}

// Start spawns n worker goroutines against sched and returns immediately;
// call Wait to block until every worker has observed stop.
func Start(sched *reactor.Scheduler, n int, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.Default()
	}
	p := &Pool{sched: sched, log: log}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		workerID := i
		go p.loop(workerID)
	}
	return p
}

// Wait blocks until every worker goroutine has exited its loop.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) loop(workerID int) {
	defer p.wg.Done()
	for {
		r, ok := p.sched.GetReadyReaction(workerID)
		if !ok {
			p.log.Debug("worker stopping", "worker_id", workerID)
			return
		}
		p.runBody(workerID, r)
		p.sched.DoneWithReaction(workerID, r)
	}
}

// runBody executes the reaction body, recovering a panic so that one
// misbehaving reaction cannot wedge the whole worker pool out of
// reporting DoneWithReaction (the scheduler has no notion of reaction
// failure; it only cares that the call happens).
func (p *Pool) runBody(workerID int, r *reactor.Reaction) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("reaction panicked", "worker_id", workerID, "reaction", r.Name, "panic", rec)
		}
	}()
	if r.Body != nil {
		r.Body()
	}
}
