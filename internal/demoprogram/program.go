// Package demoprogram hand-wires a small, fixed reactor program across
// several precedence levels so internal/reactor.Scheduler has something
// real to execute end to end. Reaction bodies reuse the teacher's CPU
// workload probes from internal/handlers; the wiring itself — a level 0
// reaction triggering level 1 on completion, level 1 triggering level 2,
// and so on — is what exercises the scheduler's cross-level ordering
// guarantee (spec.md §5: "Level L is fully observed complete... before
// any worker sees any reaction from level L+1").
package demoprogram

import (
	"context"
	"log/slog"
	"time"

	"reactorsched/internal/handlers"
	"reactorsched/internal/horizon"
	"reactorsched/internal/reactor"
	"reactorsched/internal/tag"
)

// Program is a fixed set of reactions distributed across four levels:
// level 0 "ingest" (two independent number-theory checks), level 1
// "compute" (a digit-series estimate that conceptually depends on
// ingest having finished), level 2 "render" (a visualization pass), and
// level 3 "tick", which logs progress and either reschedules the next
// tag or, after TickLimit ticks, lets the horizon reach its stop tag.
type Program struct {
	sched   *reactor.Scheduler
	horizon *horizon.EventHorizon
	log     *slog.Logger

	tickInterval time.Duration
	tickLimit    int
	tick         int

	ingestA, ingestB *reactor.Reaction
	compute          *reactor.Reaction
	render           *reactor.Reaction
	finish           *reactor.Reaction
}

// Build constructs the fixed program and schedules its first tag. It
// must be called after sched and h are both constructed but before
// workerloop.Start; Build itself never blocks.
func Build(sched *reactor.Scheduler, h *horizon.EventHorizon, tickInterval time.Duration, tickLimit int, log *slog.Logger) *Program {
	if log == nil {
		log = slog.Default()
	}
	p := &Program{sched: sched, horizon: h, log: log, tickInterval: tickInterval, tickLimit: tickLimit}

	p.ingestA = &reactor.Reaction{Name: "ingest-isprime", Index: reactor.MakeIndex(0, 0)}
	p.ingestA.Body = func() { p.runIngestA() }

	p.ingestB = &reactor.Reaction{Name: "ingest-factor", Index: reactor.MakeIndex(0, 1)}
	p.ingestB.Body = func() { p.runIngestB() }

	p.compute = &reactor.Reaction{Name: "compute-pi", Index: reactor.MakeIndex(1, 0)}
	p.compute.Body = func() { p.runCompute() }

	p.render = &reactor.Reaction{Name: "render-mandelbrot", Index: reactor.MakeIndex(2, 0)}
	p.render.Body = func() { p.runRender() }

	p.finish = &reactor.Reaction{Name: "tick-finish", Index: reactor.MakeIndex(3, 0)}
	p.finish.Body = func() { p.runFinish() }

	h.Schedule(tag.Zero, p.ingestA, p.ingestB)
	return p
}

func (p *Program) runIngestA() {
	res := handlers.IsPrimeJSONCtx(context.Background(), map[string]string{"n": "104729", "method": "miller-rabin"})
	p.log.Debug("ingest-isprime done", "tick", p.tick, "status", res.Status)
	p.sched.TriggerReaction(p.compute, -1)
}

func (p *Program) runIngestB() {
	res := handlers.FactorJSONCtx(context.Background(), map[string]string{"n": "720720"})
	p.log.Debug("ingest-factor done", "tick", p.tick, "status", res.Status)
}

func (p *Program) runCompute() {
	res := handlers.PiJSONCtx(context.Background(), map[string]string{"digits": "64", "method": "spigot"})
	p.log.Debug("compute-pi done", "tick", p.tick, "status", res.Status)
	p.sched.TriggerReaction(p.render, -1)
}

func (p *Program) runRender() {
	res := handlers.MandelbrotJSONCtx(context.Background(), map[string]string{"width": "48", "height": "24", "max_iter": "64"})
	p.log.Debug("render-mandelbrot done", "tick", p.tick, "status", res.Status)
	p.sched.TriggerReaction(p.finish, -1)
}

func (p *Program) runFinish() {
	p.tick++
	p.log.Info("tick complete", "tick", p.tick, "limit", p.tickLimit)
	if p.tickLimit > 0 && p.tick >= p.tickLimit {
		return
	}
	nextTag := tag.AtTime(time.Now().Add(p.tickInterval))
	p.horizon.Schedule(nextTag, p.ingestA, p.ingestB)
}

// TickCount reports how many full level-0..level-3 cycles have
// completed, for diagnostics.
func (p *Program) TickCount() int { return p.tick }

// Reactions returns the fixed set of reactions, for introspection
// endpoints.
func (p *Program) Reactions() []*reactor.Reaction {
	return []*reactor.Reaction{p.ingestA, p.ingestB, p.compute, p.render, p.finish}
}
