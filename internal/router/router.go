package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"reactorsched/internal/config"
	"reactorsched/internal/demoprogram"
	"reactorsched/internal/handlers"
	"reactorsched/internal/horizon"
	"reactorsched/internal/http10"
	"reactorsched/internal/reactor"
	"reactorsched/internal/resp"
	"reactorsched/internal/tag"
	"reactorsched/internal/workerloop"
)

// cpuTimeout bounds the synchronous diagnostic routes below — they run
// the same reaction bodies demoprogram schedules, but outside the
// reactor's own queue, so they need their own cancellation deadline.
//   TIMEOUT_CPU: e.g. "60s" (default 60s)
var cpuTimeout = getDurEnv("TIMEOUT_CPU", 60*time.Second)

func getDurEnv(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// Reactor holds every moving part of the running scheduler so the HTTP
// control plane can introspect it and cmd/reactord can drive an orderly
// shutdown.
type Reactor struct {
	Scheduler *reactor.Scheduler
	Horizon   *horizon.EventHorizon
	Program   *demoprogram.Program
	Workers   *workerloop.Pool
}

var (
	reactorInstance *Reactor
	logger          = slog.Default()
)

// SetLogger lets cmd/reactord route router's internal logging through
// the same structured logger used everywhere else. Call before
// InitReactor.
func SetLogger(l *slog.Logger) { logger = l }

// InitReactor builds the scheduler, the event horizon, and the fixed
// demo program, then starts the worker goroutines. Analogous to the
// teacher's InitPools, but wiring a single reactor.Scheduler instead of
// a set of independent sched.Pool worker pools.
func InitReactor(cfg config.Config) *Reactor {
	stopTag := tag.Forever
	if cfg.TickLimit > 0 {
		// A generous upper bound: TickLimit ticks at TickInterval each,
		// plus slack, guarantees the horizon's stop tag is reachable
		// well after the demo program stops rescheduling at TickLimit.
		window := cfg.TickInterval * time.Duration(cfg.TickLimit+2)
		stopTag = tag.AtTime(time.Now().Add(window))
	}

	h := horizon.New(stopTag, logger)
	if cfg.TickLimit > 0 {
		// An empty event at the stop tag lets the horizon advance to it
		// once the demo program has stopped rescheduling.
		h.Schedule(stopTag)
	}
	sched := reactor.New(reactor.Config{
		NumberOfWorkers:  cfg.NumberOfWorkers,
		MaxLevel:         cfg.MaxReactionLevel,
		InitialQueueSize: cfg.InitialQueueSize,
	}, h, logger)
	h.BindScheduler(sched)

	program := demoprogram.Build(sched, h, cfg.TickInterval, cfg.TickLimit, logger)
	workers := workerloop.Start(sched, cfg.NumberOfWorkers, logger)

	reactorInstance = &Reactor{Scheduler: sched, Horizon: h, Program: program, Workers: workers}
	return reactorInstance
}

// Close tears down the reactor's scheduler state. The normal way a run
// ends is the horizon reaching its stop tag on its own; Close is the
// forced path used from a SIGINT/SIGTERM handler.
func Close() {
	if reactorInstance != nil {
		reactorInstance.Scheduler.Close()
	}
}

// Dispatch resuelve rutas sobre HTTP/1.0 (GET).
func Dispatch(method, target string) resp.Result {
	if method != "GET" {
		return resp.BadReq("method", "only GET")
	}

	path, q := http10.SplitTarget(target)
	args := http10.ParseQuery(q)

	switch path {
	// Básicas
	case "/":
		return resp.PlainOK("hola mundo\n")
	case "/help":
		return handlers.Help()
	case "/timestamp":
		return handlers.Timestamp(nil)
	case "/reverse":
		return handlers.Reverse(args)
	case "/toupper":
		return handlers.ToUpper(args)
	case "/hash":
		return handlers.Hash(args)
	case "/random":
		return handlers.Random(args)
	case "/fibonacci":
		return handlers.Fibonacci(args)

	// Diagnóstico CPU-bound: llamadas síncronas a los mismos cuerpos de
	// reacción que demoprogram programa en el reactor, fuera de su cola.
	case "/isprime":
		return runDiag(cpuTimeout, func(ctx context.Context) resp.Result { return handlers.IsPrimeJSONCtx(ctx, args) })
	case "/factor":
		return runDiag(cpuTimeout, func(ctx context.Context) resp.Result { return handlers.FactorJSONCtx(ctx, args) })
	case "/pi":
		return runDiag(cpuTimeout, func(ctx context.Context) resp.Result { return handlers.PiJSONCtx(ctx, args) })
	case "/mandelbrot":
		return runDiag(cpuTimeout, func(ctx context.Context) resp.Result { return handlers.MandelbrotJSONCtx(ctx, args) })

	// Reactor: estado y reacciones en vivo.
	case "/status":
		return resp.JSONOK(reactorStatusJSON())
	case "/reactions":
		return resp.JSONOK(reactorReactionsJSON())
	case "/metrics":
		return resp.JSONOK(reactorStatusJSON())
	}

	return resp.NotFound("not_found", "route")
}

// runDiag enforces a cpu/io timeout on an otherwise-unbounded handler
// call, the same contract the teacher's pool submission gave callers,
// without routing through a worker pool.
func runDiag(timeout time.Duration, fn func(ctx context.Context) resp.Result) resp.Result {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fn(ctx)
}

// reactorStatusJSON summarizes the live scheduler for /status and
// /metrics.
func reactorStatusJSON() string {
	b, _ := json.Marshal(ReactorSummary())
	return string(b)
}

// reactorReactionsJSON lists the fixed demo program's reactions and
// their current status, for /reactions.
func reactorReactionsJSON() string {
	type lite struct {
		Name   string `json:"name"`
		Level  uint32 `json:"level"`
		Status string `json:"status"`
	}
	var out []lite
	if reactorInstance != nil {
		for _, r := range reactorInstance.Program.Reactions() {
			out = append(out, lite{Name: r.Name, Level: reactor.Level(r.Index), Status: r.Status().String()})
		}
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// ReactorSummary devuelve un mapa resumido del reactor, usado tanto por
// /status como por server.HandleConn (sin ciclo de import).
func ReactorSummary() map[string]any {
	out := map[string]any{}
	if reactorInstance == nil {
		return out
	}
	snap := reactorInstance.Scheduler.Snapshot()
	out["workers"] = map[string]any{"total": snap.NumWorkers, "idle": snap.IdleWorkers}
	out["next_level"] = snap.NextLevel
	out["executing_level"] = snap.ExecutingLevel
	out["max_level"] = snap.MaxLevel
	out["stopped"] = snap.Stopped
	out["queue_depths"] = snap.QueueDepths
	out["tick"] = reactorInstance.Program.TickCount()
	out["current_tag"] = reactorInstance.Horizon.CurrentTag().Time.Format(time.RFC3339Nano)
	return out
}
