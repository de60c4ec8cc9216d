package demoprogram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"reactorsched/internal/horizon"
	"reactorsched/internal/reactor"
	"reactorsched/internal/tag"
	"reactorsched/internal/workerloop"
)

func TestBuild_ExposesFiveReactionsAcrossLevels(t *testing.T) {
	h := horizon.New(tag.Forever, nil)
	sched := reactor.New(reactor.Config{NumberOfWorkers: 1, MaxLevel: 3, InitialQueueSize: 4}, h, nil)
	h.BindScheduler(sched)
	defer sched.Close()

	p := Build(sched, h, time.Millisecond, 1, nil)

	reactions := p.Reactions()
	require.Len(t, reactions, 5)

	levels := map[uint32]int{}
	for _, r := range reactions {
		levels[reactor.Level(r.Index)]++
	}
	for _, lvl := range []uint32{0, 1, 2, 3} {
		require.NotZerof(t, levels[lvl], "expected at least one reaction at level %d", lvl)
	}
	require.Equal(t, 2, levels[0])
}

func TestProgram_RunsOneTickThenStops(t *testing.T) {
	h := horizon.New(tag.Zero, nil) // stop tag == zero: the first tick already reaches it
	sched := reactor.New(reactor.Config{NumberOfWorkers: 2, MaxLevel: 3, InitialQueueSize: 4}, h, nil)
	h.BindScheduler(sched)
	defer sched.Close()

	p := Build(sched, h, time.Millisecond, 1, nil)
	pool := workerloop.Start(sched, 2, nil)

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("demo program never reached stop")
	}

	require.Equal(t, 1, p.TickCount())
}
