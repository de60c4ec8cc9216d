// Package horizon implements the "event horizon" external collaborator
// that spec.md treats as deliberately out of scope for the core
// scheduler: it owns current_tag/stop_tag, advances the logical tag, and
// populates the scheduler's reaction queues for the newly reached tag.
//
// This is a single-node, timer-driven implementation — not a federated
// one. LogicalTagComplete is a local no-op observer, consistent with the
// "federated coordinator... out of scope" non-goal in spec.md §1.
package horizon

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"reactorsched/internal/reactor"
	"reactorsched/internal/tag"
)

// pendingEvent is one entry of the event queue spec.md §6 mentions as an
// external collaborator resource guarded by global_mutex.
type pendingEvent struct {
	tag       tag.Tag
	reactions []*reactor.Reaction
}

type eventHeap []*pendingEvent

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool   { return tag.Compare(h[i].tag, h[j].tag) < 0 }
func (h eventHeap) Swap(i, j int)        { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{})  { *h = append(*h, x.(*pendingEvent)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}

// EventHorizon implements reactor.TagAdvancer on top of a pending-event
// min-heap ordered by tag. Schedule posts reactions to fire at a future
// tag; NextLocked waits for the nearest one, lets wall-clock time catch
// up to it, then triggers its reactions.
type EventHorizon struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending eventHeap

	current tag.Tag
	stop    tag.Tag

	sched *reactor.Scheduler
	log   *slog.Logger
	now   func() time.Time
}

// New creates an EventHorizon that halts once current_tag reaches
// stopTag. BindScheduler must be called before the scheduler starts
// draining work, since NextLocked triggers reactions into it.
func New(stopTag tag.Tag, log *slog.Logger) *EventHorizon {
	if log == nil {
		log = slog.Default()
	}
	h := &EventHorizon{stop: stopTag, log: log, now: time.Now}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// BindScheduler wires the scheduler this horizon feeds reactions into.
// Kept as a separate step (rather than a constructor argument) because
// the scheduler's own constructor requires a TagAdvancer.
func (h *EventHorizon) BindScheduler(s *reactor.Scheduler) {
	h.sched = s
}

// CurrentTag reports the most recently reached tag, for diagnostics.
func (h *EventHorizon) CurrentTag() tag.Tag {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Schedule posts reactions to fire once current_tag reaches t. Safe to
// call from any goroutine, including from within a reaction body.
func (h *EventHorizon) Schedule(t tag.Tag, reactions ...*reactor.Reaction) {
	h.mu.Lock()
	heap.Push(&h.pending, &pendingEvent{tag: t, reactions: reactions})
	h.cond.Broadcast()
	h.mu.Unlock()
}

// NextLocked implements reactor.TagAdvancer. It blocks until an event is
// pending, pops the earliest one and makes its tag current_tag, blocks
// further until that tag's wall-clock time arrives, then triggers the
// event's reactions. If ctx ends during that wait it reports stop and the
// event's reactions are not triggered.
func (h *EventHorizon) NextLocked(ctx context.Context) (stop bool) {
	h.mu.Lock()
	for len(h.pending) == 0 {
		h.cond.Wait()
	}
	ev := heap.Pop(&h.pending).(*pendingEvent)
	h.current = ev.tag
	h.mu.Unlock()

	if d := ev.tag.Time.Sub(h.now()); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return true
		}
	}

	for _, r := range ev.reactions {
		h.sched.TriggerReaction(r, -1)
	}
	return false
}

// LogicalTagComplete implements reactor.TagAdvancer. There is no
// federated runtime infrastructure here, so this only logs and reports
// whether current_tag has reached stop_tag.
func (h *EventHorizon) LogicalTagComplete() (atStopTag bool) {
	h.mu.Lock()
	current := h.current
	h.mu.Unlock()

	h.log.Debug("logical tag complete", "tag", current.Time, "microstep", current.Microstep)
	return tag.Compare(current, h.stop) >= 0
}
