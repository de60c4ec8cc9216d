package reactor

import "sync/atomic"

// Stats is a point-in-time, racy-by-design snapshot for diagnostics
// endpoints; none of its fields are meant to be used for scheduling
// decisions.
type Stats struct {
	NumWorkers    int
	IdleWorkers   int
	NextLevel     int64
	ExecutingLevel int64
	MaxLevel      uint32
	Stopped       bool
	QueueDepths   []int
}

// Snapshot reports the current scheduler state for /status-style
// endpoints. It takes execQMutex briefly to get a consistent read of
// every level's queue depth.
func (s *Scheduler) Snapshot() Stats {
	st := Stats{
		NumWorkers:     int(s.numWorkers),
		IdleWorkers:    int(atomic.LoadInt64(&s.idle)),
		NextLevel:      atomic.LoadInt64(&s.nextLevel),
		ExecutingLevel: atomic.LoadInt64(&s.execLevel),
		MaxLevel:       s.maxLevel,
		Stopped:        s.shouldStop.Load(),
	}

	s.execQMutex.Lock()
	st.QueueDepths = make([]int, len(s.rqa))
	for i, q := range s.rqa {
		if q != nil {
			st.QueueDepths[i] = q.size()
		}
	}
	s.execQMutex.Unlock()

	return st
}
