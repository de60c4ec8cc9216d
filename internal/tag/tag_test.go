package tag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompare_Time(t *testing.T) {
	t.Parallel()
	base := time.Unix(1000, 0)
	a := Tag{Time: base}
	b := Tag{Time: base.Add(time.Second)}
	require.Equal(t, -1, Compare(a, b))
	require.Equal(t, 1, Compare(b, a))
	require.Equal(t, 0, Compare(a, a))
}

func TestCompare_MicrostepBreaksTies(t *testing.T) {
	t.Parallel()
	base := time.Unix(2000, 0)
	a := Tag{Time: base, Microstep: 0}
	b := Tag{Time: base, Microstep: 1}
	require.Equal(t, -1, Compare(a, b))
	require.Equal(t, 1, Compare(b, a))
}

func TestAfter_SameTimeNextMicrostep(t *testing.T) {
	t.Parallel()
	base := Tag{Time: time.Unix(3000, 0), Microstep: 5}
	next := After(base)
	require.Equal(t, base.Time, next.Time)
	require.Equal(t, base.Microstep+1, next.Microstep)
	require.Equal(t, -1, Compare(base, next))
}

func TestAtTime_ZeroMicrostep(t *testing.T) {
	t.Parallel()
	when := time.Unix(4000, 0)
	got := AtTime(when)
	require.Zero(t, got.Microstep)
	require.True(t, got.Time.Equal(when))
}

func TestForever_AfterAnyFiniteTag(t *testing.T) {
	t.Parallel()
	now := Tag{Time: time.Now()}
	require.Equal(t, -1, Compare(now, Forever))
}

func TestZero_IsTheEarliestOrdinaryTag(t *testing.T) {
	t.Parallel()
	later := Tag{Time: time.Unix(1, 0)}
	require.Equal(t, -1, Compare(Zero, later))
}
