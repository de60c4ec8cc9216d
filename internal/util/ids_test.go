package util

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewReqID_ValidUUID(t *testing.T) {
	t.Parallel()

	id := NewReqID()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(4), parsed.Version())
}

func TestNewReqID_Uniqueness_Sample(t *testing.T) {
	t.Parallel()

	const n = 256
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := NewReqID()
		_, dup := seen[id]
		require.Falsef(t, dup, "duplicate id generated: %q", id)
		seen[id] = struct{}{}
	}
}

func TestNewReqID_TwoCallsDiffer(t *testing.T) {
	t.Parallel()

	a := NewReqID()
	b := NewReqID()
	require.NotEqual(t, a, b)
}
