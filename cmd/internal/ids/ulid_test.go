package ids

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID_MonotonicWithinMillisecond(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_000_000)
	a, err := NewULID(now)
	require.NoError(t, err)
	b, err := NewULID(now)
	require.NoError(t, err)

	assert.Len(t, a, 26)
	assert.Less(t, a, b)

	parsed, err := ulid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uint64(now.UnixMilli()), parsed.Time())
}

func TestNew(t *testing.T) {
	t.Parallel()

	assert.Len(t, New(), 26)
}
