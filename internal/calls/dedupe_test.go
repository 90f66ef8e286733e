package calls

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeduper(t *testing.T, ttl time.Duration) (*Deduper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDeduper(client, ttl), mr
}

func TestDeduperMarkThenSeen(t *testing.T) {
	d, _ := newTestDeduper(t, time.Minute)
	ctx := context.Background()

	seen, err := d.Seen(ctx, "tc-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, d.Mark(ctx, "tc-1"))

	seen, err = d.Seen(ctx, "tc-1")
	require.NoError(t, err)
	assert.True(t, seen)

	// Different tool call, different key.
	seen, err = d.Seen(ctx, "tc-2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestDeduperEntriesExpire(t *testing.T) {
	d, mr := newTestDeduper(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, d.Mark(ctx, "tc-1"))
	mr.FastForward(2 * time.Minute)

	seen, err := d.Seen(ctx, "tc-1")
	require.NoError(t, err)
	assert.False(t, seen)
}
