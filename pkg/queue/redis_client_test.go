package queue

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"go-boxblur/pkg/common"
)

func newTestClient(t *testing.T) *RedisClient {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisClient(t.Context(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestAddAndReadResults(t *testing.T) {
	c := newTestClient(t)
	ctx := t.Context()
	size := common.Size{Width: 500, Height: 500}

	for _, w := range []int{1, 2, 4} {
		res := &common.TrialResult{
			Size:      size,
			Workers:   w,
			Mode:      common.ModeParallel,
			Runs:      []time.Duration{time.Duration(w) * time.Millisecond},
			Mean:      float64(w) / 1000,
			Timestamp: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		}
		id, err := c.AddResult(ctx, res)
		require.NoError(t, err)
		require.NotEmpty(t, id)
	}

	n, err := c.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	all, err := c.ReadResults(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, 1, all[0].Result.Workers)
	require.Equal(t, size, all[2].Result.Size)
	require.Equal(t, []time.Duration{4 * time.Millisecond}, all[2].Result.Runs)

	last, err := c.ReadResults(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	require.Equal(t, 2, last[0].Result.Workers)
	require.Equal(t, 4, last[1].Result.Workers)
}

func TestReadResultsEmpty(t *testing.T) {
	c := newTestClient(t)
	entries, err := c.ReadResults(t.Context(), 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(t.Context(), addr)
	require.Error(t, err)
}
