package schemacache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingLoader(fields []string) (Loader, *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context, string) ([]string, error) {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return fields, nil
	}, &calls
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestGetLoadsOnceAndCachesInRedis(t *testing.T) {
	mr, rdb := newRedis(t)
	load, calls := countingLoader([]string{"roomNumber", "remarks"})
	c := New(rdb, time.Minute, load, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fields, err := c.Get(ctx, "stays")
			assert.NoError(t, err)
			assert.Equal(t, []string{"roomNumber", "remarks"}, fields)
		}()
	}
	wg.Wait()

	fields, err := c.Get(ctx, "stays")
	require.NoError(t, err)
	assert.Equal(t, []string{"roomNumber", "remarks"}, fields)
	assert.Equal(t, int32(1), calls.Load())

	raw, err := mr.Get(Key("stays"))
	require.NoError(t, err)
	assert.JSONEq(t, `["roomNumber","remarks"]`, raw)
	assert.Equal(t, time.Minute, mr.TTL(Key("stays")))
}

func TestSharedAcrossInstances(t *testing.T) {
	_, rdb := newRedis(t)
	loadA, callsA := countingLoader([]string{"a"})
	loadB, callsB := countingLoader([]string{"b"})
	ctx := context.Background()

	_, err := New(rdb, time.Minute, loadA, nil).Get(ctx, "stays")
	require.NoError(t, err)
	fields, err := New(rdb, time.Minute, loadB, nil).Get(ctx, "stays")
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, fields)
	assert.Equal(t, int32(1), callsA.Load())
	assert.Equal(t, int32(0), callsB.Load())
}

func TestEvictForcesReload(t *testing.T) {
	mr, rdb := newRedis(t)
	load, calls := countingLoader([]string{"x"})
	c := New(rdb, time.Minute, load, nil)
	ctx := context.Background()

	_, err := c.Get(ctx, "stays")
	require.NoError(t, err)
	require.NoError(t, c.Evict(ctx, "stays"))
	assert.False(t, mr.Exists(Key("stays")))

	_, err = c.Get(ctx, "stays")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmptyResultIsNotCached(t *testing.T) {
	load, calls := countingLoader(nil)
	c := New(nil, time.Minute, load, nil)
	ctx := context.Background()

	fields, err := c.Get(ctx, "stays")
	require.NoError(t, err)
	assert.NotNil(t, fields)
	assert.Empty(t, fields)

	_, err = c.Get(ctx, "stays")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMemoryCacheExpires(t *testing.T) {
	load, calls := countingLoader([]string{"x"})
	c := New(nil, time.Minute, load, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := c.Get(ctx, "stays")
	require.NoError(t, err)
	_, err = c.Get(ctx, "stays")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "stays")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRedisOutageFallsBackToMemory(t *testing.T) {
	mr, rdb := newRedis(t)
	load, calls := countingLoader([]string{"x"})
	c := New(rdb, time.Minute, load, nil)
	ctx := context.Background()

	_, err := c.Get(ctx, "stays")
	require.NoError(t, err)

	mr.Close()
	fields, err := c.Get(ctx, "stays")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, fields)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoaderErrorPropagates(t *testing.T) {
	boom := errors.New("store down")
	c := New(nil, time.Minute, func(context.Context, string) ([]string, error) { return nil, boom }, nil)
	_, err := c.Get(context.Background(), "stays")
	assert.ErrorIs(t, err, boom)
}

func TestRefreshOverwrites(t *testing.T) {
	_, rdb := newRedis(t)
	var next atomic.Value
	next.Store([]string{"old"})
	c := New(rdb, time.Minute, func(context.Context, string) ([]string, error) {
		return next.Load().([]string), nil
	}, nil)
	ctx := context.Background()

	_, err := c.Get(ctx, "stays")
	require.NoError(t, err)
	next.Store([]string{"new"})

	fields, err := c.Refresh(ctx, "stays")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, fields)

	fields, err = c.Get(ctx, "stays")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, fields)
}
