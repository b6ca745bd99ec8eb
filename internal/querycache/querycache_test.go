package querycache

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	c := New()

	var fetches int32
	c.Register("applications", func(ctx context.Context) (any, error) {
		return atomic.AddInt32(&fetches, 1), nil
	})

	v1, err := c.Get(ctx, "applications")
	require.NoError(t, err)
	v2, err := c.Get(ctx, "applications")
	require.NoError(t, err)
	assert.Equal(t, v1, v2, "second Get must serve the cached value")
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetches))

	require.NoError(t, c.Invalidate(ctx, "applications"))
	v3, err := c.Get(ctx, "applications")
	require.NoError(t, err)
	assert.NotEqual(t, v1, v3)
}

func TestInvalidateNotifiesAllSubscribers(t *testing.T) {
	ctx := context.Background()
	c := New()

	version := int32(1)
	c.Register("applications", func(ctx context.Context) (any, error) {
		return atomic.LoadInt32(&version), nil
	})

	var got1, got2 any
	cancel1, err := c.Subscribe("applications", func(data any) { got1 = data })
	require.NoError(t, err)
	_, err = c.Subscribe("applications", func(data any) { got2 = data })
	require.NoError(t, err)

	atomic.StoreInt32(&version, 2)
	require.NoError(t, c.Invalidate(ctx, "applications"))
	assert.EqualValues(t, 2, got1)
	assert.EqualValues(t, 2, got2, "every subscriber of the key must see fresh data")

	// A cancelled subscriber stops receiving.
	cancel1()
	atomic.StoreInt32(&version, 3)
	require.NoError(t, c.Invalidate(ctx, "applications"))
	assert.EqualValues(t, 2, got1)
	assert.EqualValues(t, 3, got2)
}

func TestInvalidateIgnoresUnknownKeys(t *testing.T) {
	ctx := context.Background()
	c := New()
	c.Register("applications", func(ctx context.Context) (any, error) { return 1, nil })

	require.NoError(t, c.Invalidate(ctx, "applications", "interview-processes", "dashboard-stats"))
}

func TestUnknownKey(t *testing.T) {
	c := New()
	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownKey)
	_, err = c.Subscribe("nope", func(any) {})
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestWaitForPollsUntilPredicate(t *testing.T) {
	ctx := context.Background()
	c := New()

	var version int32
	c.Register("applications", func(ctx context.Context) (any, error) {
		return atomic.AddInt32(&version, 1), nil
	})

	err := c.WaitFor(ctx, "applications", func(data any) bool {
		return data.(int32) >= 3
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&version), int32(3))
}

func TestWaitForHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New()
	c.Register("applications", func(ctx context.Context) (any, error) { return 0, nil })

	cancel()
	err := c.WaitFor(ctx, "applications", func(any) bool { return false })
	assert.ErrorIs(t, err, context.Canceled)
}
