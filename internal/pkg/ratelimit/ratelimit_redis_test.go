package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return client
}

func TestAllow(t *testing.T) {
	client := testRedis(t)
	l := NewWithRules(client,
		map[string]Rule{"platform:publish_post": {Limit: 3, Window: time.Minute}},
		Rule{Limit: 3, Window: time.Minute})

	subject := "acct-" + uuid.New().String()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "platform", subject, "publish_post")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d within the limit", i)
		assert.Equal(t, int64(i), res.Count)
		assert.Equal(t, int64(3-i), res.Remaining)
	}

	// The window is full: the counter must not move past the limit.
	res, err := l.Allow(ctx, "platform", subject, "publish_post")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(3), res.Count)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Greater(t, res.ResetIn, time.Duration(0))
}

func TestAllowOrErr(t *testing.T) {
	client := testRedis(t)
	l := NewWithRules(client,
		map[string]Rule{"platform:publish_post": {Limit: 1, Window: time.Minute}},
		Rule{Limit: 1, Window: time.Minute})

	subject := "acct-" + uuid.New().String()
	ctx := context.Background()

	_, err := l.AllowOrErr(ctx, "platform", subject, "publish_post")
	require.NoError(t, err)

	_, err = l.AllowOrErr(ctx, "platform", subject, "publish_post")
	require.Error(t, err)
	var limited *LimitExceededError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, Key("platform", subject, "publish_post"), limited.Key)
}

// A full window reopens once its TTL elapses: the next call starts a fresh
// counter instead of staying throttled.
func TestAllow_WindowExpiry(t *testing.T) {
	client := testRedis(t)
	l := NewWithRules(client,
		map[string]Rule{"platform:publish_post": {Limit: 1, Window: time.Second}},
		Rule{Limit: 1, Window: time.Second})

	subject := "acct-" + uuid.New().String()
	ctx := context.Background()

	res, err := l.Allow(ctx, "platform", subject, "publish_post")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = l.Allow(ctx, "platform", subject, "publish_post")
	require.NoError(t, err)
	require.False(t, res.Allowed, "window is full")

	time.Sleep(1500 * time.Millisecond)

	res, err = l.Allow(ctx, "platform", subject, "publish_post")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "window must reopen after it expires")
	assert.Equal(t, int64(1), res.Count, "expired window starts a fresh counter")
}

func TestAllow_SubjectsAreIndependent(t *testing.T) {
	client := testRedis(t)
	l := NewWithRules(client,
		map[string]Rule{"platform:publish_post": {Limit: 1, Window: time.Minute}},
		Rule{Limit: 1, Window: time.Minute})

	ctx := context.Background()
	a := "acct-" + uuid.New().String()
	b := "acct-" + uuid.New().String()

	resA, err := l.Allow(ctx, "platform", a, "publish_post")
	require.NoError(t, err)
	resB, err := l.Allow(ctx, "platform", b, "publish_post")
	require.NoError(t, err)

	assert.True(t, resA.Allowed)
	assert.True(t, resB.Allowed, "one subject filling its window must not throttle another")
}

// Concurrent callers must never over-admit: the check and the increment
// happen in one script execution on the server.
func TestAllow_ConcurrentAdmission(t *testing.T) {
	client := testRedis(t)
	const limit = 10
	l := NewWithRules(client,
		map[string]Rule{"platform:publish_post": {Limit: limit, Window: time.Minute}},
		Rule{Limit: limit, Window: time.Minute})

	subject := "acct-" + uuid.New().String()
	ctx := context.Background()

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Allow(ctx, "platform", subject, "publish_post")
			if err == nil && res.Allowed {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), atomic.LoadInt64(&admitted))
}
