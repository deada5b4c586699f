package sessioncache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetMissing(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestSetAndGet(t *testing.T) {
	c := NewCache()
	c.Set("s1", true)

	valid, ok := c.Get("s1")
	assert.True(t, ok)
	assert.True(t, valid)
}

func TestLazyExpiryOnRead(t *testing.T) {
	c := NewCache()
	c.SetTTL("s1", true, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("s1")
	assert.False(t, ok, "entry past its TTL must read as absent")
}

func TestRemove(t *testing.T) {
	c := NewCache()
	c.Set("s1", true)
	c.Remove("s1")

	_, ok := c.Get("s1")
	assert.False(t, ok)
}

func TestStatsClassifiesEntries(t *testing.T) {
	c := NewCache()
	c.Set("valid", true)
	c.Set("invalid", false)
	c.SetTTL("expired", true, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	stats := c.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Valid)
	assert.Equal(t, 1, stats.Invalid)
	assert.Equal(t, 1, stats.Expired)
}

func TestCleanupExpiredRemovesOnlyExpired(t *testing.T) {
	c := NewCache()
	c.Set("fresh", true)
	c.SetTTL("stale", true, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	removed := c.CleanupExpired()
	assert.Equal(t, 1, removed)

	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestRunJanitorStopsOnCancel(t *testing.T) {
	c := NewCache()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunJanitor did not return after context cancellation")
	}
}
