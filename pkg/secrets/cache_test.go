package secrets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testCreds struct {
	APIKey string
}

func TestCache_PutGet(t *testing.T) {
	c := NewCache[testCreds](time.Minute)

	c.Put("brokerops", testCreds{APIKey: "abc123"})

	got, ok := c.Get("brokerops")
	assert.True(t, ok)
	assert.Equal(t, "abc123", got.APIKey)
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c := NewCache[testCreds](time.Minute)

	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestCache_Expiration(t *testing.T) {
	c := NewCache[testCreds](10 * time.Millisecond)

	c.Put("brokerops", testCreds{APIKey: "abc123"})
	time.Sleep(25 * time.Millisecond)

	_, ok := c.Get("brokerops")
	assert.False(t, ok, "expired entry should miss")
}

func TestCache_Bust(t *testing.T) {
	c := NewCache[testCreds](time.Minute)

	c.Put("brokerops", testCreds{APIKey: "abc123"})
	c.Bust("brokerops")

	_, ok := c.Get("brokerops")
	assert.False(t, ok)
}

func TestCache_CleanerRemovesExpired(t *testing.T) {
	c := NewCache[testCreds](5 * time.Millisecond)
	c.Put("stale", testCreds{APIKey: "old"})

	stop := make(chan struct{})
	go c.StartCleaner(10*time.Millisecond, stop)
	defer close(stop)

	assert.Eventually(t, func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		_, present := c.data["stale"]
		return !present
	}, time.Second, 10*time.Millisecond)
}
