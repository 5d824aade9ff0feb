package chatclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := NewBackoff(time.Second, 8*time.Second)

	// jitter adds at most a quarter of the raw delay
	for i, want := range []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second,
	} {
		got := b.Next()
		assert.GreaterOrEqual(t, got, want, "attempt %d", i)
		assert.LessOrEqual(t, got, want+want/4, "attempt %d", i)
	}
	assert.Equal(t, 5, b.Attempts())
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(time.Second, 30*time.Second)
	b.Next()
	b.Next()
	b.Reset()

	assert.Equal(t, 0, b.Attempts())
	got := b.Next()
	assert.GreaterOrEqual(t, got, time.Second)
	assert.LessOrEqual(t, got, time.Second+time.Second/4)
}

func TestBackoffDefaults(t *testing.T) {
	b := NewBackoff(0, 0)
	assert.Equal(t, time.Second, b.Base)
	assert.Equal(t, 30*time.Second, b.Cap)
}

func TestBackoffLargeAttemptCountStaysCapped(t *testing.T) {
	b := NewBackoff(time.Second, 30*time.Second)
	for i := 0; i < 100; i++ {
		got := b.Next()
		assert.LessOrEqual(t, got, 30*time.Second+30*time.Second/4)
		assert.Greater(t, got, time.Duration(0))
	}
}
