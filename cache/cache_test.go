package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetString(t *testing.T) {
	c := New()
	c.SetDefault("reply", "hello")
	c.SetDefault("count", 3)

	v, ok := c.GetString("reply")
	assert.True(t, ok)
	assert.Equal(t, "hello", v)

	_, ok = c.GetString("count")
	assert.False(t, ok)
	_, ok = c.GetString("missing")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := NewWithTTL(10*time.Millisecond, time.Minute)
	c.SetDefault("k", "v")
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	a := Key("vision", "model", "prompt")
	assert.Equal(t, a, Key("vision", "model", "prompt"))
	assert.NotEqual(t, Key("vision", "ab", "c"), Key("vision", "a", "bc"))
	assert.Len(t, a, len("vision:")+64)
}
