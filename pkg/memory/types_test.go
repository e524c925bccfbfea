package memory

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAge(t *testing.T) {
	now := time.Now()
	created := now.Add(-48 * time.Hour)

	m := &Memory{CreatedAt: created}
	assert.Equal(t, 48*time.Hour, m.Age(now))

	used := now.Add(-1 * time.Hour)
	m.LastUsed = &used
	assert.Equal(t, 1*time.Hour, m.Age(now))

	// A stale LastUsed before creation never rejuvenates the memory.
	stale := created.Add(-24 * time.Hour)
	m.LastUsed = &stale
	assert.Equal(t, 48*time.Hour, m.Age(now))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.3))
	assert.Equal(t, 1.0, Clamp01(1.7))
	assert.Equal(t, 0.42, Clamp01(0.42))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}
