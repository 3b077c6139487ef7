package rand

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junaikey/livecache/pkg/constants"
)

func TestNewRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewRequestID(constants.RequestIDLength)
		require.Len(t, id, constants.RequestIDLength)
		for _, c := range id {
			require.True(t, strings.ContainsRune(charset, c), "unexpected %q in %s", c, id)
		}
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Empty(t, NewRequestID(0))
}

func TestJitter(t *testing.T) {
	var below, above bool
	for i := 0; i < 1000; i++ {
		j := Jitter()
		require.GreaterOrEqual(t, j, -1.0)
		require.Less(t, j, 1.0)
		below = below || j < 0
		above = above || j > 0
	}
	assert.True(t, below && above, "jitter covers both signs")
}

func BenchmarkNewRequestID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NewRequestID(constants.RequestIDLength)
	}
}
