package collab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"collaborative-editor/internal/collab"
)

func TestColorFor_Deterministic(t *testing.T) {
	first := collab.ColorFor("alice")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, collab.ColorFor("alice"), "same user must always get the same color")
	}
}

func TestColorFor_ValidHexColor(t *testing.T) {
	for _, id := range []string{"", "a", "bob", "carol", "用户", "user-with-a-fairly-long-identifier"} {
		color := collab.ColorFor(id)
		assert.Len(t, color, 7)
		assert.Equal(t, byte('#'), color[0])
	}
}

func TestColorFor_SpreadsAcrossPalette(t *testing.T) {
	seen := make(map[string]struct{})
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		seen[collab.ColorFor(id)] = struct{}{}
	}
	// Consecutive single-byte ids land on consecutive palette slots.
	assert.Equal(t, 8, len(seen))
}
