package collab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaborative-editor/internal/collab"
	"collaborative-editor/internal/domain"
)

func newTestDoc() *collab.DocumentSynchronizer {
	return collab.NewDocumentSynchronizer("plaintext", collab.SyncOptimistic, 1000)
}

func TestDocumentSynchronizer_Insert(t *testing.T) {
	doc := newTestDoc()

	state, _, err := doc.Apply(domain.DocumentOperation{Type: domain.OpInsert, Position: 0, Text: "Hello", UserID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "Hello", state.Content)
	assert.Equal(t, uint64(1), state.Version)
	assert.Equal(t, "bob", state.LastModifiedBy)

	// Insert in the middle, not just append.
	state, _, err = doc.Apply(domain.DocumentOperation{Type: domain.OpInsert, Position: 4, Text: "!", UserID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "Hell!o", state.Content)
	assert.Equal(t, uint64(2), state.Version)
}

func TestDocumentSynchronizer_Delete(t *testing.T) {
	doc := newTestDoc()
	_, _, err := doc.Apply(domain.DocumentOperation{Type: domain.OpInsert, Position: 0, Text: "Hello World"})
	require.NoError(t, err)

	state, _, err := doc.Apply(domain.DocumentOperation{Type: domain.OpDelete, Start: 5, End: 11})
	require.NoError(t, err)
	assert.Equal(t, "Hello", state.Content)
	assert.Equal(t, uint64(2), state.Version)
}

func TestDocumentSynchronizer_Replace(t *testing.T) {
	doc := newTestDoc()
	_, _, err := doc.Apply(domain.DocumentOperation{Type: domain.OpInsert, Position: 0, Text: "Hello World"})
	require.NoError(t, err)

	state, _, err := doc.Apply(domain.DocumentOperation{Type: domain.OpReplace, Start: 6, End: 11, Text: "Go"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Go", state.Content)
}

func TestDocumentSynchronizer_FormatLeavesTextUntouched(t *testing.T) {
	doc := newTestDoc()
	_, _, err := doc.Apply(domain.DocumentOperation{Type: domain.OpInsert, Position: 0, Text: "Hello"})
	require.NoError(t, err)

	state, entry, err := doc.Apply(domain.DocumentOperation{
		Type:       domain.OpFormat,
		Start:      0,
		End:        5,
		Attributes: map[string]string{"bold": "true"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", state.Content)
	assert.Equal(t, uint64(2), state.Version, "formatting still bumps the version")
	assert.Equal(t, "true", entry.Operation.Attributes["bold"])
}

func TestDocumentSynchronizer_RejectsInvalidRanges(t *testing.T) {
	doc := newTestDoc()
	_, _, err := doc.Apply(domain.DocumentOperation{Type: domain.OpInsert, Position: 0, Text: "Hello"})
	require.NoError(t, err)

	cases := []domain.DocumentOperation{
		{Type: domain.OpInsert, Position: 6, Text: "x"},
		{Type: domain.OpInsert, Position: -1, Text: "x"},
		{Type: domain.OpDelete, Start: 3, End: 2},
		{Type: domain.OpDelete, Start: 0, End: 6},
		{Type: domain.OpDelete, Start: -1, End: 2},
		{Type: domain.OpReplace, Start: 2, End: 99, Text: "x"},
		{Type: "unknown", Position: 0},
	}
	for _, op := range cases {
		_, _, err := doc.Apply(op)
		assert.ErrorIs(t, err, collab.ErrInvalidOperation, "op %+v must be rejected", op)
	}

	// A rejected operation leaves no trace.
	state := doc.State()
	assert.Equal(t, "Hello", state.Content)
	assert.Equal(t, uint64(1), state.Version)
	assert.Len(t, doc.Log(), 1)
}

func TestDocumentSynchronizer_RejectsOffsetsInsideRunes(t *testing.T) {
	doc := newTestDoc()
	// "héllo" is 6 bytes: h(0) é(1-2) l(3) l(4) o(5).
	_, _, err := doc.Apply(domain.DocumentOperation{Type: domain.OpInsert, Position: 0, Text: "héllo"})
	require.NoError(t, err)

	cases := []domain.DocumentOperation{
		{Type: domain.OpInsert, Position: 2, Text: "x"},
		{Type: domain.OpDelete, Start: 2, End: 3},
		{Type: domain.OpDelete, Start: 0, End: 2},
		{Type: domain.OpReplace, Start: 2, End: 4, Text: "x"},
		{Type: domain.OpFormat, Start: 1, End: 2, Attributes: map[string]string{"bold": "true"}},
	}
	for _, op := range cases {
		_, _, err := doc.Apply(op)
		assert.ErrorIs(t, err, collab.ErrInvalidOperation, "op %+v splits a rune and must be rejected", op)
	}

	state := doc.State()
	assert.Equal(t, "héllo", state.Content)
	assert.Equal(t, uint64(1), state.Version)
}

func TestDocumentSynchronizer_SplicesAtRuneBoundaries(t *testing.T) {
	doc := newTestDoc()
	// "日本語" is 9 bytes, 3 bytes per rune.
	_, _, err := doc.Apply(domain.DocumentOperation{Type: domain.OpInsert, Position: 0, Text: "日本語"})
	require.NoError(t, err)

	state, _, err := doc.Apply(domain.DocumentOperation{Type: domain.OpDelete, Start: 3, End: 6})
	require.NoError(t, err)
	assert.Equal(t, "日語", state.Content)

	state, _, err = doc.Apply(domain.DocumentOperation{Type: domain.OpInsert, Position: 3, Text: "é"})
	require.NoError(t, err)
	assert.Equal(t, "日é語", state.Content)

	state, _, err = doc.Apply(domain.DocumentOperation{Type: domain.OpReplace, Start: 3, End: 5, Text: "本"})
	require.NoError(t, err)
	assert.Equal(t, "日本語", state.Content)
	assert.Equal(t, uint64(4), state.Version)
}

func TestDocumentSynchronizer_VersionsAreMonotonic(t *testing.T) {
	doc := newTestDoc()
	for i := 1; i <= 20; i++ {
		state, entry, err := doc.Apply(domain.DocumentOperation{Type: domain.OpInsert, Position: 0, Text: "a"})
		require.NoError(t, err)
		assert.Equal(t, uint64(i), state.Version)
		assert.Equal(t, uint64(i), entry.ResultingVersion)
	}
}

func TestDocumentSynchronizer_LogEvictsOldest(t *testing.T) {
	doc := collab.NewDocumentSynchronizer("plaintext", collab.SyncOptimistic, 3)
	for i := 0; i < 5; i++ {
		_, _, err := doc.Apply(domain.DocumentOperation{Type: domain.OpInsert, Position: 0, Text: "a"})
		require.NoError(t, err)
	}

	log := doc.Log()
	require.Len(t, log, 3)
	assert.Equal(t, uint64(3), log[0].ResultingVersion, "oldest retained entry")
	assert.Equal(t, uint64(5), log[2].ResultingVersion)
}

func TestDocumentSynchronizer_UnknownStrategyBehavesOptimistically(t *testing.T) {
	doc := collab.NewDocumentSynchronizer("plaintext", collab.SyncStrategy("future"), 10)
	state, _, err := doc.Apply(domain.DocumentOperation{Type: domain.OpInsert, Position: 0, Text: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "ok", state.Content)
}
