package collab_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaborative-editor/internal/collab"
	"collaborative-editor/internal/domain"
)

func TestSessionRegistry_JoinAssignsStableIdentity(t *testing.T) {
	reg := collab.NewSessionRegistry(10)

	s, err := reg.Join("room", "alice", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "alice", s.UserID)
	assert.Equal(t, "Alice", s.Name)
	assert.Equal(t, domain.StatusActive, s.Status)
	assert.Equal(t, collab.ColorFor("alice"), s.Color)
}

func TestSessionRegistry_CapacityAndDuplicates(t *testing.T) {
	reg := collab.NewSessionRegistry(2)

	_, err := reg.Join("room", "alice", "Alice")
	require.NoError(t, err)

	_, err = reg.Join("room", "alice", "Alice Again")
	assert.ErrorIs(t, err, collab.ErrDuplicateUser)

	bob, err := reg.Join("room", "bob", "Bob")
	require.NoError(t, err)

	_, err = reg.Join("room", "carol", "Carol")
	assert.ErrorIs(t, err, collab.ErrRoomFull)

	// Leaving frees the slot.
	_, err = reg.Leave(bob.ID)
	require.NoError(t, err)
	_, err = reg.Join("room", "dave", "Dave")
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}

func TestSessionRegistry_LeaveThenRejoin(t *testing.T) {
	reg := collab.NewSessionRegistry(1)

	s, err := reg.Join("room", "alice", "Alice")
	require.NoError(t, err)

	_, err = reg.Leave(s.ID)
	require.NoError(t, err)

	_, err = reg.Leave(s.ID)
	assert.ErrorIs(t, err, collab.ErrSessionNotFound)

	s2, err := reg.Join("room", "alice", "Alice")
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, s2.ID, "a rejoin is a new session")
	assert.Equal(t, s.Color, s2.Color, "the color follows the user, not the session")
}

func TestSessionRegistry_CleanupInactive(t *testing.T) {
	reg := collab.NewSessionRegistry(10)
	for i := 0; i < 4; i++ {
		_, err := reg.Join("room", fmt.Sprintf("user-%d", i), "")
		require.NoError(t, err)
	}

	// Nobody is stale yet.
	removed := reg.CleanupInactive(time.Minute, time.Now().UTC())
	assert.Empty(t, removed)

	// Everyone is stale two minutes from now.
	removed = reg.CleanupInactive(time.Minute, time.Now().UTC().Add(2*time.Minute))
	assert.Len(t, removed, 4)
	assert.Equal(t, 0, reg.Len())
}

func TestSessionRegistry_UpdatePresence(t *testing.T) {
	reg := collab.NewSessionRegistry(10)
	s, err := reg.Join("room", "alice", "Alice")
	require.NoError(t, err)

	cursor := &domain.CursorPosition{Line: 3, Column: 14}
	sel := &domain.SelectionRange{Start: domain.CursorPosition{Line: 3}, End: domain.CursorPosition{Line: 4}}
	update, err := reg.UpdatePresence(s.ID, cursor, sel, domain.StatusTyping)
	require.NoError(t, err)
	assert.Equal(t, "alice", update.UserID)
	assert.Equal(t, "room", update.RoomID)
	assert.Equal(t, cursor, update.Cursor)
	assert.Equal(t, domain.StatusTyping, update.Status)

	got, ok := reg.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusTyping, got.Status)
	assert.Equal(t, uint32(14), got.Cursor.Column)

	_, err = reg.UpdatePresence("missing", cursor, nil, domain.StatusActive)
	assert.ErrorIs(t, err, collab.ErrSessionNotFound)
}
