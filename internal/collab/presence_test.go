package collab_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaborative-editor/internal/collab"
	"collaborative-editor/internal/domain"
)

func cursorAt(line, col uint32) *domain.CursorPosition {
	return &domain.CursorPosition{Line: line, Column: col}
}

func presenceAt(room, user string, line uint32) domain.PresenceUpdate {
	return domain.PresenceUpdate{
		RoomID: room,
		UserID: user,
		Cursor: cursorAt(line, 0),
		Status: domain.StatusActive,
	}
}

func TestPresenceBuffer_ThrottledCoalescesToLatest(t *testing.T) {
	bus := collab.NewEventBus(100)
	bus.Register("room")
	s, err := bus.Subscribe("room")
	require.NoError(t, err)

	buf := collab.NewPresenceBuffer(collab.PresenceThrottled, bus)
	for i := 0; i < 100; i++ {
		buf.Record(presenceAt("room", "alice", uint32(i)))
	}

	assert.Equal(t, 1, buf.Flush(), "one flush per user regardless of burst size")

	ev := recvEvent(t, s.Events())
	require.Equal(t, domain.EventPresence, ev.Type)
	update := ev.Data.(domain.PresencePayload).Update
	assert.Equal(t, uint32(99), update.Cursor.Line, "only the most recent update survives")

	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected extra event: %+v", ev)
	default:
	}
}

func TestPresenceBuffer_ThrottledKeepsUsersSeparate(t *testing.T) {
	bus := collab.NewEventBus(100)
	bus.Register("room")
	s, err := bus.Subscribe("room")
	require.NoError(t, err)

	buf := collab.NewPresenceBuffer(collab.PresenceThrottled, bus)
	for i := 0; i < 10; i++ {
		buf.Record(presenceAt("room", fmt.Sprintf("user-%d", i%3), uint32(i)))
	}

	assert.Equal(t, 3, buf.Flush())
	users := make(map[string]struct{})
	for i := 0; i < 3; i++ {
		ev := recvEvent(t, s.Events())
		users[ev.Data.(domain.PresencePayload).Update.UserID] = struct{}{}
	}
	assert.Len(t, users, 3)
}

func TestPresenceBuffer_FlushEmptyIsZero(t *testing.T) {
	bus := collab.NewEventBus(10)
	buf := collab.NewPresenceBuffer(collab.PresenceThrottled, bus)
	assert.Equal(t, 0, buf.Flush())
}

func TestPresenceBuffer_RealTimeBypassesBuffer(t *testing.T) {
	bus := collab.NewEventBus(10)
	bus.Register("room")
	s, err := bus.Subscribe("room")
	require.NoError(t, err)

	buf := collab.NewPresenceBuffer(collab.PresenceRealTime, bus)
	buf.Record(presenceAt("room", "alice", 7))

	ev := recvEvent(t, s.Events())
	assert.Equal(t, uint32(7), ev.Data.(domain.PresencePayload).Update.Cursor.Line)
	assert.Equal(t, 0, buf.Flush(), "real-time mode leaves nothing pending")
}

func TestPresenceBuffer_DeltaOmitsUnchangedFields(t *testing.T) {
	bus := collab.NewEventBus(10)
	bus.Register("room")
	s, err := bus.Subscribe("room")
	require.NoError(t, err)

	buf := collab.NewPresenceBuffer(collab.PresenceDeltaOnly, bus)

	first := presenceAt("room", "alice", 1)
	buf.Record(first)
	ev := recvEvent(t, s.Events())
	assert.NotNil(t, ev.Data.(domain.PresencePayload).Update.Cursor, "first update is delivered whole")

	// Same cursor again: the delta carries no cursor.
	buf.Record(presenceAt("room", "alice", 1))
	ev = recvEvent(t, s.Events())
	assert.Nil(t, ev.Data.(domain.PresencePayload).Update.Cursor)

	// A moved cursor is delivered again.
	buf.Record(presenceAt("room", "alice", 2))
	ev = recvEvent(t, s.Events())
	require.NotNil(t, ev.Data.(domain.PresencePayload).Update.Cursor)
	assert.Equal(t, uint32(2), ev.Data.(domain.PresencePayload).Update.Cursor.Line)
}

func TestPresenceBuffer_ForgetDropsPendingState(t *testing.T) {
	bus := collab.NewEventBus(10)
	bus.Register("room")

	buf := collab.NewPresenceBuffer(collab.PresenceThrottled, bus)
	buf.Record(presenceAt("room", "alice", 1))
	buf.Forget("room", "alice")

	assert.Equal(t, 0, buf.Flush(), "forgotten users have nothing pending")
}
