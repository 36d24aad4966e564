package collab_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaborative-editor/internal/collab"
	"collaborative-editor/internal/domain"
)

func recvEvent(t *testing.T, ch <-chan domain.RoomEvent) domain.RoomEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "stream closed while waiting for event")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.RoomEvent{}
	}
}

func TestEventBus_SubscribeUnknownRoom(t *testing.T) {
	bus := collab.NewEventBus(10)
	_, err := bus.Subscribe("nope")
	assert.ErrorIs(t, err, collab.ErrRoomNotFound)
}

func TestEventBus_FanOut(t *testing.T) {
	bus := collab.NewEventBus(10)
	bus.Register("room")

	s1, err := bus.Subscribe("room")
	require.NoError(t, err)
	s2, err := bus.Subscribe("room")
	require.NoError(t, err)

	bus.Publish(domain.NewChat("room", "alice", "hi"))

	for _, s := range []*collab.EventStream{s1, s2} {
		ev := recvEvent(t, s.Events())
		assert.Equal(t, domain.EventChat, ev.Type)
		assert.Equal(t, "room", ev.RoomID)
	}
}

func TestEventBus_DropsNewestWhenFull(t *testing.T) {
	bus := collab.NewEventBus(1)
	bus.Register("room")

	s, err := bus.Subscribe("room")
	require.NoError(t, err)

	bus.Publish(domain.NewChat("room", "alice", "first"))
	bus.Publish(domain.NewChat("room", "alice", "second"))

	assert.Equal(t, uint64(1), bus.Dropped())
	ev := recvEvent(t, s.Events())
	assert.Equal(t, "first", ev.Data.(domain.ChatPayload).Message, "the buffered event survives, the overflow is dropped")
}

func TestEventBus_PublishDoesNotCrossRooms(t *testing.T) {
	bus := collab.NewEventBus(10)
	bus.Register("a")
	bus.Register("b")

	sa, err := bus.Subscribe("a")
	require.NoError(t, err)
	sb, err := bus.Subscribe("b")
	require.NoError(t, err)

	bus.Publish(domain.NewChat("a", "alice", "hi"))

	recvEvent(t, sa.Events())
	select {
	case ev := <-sb.Events():
		t.Fatalf("room b received foreign event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_CloseRoomClosesStreams(t *testing.T) {
	bus := collab.NewEventBus(10)
	bus.Register("room")

	s, err := bus.Subscribe("room")
	require.NoError(t, err)

	bus.CloseRoom("room")

	_, ok := <-s.Events()
	assert.False(t, ok, "stream channel must be closed")

	// Publishing into a closed room is a no-op.
	bus.Publish(domain.NewChat("room", "alice", "hi"))
}

func TestEventBus_StreamCloseIsIdempotent(t *testing.T) {
	bus := collab.NewEventBus(10)
	bus.Register("room")

	s, err := bus.Subscribe("room")
	require.NoError(t, err)

	s.Close()
	s.Close()

	bus.Publish(domain.NewChat("room", "alice", "hi"))
	_, ok := <-s.Events()
	assert.False(t, ok)
}

func TestEventBus_CloseRoomThenStreamClose(t *testing.T) {
	bus := collab.NewEventBus(10)
	bus.Register("room")

	s, err := bus.Subscribe("room")
	require.NoError(t, err)

	bus.CloseRoom("room")
	// The stream no longer belongs to a topic; closing it again must not
	// double-close the channel.
	s.Close()
}
