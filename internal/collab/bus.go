package collab

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/metrics"
)

// EventStream is one subscriber's lazy view of a room's events. Multiple
// independent streams may exist per room (one per connected transport).
type EventStream struct {
	ch     chan domain.RoomEvent
	bus    *EventBus
	roomID string
}

// Events returns the receive channel. The channel is closed when the stream
// is closed or its room is deleted.
func (s *EventStream) Events() <-chan domain.RoomEvent { return s.ch }

// Close detaches the stream from the bus and closes its channel. Safe to call
// more than once.
func (s *EventStream) Close() {
	s.bus.unsubscribe(s)
}

// EventBus fans room events out to every current subscriber of the room.
//
// Backpressure policy: each subscriber owns a bounded buffer. Publish is
// non-blocking; when a subscriber's buffer is full the event is dropped for
// that subscriber (drop-newest) so a stalled consumer can never slow a
// publisher. A slow subscriber may therefore miss events.
type EventBus struct {
	mu       sync.RWMutex
	capacity int
	rooms    map[string]map[*EventStream]struct{}
	dropped  atomic.Uint64
}

// NewEventBus creates a bus whose subscriber buffers hold capacity events.
func NewEventBus(capacity int) *EventBus {
	if capacity <= 0 {
		panic("event buffer capacity must be positive")
	}
	return &EventBus{
		capacity: capacity,
		rooms:    make(map[string]map[*EventStream]struct{}),
	}
}

// Register creates the room's topic. Called by the room registry when a room
// is created.
func (b *EventBus) Register(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.rooms[roomID]; !ok {
		b.rooms[roomID] = make(map[*EventStream]struct{})
	}
}

// Subscribe attaches a new stream to the room's topic.
func (b *EventBus) Subscribe(roomID string) (*EventStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	s := &EventStream{
		ch:     make(chan domain.RoomEvent, b.capacity),
		bus:    b,
		roomID: roomID,
	}
	subs[s] = struct{}{}
	return s, nil
}

// Publish delivers the event to every subscriber of its room. Never blocks.
// Events enter each buffer in publish order; concurrent publishers that need
// their events ordered relative to each other must serialize their calls, as
// the room registry does by publishing under the room guard.
func (b *EventBus) Publish(ev domain.RoomEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs, ok := b.rooms[ev.RoomID]
	if !ok {
		return
	}
	for s := range subs {
		select {
		case s.ch <- ev:
			metrics.EventsPublished.Inc()
		default:
			b.dropped.Add(1)
			metrics.EventsDropped.Inc()
			logrus.WithFields(logrus.Fields{
				"room_id":    ev.RoomID,
				"event_type": ev.Type,
			}).Warn("Subscriber buffer full, dropping event")
		}
	}
}

// CloseRoom closes every stream of the room and removes its topic.
func (b *EventBus) CloseRoom(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.rooms[roomID]
	if !ok {
		return
	}
	delete(b.rooms, roomID)
	for s := range subs {
		close(s.ch)
	}
}

// Dropped returns the total number of events dropped due to full buffers.
func (b *EventBus) Dropped() uint64 { return b.dropped.Load() }

func (b *EventBus) unsubscribe(s *EventStream) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.rooms[s.roomID]; ok {
		if _, attached := subs[s]; attached {
			delete(subs, s)
			close(s.ch)
		}
	}
}
