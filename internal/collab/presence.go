package collab

import (
	"sync"

	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/metrics"
)

// PresenceBuffer delivers cursor/selection/status updates without flooding
// subscribers. Buffering uses its own lock, separate from the document path,
// so presence bursts cannot starve edits.
type PresenceBuffer struct {
	mu   sync.Mutex
	mode PresenceMode
	bus  *EventBus

	// pending holds the most recent update per (room, user), awaiting flush.
	pending map[string]domain.PresenceUpdate
	// lastSent tracks the previously delivered update per (room, user) for
	// delta mode.
	lastSent map[string]domain.PresenceUpdate
}

// NewPresenceBuffer creates a buffer delivering through the given bus.
func NewPresenceBuffer(mode PresenceMode, bus *EventBus) *PresenceBuffer {
	if bus == nil {
		panic("EventBus cannot be nil for PresenceBuffer")
	}
	return &PresenceBuffer{
		mode:     mode,
		bus:      bus,
		pending:  make(map[string]domain.PresenceUpdate),
		lastSent: make(map[string]domain.PresenceUpdate),
	}
}

// Record accepts one presence update. Depending on the mode it is published
// immediately or coalesced into the next flush.
func (p *PresenceBuffer) Record(update domain.PresenceUpdate) {
	key := update.RoomID + "/" + update.UserID

	switch p.mode {
	case PresenceRealTime:
		p.bus.Publish(domain.NewPresence(update))

	case PresenceDeltaOnly:
		p.mu.Lock()
		delta := p.deltaLocked(key, update)
		p.lastSent[key] = update
		p.mu.Unlock()
		p.bus.Publish(domain.NewPresence(delta))

	default: // PresenceThrottled and anything unrecognized
		p.mu.Lock()
		p.pending[key] = update
		p.mu.Unlock()
	}
}

// Flush drains the buffer, keeping only the most recent update per user, and
// publishes one event per distinct user. Returns the number published.
func (p *PresenceBuffer) Flush() int {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return 0
	}
	drained := p.pending
	p.pending = make(map[string]domain.PresenceUpdate)
	p.mu.Unlock()

	for _, update := range drained {
		p.bus.Publish(domain.NewPresence(update))
	}
	metrics.PresenceFlushed.Add(float64(len(drained)))
	logrus.WithField("count", len(drained)).Debug("Flushed presence buffer")
	return len(drained)
}

// Forget drops the coalescing state for a (room, user) pair, called when a
// session ends so stale state is not replayed against a future session.
func (p *PresenceBuffer) Forget(roomID, userID string) {
	key := roomID + "/" + userID
	p.mu.Lock()
	delete(p.pending, key)
	delete(p.lastSent, key)
	p.mu.Unlock()
}

// deltaLocked nils out fields unchanged since the last delivered update.
func (p *PresenceBuffer) deltaLocked(key string, update domain.PresenceUpdate) domain.PresenceUpdate {
	prev, ok := p.lastSent[key]
	if !ok {
		return update
	}
	delta := update
	if prev.Cursor != nil && update.Cursor != nil && *prev.Cursor == *update.Cursor {
		delta.Cursor = nil
	}
	if prev.Selection != nil && update.Selection != nil && *prev.Selection == *update.Selection {
		delta.Selection = nil
	}
	return delta
}
