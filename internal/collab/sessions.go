package collab

import (
	"time"

	"github.com/google/uuid"

	"collaborative-editor/internal/domain"
)

// SessionRegistry tracks the connected sessions of one room. Like the
// document synchronizer it carries no lock of its own; the owning room's
// guard serializes access.
type SessionRegistry struct {
	maxUsers int
	sessions map[string]*domain.UserSession // session id -> session
	byUser   map[string]string              // user id -> session id
}

// NewSessionRegistry creates an empty registry capped at maxUsers sessions.
func NewSessionRegistry(maxUsers int) *SessionRegistry {
	return &SessionRegistry{
		maxUsers: maxUsers,
		sessions: make(map[string]*domain.UserSession),
		byUser:   make(map[string]string),
	}
}

// Join creates a session for the user. The display color is derived from the
// user id, so it is stable across reconnects.
func (r *SessionRegistry) Join(roomID, userID, name string) (domain.UserSession, error) {
	if len(r.sessions) >= r.maxUsers {
		return domain.UserSession{}, ErrRoomFull
	}
	if _, ok := r.byUser[userID]; ok {
		return domain.UserSession{}, ErrDuplicateUser
	}

	now := time.Now().UTC()
	s := &domain.UserSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		RoomID:       roomID,
		Name:         name,
		Color:        ColorFor(userID),
		ConnectedAt:  now,
		LastActivity: now,
		Status:       domain.StatusActive,
	}
	r.sessions[s.ID] = s
	r.byUser[userID] = s.ID
	return *s, nil
}

// Leave removes the session.
func (r *SessionRegistry) Leave(sessionID string) (domain.UserSession, error) {
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.UserSession{}, ErrSessionNotFound
	}
	delete(r.sessions, sessionID)
	delete(r.byUser, s.UserID)
	return *s, nil
}

// Touch refreshes the session's last-activity time.
func (r *SessionRegistry) Touch(sessionID string) bool {
	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	s.LastActivity = time.Now().UTC()
	return true
}

// UpdatePresence records the session's new cursor/selection/status and
// returns the matching presence update.
func (r *SessionRegistry) UpdatePresence(sessionID string, cursor *domain.CursorPosition, selection *domain.SelectionRange, status domain.UserStatus) (domain.PresenceUpdate, error) {
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.PresenceUpdate{}, ErrSessionNotFound
	}

	now := time.Now().UTC()
	s.Cursor = cursor
	s.Selection = selection
	s.Status = status
	s.LastActivity = now

	return domain.PresenceUpdate{
		UserID:    s.UserID,
		RoomID:    s.RoomID,
		Cursor:    cursor,
		Selection: selection,
		Status:    status,
		Timestamp: now,
	}, nil
}

// CleanupInactive removes sessions idle longer than timeout and returns them.
func (r *SessionRegistry) CleanupInactive(timeout time.Duration, now time.Time) []domain.UserSession {
	var removed []domain.UserSession
	for id, s := range r.sessions {
		if now.Sub(s.LastActivity) > timeout {
			removed = append(removed, *s)
			delete(r.sessions, id)
			delete(r.byUser, s.UserID)
		}
	}
	return removed
}

// Get returns a copy of the session.
func (r *SessionRegistry) Get(sessionID string) (domain.UserSession, bool) {
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.UserSession{}, false
	}
	return *s, true
}

// Users returns copies of all sessions in the room.
func (r *SessionRegistry) Users() []domain.UserSession {
	out := make([]domain.UserSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out
}

// Len returns the number of active sessions.
func (r *SessionRegistry) Len() int { return len(r.sessions) }

// IDs returns the ids of all active sessions.
func (r *SessionRegistry) IDs() []string {
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}
