package collab

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/metrics"
)

// activityWindow is how recently a room must have seen traffic to count as
// active in the stats.
const activityWindow = 60 * time.Second

// roomEntry bundles everything the registry owns for one room. entry.mu is
// the room's exclusive-access guard: all session-table and document mutations
// for the room are serialized through it, while different rooms proceed fully
// in parallel.
type roomEntry struct {
	mu sync.Mutex

	id          string
	name        string
	ownerID     string
	partitionID string
	createdAt   time.Time

	lastActivity time.Time
	deleted      bool

	sessions *SessionRegistry
	doc      *DocumentSynchronizer
}

// RoomRegistry is the authoritative table of rooms. It is the sole owner of
// room state; every mutation of a room's sessions or document flows through
// one of its methods.
//
// Lock order: registry table lock, then a room's guard, then the session
// index lock. No method acquires them in any other order.
type RoomRegistry struct {
	cfg      Config
	balancer *PartitionBalancer
	bus      *EventBus

	mu    sync.RWMutex
	rooms map[string]*roomEntry

	sessMu      sync.RWMutex
	sessionRoom map[string]string // session id -> room id
}

// NewRoomRegistry creates an empty registry.
func NewRoomRegistry(cfg Config, balancer *PartitionBalancer, bus *EventBus) *RoomRegistry {
	if balancer == nil {
		panic("PartitionBalancer cannot be nil for RoomRegistry")
	}
	if bus == nil {
		panic("EventBus cannot be nil for RoomRegistry")
	}
	return &RoomRegistry{
		cfg:         cfg,
		balancer:    balancer,
		bus:         bus,
		rooms:       make(map[string]*roomEntry),
		sessionRoom: make(map[string]string),
	}
}

// CreateRoom registers a new room with an empty document at version 0 and
// assigns it to a partition.
func (r *RoomRegistry) CreateRoom(name, ownerID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.rooms) >= r.cfg.MaxRooms {
		return "", ErrCapacityExceeded
	}

	id := uuid.NewString()
	if _, ok := r.rooms[id]; ok {
		// Unreachable in practice with generated ids.
		return "", ErrDuplicateRoom
	}

	now := time.Now().UTC()
	entry := &roomEntry{
		id:           id,
		name:         name,
		ownerID:      ownerID,
		partitionID:  r.balancer.Assign(id),
		createdAt:    now,
		lastActivity: now,
		sessions:     NewSessionRegistry(r.cfg.MaxUsersPerRoom),
		doc:          NewDocumentSynchronizer(r.cfg.DefaultLanguage, r.cfg.SyncStrategy, r.cfg.OperationLogSize),
	}
	r.rooms[id] = entry
	r.bus.Register(id)
	metrics.RoomsOpen.Inc()

	logrus.WithFields(logrus.Fields{
		"room_id":      id,
		"owner_id":     ownerID,
		"partition_id": entry.partitionID,
	}).Info("Room created")
	return id, nil
}

// DeleteRoom removes the room and its partition membership. Remaining
// sessions are invalidated: a UserLeft event is emitted for each before the
// room's event streams are closed. The orphaned sessions are returned so the
// caller can release any per-user state it holds for them.
func (r *RoomRegistry) DeleteRoom(id string) ([]domain.UserSession, error) {
	r.mu.Lock()
	entry, ok := r.rooms[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	delete(r.rooms, id)
	r.mu.Unlock()

	// The session index and the bus are updated under the room guard so a
	// concurrent Join on the same room either completes before the delete or
	// observes entry.deleted; it can never strand an index entry.
	entry.mu.Lock()
	entry.deleted = true
	orphans := entry.sessions.Users()

	r.sessMu.Lock()
	for _, s := range orphans {
		delete(r.sessionRoom, s.ID)
	}
	r.sessMu.Unlock()

	for _, s := range orphans {
		r.bus.Publish(domain.NewUserLeft(id, s.UserID))
	}
	r.bus.CloseRoom(id)
	entry.mu.Unlock()

	r.balancer.Release(id)

	metrics.RoomsOpen.Dec()
	metrics.SessionsOpen.Sub(float64(len(orphans)))
	logrus.WithFields(logrus.Fields{
		"room_id":           id,
		"orphaned_sessions": len(orphans),
	}).Info("Room deleted")
	return orphans, nil
}

// Get returns a read-only snapshot of the room.
func (r *RoomRegistry) Get(id string) (domain.RoomView, error) {
	entry, err := r.entry(id)
	if err != nil {
		return domain.RoomView{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return domain.RoomView{}, ErrRoomNotFound
	}
	return domain.RoomView{
		ID:              entry.id,
		Name:            entry.name,
		OwnerID:         entry.ownerID,
		PartitionID:     entry.partitionID,
		CreatedAt:       entry.createdAt,
		LastActivity:    entry.lastActivity,
		UserCount:       entry.sessions.Len(),
		DocumentVersion: entry.doc.State().Version,
	}, nil
}

// Exists reports whether the room is registered.
func (r *RoomRegistry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[id]
	return ok
}

// Join adds the user to the room and emits a UserJoined event.
func (r *RoomRegistry) Join(roomID, userID, name string) (domain.UserSession, error) {
	entry, err := r.entry(roomID)
	if err != nil {
		return domain.UserSession{}, err
	}

	entry.mu.Lock()
	if entry.deleted {
		entry.mu.Unlock()
		return domain.UserSession{}, ErrRoomNotFound
	}
	session, err := entry.sessions.Join(roomID, userID, name)
	if err != nil {
		entry.mu.Unlock()
		return domain.UserSession{}, err
	}
	entry.lastActivity = time.Now().UTC()

	// Index and publish under the guard: a concurrent DeleteRoom holds the
	// same guard while sweeping the index, so this insert is either swept by
	// it or excluded from it, never stranded.
	r.sessMu.Lock()
	r.sessionRoom[session.ID] = roomID
	r.sessMu.Unlock()

	r.bus.Publish(domain.NewUserJoined(roomID, session))
	entry.mu.Unlock()

	metrics.SessionsOpen.Inc()

	logrus.WithFields(logrus.Fields{
		"room_id":    roomID,
		"user_id":    userID,
		"session_id": session.ID,
	}).Info("User joined room")
	return session, nil
}

// Leave removes the session and emits a UserLeft event. A second call with
// the same id fails with ErrSessionNotFound.
func (r *RoomRegistry) Leave(sessionID string) error {
	roomID, err := r.roomOf(sessionID)
	if err != nil {
		return err
	}
	entry, err := r.entry(roomID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	session, err := entry.sessions.Leave(sessionID)
	if err != nil {
		entry.mu.Unlock()
		return err
	}
	entry.lastActivity = time.Now().UTC()

	r.sessMu.Lock()
	delete(r.sessionRoom, sessionID)
	r.sessMu.Unlock()

	r.bus.Publish(domain.NewUserLeft(roomID, session.UserID))
	entry.mu.Unlock()

	metrics.SessionsOpen.Dec()

	logrus.WithFields(logrus.Fields{
		"room_id":    roomID,
		"user_id":    session.UserID,
		"session_id": sessionID,
	}).Info("User left room")
	return nil
}

// SessionInfo resolves a session id to its (room, user) pair.
func (r *RoomRegistry) SessionInfo(sessionID string) (roomID, userID string, err error) {
	roomID, err = r.roomOf(sessionID)
	if err != nil {
		return "", "", err
	}
	entry, err := r.entry(roomID)
	if err != nil {
		return "", "", err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	session, ok := entry.sessions.Get(sessionID)
	if !ok {
		return "", "", ErrSessionNotFound
	}
	return roomID, session.UserID, nil
}

// Touch refreshes the session's and room's last-activity times. Used by the
// transport heartbeat.
func (r *RoomRegistry) Touch(sessionID string) error {
	roomID, err := r.roomOf(sessionID)
	if err != nil {
		return err
	}
	entry, err := r.entry(roomID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.sessions.Touch(sessionID) {
		return ErrSessionNotFound
	}
	entry.lastActivity = time.Now().UTC()
	return nil
}

// UpdatePresence records the session's new presence fields under the room
// guard and returns the update for delivery. It never touches the document.
func (r *RoomRegistry) UpdatePresence(sessionID string, cursor *domain.CursorPosition, selection *domain.SelectionRange, status domain.UserStatus) (domain.PresenceUpdate, error) {
	roomID, err := r.roomOf(sessionID)
	if err != nil {
		return domain.PresenceUpdate{}, err
	}
	entry, err := r.entry(roomID)
	if err != nil {
		return domain.PresenceUpdate{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return domain.PresenceUpdate{}, ErrSessionNotFound
	}
	update, err := entry.sessions.UpdatePresence(sessionID, cursor, selection, status)
	if err != nil {
		return domain.PresenceUpdate{}, err
	}
	entry.lastActivity = update.Timestamp
	return update, nil
}

// ApplyOperation applies one document operation under the room guard, emits
// a DocumentUpdate event and returns the new document state plus the log
// entry. A failed apply has no partial effect.
func (r *RoomRegistry) ApplyOperation(sessionID string, op domain.DocumentOperation) (domain.DocumentState, domain.OperationLogEntry, error) {
	roomID, err := r.roomOf(sessionID)
	if err != nil {
		return domain.DocumentState{}, domain.OperationLogEntry{}, err
	}
	entry, err := r.entry(roomID)
	if err != nil {
		return domain.DocumentState{}, domain.OperationLogEntry{}, err
	}

	entry.mu.Lock()
	if entry.deleted {
		entry.mu.Unlock()
		return domain.DocumentState{}, domain.OperationLogEntry{}, ErrRoomNotFound
	}
	if !entry.sessions.Touch(sessionID) {
		entry.mu.Unlock()
		return domain.DocumentState{}, domain.OperationLogEntry{}, ErrSessionNotFound
	}
	state, logEntry, err := entry.doc.Apply(op)
	if err != nil {
		entry.mu.Unlock()
		return domain.DocumentState{}, domain.OperationLogEntry{}, err
	}
	entry.lastActivity = time.Now().UTC()

	// Published under the guard: subscribers see DocumentUpdate events in the
	// same order the document applied them.
	r.bus.Publish(domain.NewDocumentUpdate(roomID, op))
	entry.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"room_id":    roomID,
		"session_id": sessionID,
		"version":    state.Version,
		"op_type":    op.Type,
	}).Debug("Operation applied")
	return state, logEntry, nil
}

// GetDocument returns a snapshot of the room's document.
func (r *RoomRegistry) GetDocument(roomID string) (domain.DocumentState, error) {
	entry, err := r.entry(roomID)
	if err != nil {
		return domain.DocumentState{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return domain.DocumentState{}, ErrRoomNotFound
	}
	return entry.doc.State(), nil
}

// OperationLog returns a copy of the room's retained operation log.
func (r *RoomRegistry) OperationLog(roomID string) ([]domain.OperationLogEntry, error) {
	entry, err := r.entry(roomID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return nil, ErrRoomNotFound
	}
	return entry.doc.Log(), nil
}

// GetRoomUsers returns copies of the room's active sessions.
func (r *RoomRegistry) GetRoomUsers(roomID string) ([]domain.UserSession, error) {
	entry, err := r.entry(roomID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return nil, ErrRoomNotFound
	}
	return entry.sessions.Users(), nil
}

// Stats aggregates counters across all rooms.
func (r *RoomRegistry) Stats() domain.CollabStats {
	now := time.Now().UTC()

	r.mu.RLock()
	entries := make([]*roomEntry, 0, len(r.rooms))
	for _, e := range r.rooms {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	stats := domain.CollabStats{
		TotalRooms:      len(entries),
		MaxUsersPerRoom: r.cfg.MaxUsersPerRoom,
	}
	for _, e := range entries {
		e.mu.Lock()
		stats.TotalUsers += e.sessions.Len()
		if now.Sub(e.lastActivity) <= activityWindow {
			stats.ActiveRooms++
		}
		e.mu.Unlock()
	}

	r.sessMu.RLock()
	stats.TotalSessions = len(r.sessionRoom)
	r.sessMu.RUnlock()
	return stats
}

// CleanupInactiveSessions removes sessions idle beyond timeout across all
// rooms, emitting UserLeft for each. The removed sessions are returned so the
// caller can release per-user state it holds for them. Runs on the background
// sweep, never on the request path.
func (r *RoomRegistry) CleanupInactiveSessions(timeout time.Duration) []domain.UserSession {
	now := time.Now().UTC()

	r.mu.RLock()
	entries := make([]*roomEntry, 0, len(r.rooms))
	for _, e := range r.rooms {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var reaped []domain.UserSession
	for _, e := range entries {
		e.mu.Lock()
		removed := e.sessions.CleanupInactive(timeout, now)
		if len(removed) > 0 {
			r.sessMu.Lock()
			for _, s := range removed {
				delete(r.sessionRoom, s.ID)
			}
			r.sessMu.Unlock()

			for _, s := range removed {
				r.bus.Publish(domain.NewUserLeft(e.id, s.UserID))
			}
		}
		e.mu.Unlock()
		reaped = append(reaped, removed...)
	}
	if len(reaped) > 0 {
		metrics.SessionsOpen.Sub(float64(len(reaped)))
		metrics.SessionsReaped.Add(float64(len(reaped)))
		logrus.WithField("count", len(reaped)).Info("Reaped inactive sessions")
	}
	return reaped
}

// ReapIdleRooms deletes rooms whose last activity exceeds the threshold.
// Deletion goes through the same guarded path as foreground deletes; the
// sessions orphaned by it are returned alongside the number of rooms reaped.
func (r *RoomRegistry) ReapIdleRooms(idleTimeout time.Duration) ([]domain.UserSession, int) {
	now := time.Now().UTC()

	r.mu.RLock()
	var idle []string
	for id, e := range r.rooms {
		e.mu.Lock()
		if now.Sub(e.lastActivity) > idleTimeout {
			idle = append(idle, id)
		}
		e.mu.Unlock()
	}
	r.mu.RUnlock()

	var orphans []domain.UserSession
	reaped := 0
	for _, id := range idle {
		if removed, err := r.DeleteRoom(id); err == nil {
			orphans = append(orphans, removed...)
			reaped++
		}
	}
	if reaped > 0 {
		metrics.RoomsReaped.Add(float64(reaped))
		logrus.WithField("count", reaped).Info("Reaped idle rooms")
	}
	return orphans, reaped
}

// Len returns the number of registered rooms.
func (r *RoomRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *RoomRegistry) entry(roomID string) (*roomEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return entry, nil
}

func (r *RoomRegistry) roomOf(sessionID string) (string, error) {
	r.sessMu.RLock()
	defer r.sessMu.RUnlock()
	roomID, ok := r.sessionRoom[sessionID]
	if !ok {
		return "", ErrSessionNotFound
	}
	return roomID, nil
}
