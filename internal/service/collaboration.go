package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/collab"
	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/metrics"
)

// ErrInvalidInput rejects malformed request parameters before they reach the
// core (empty room name, empty user id, blank chat message).
var ErrInvalidInput = errors.New("service: invalid input")

// OperationArchiver receives successfully applied operations for background
// archival. Enqueueing must be cheap; it runs on the apply path.
type OperationArchiver interface {
	ArchiveOperation(ctx context.Context, roomID string, entry domain.OperationLogEntry) error
}

// CollaborationService is the public façade over the collaboration core. It
// is the only component external collaborators call: each method validates
// inputs, runs admission control and delegates to the room registry.
type CollaborationService struct {
	cfg      collab.Config
	bus      *collab.EventBus
	rooms    *collab.RoomRegistry
	presence *collab.PresenceBuffer

	// Independent budgets: presence never consumes an operation token.
	opLimiter       *collab.RateLimiter
	presenceLimiter *collab.RateLimiter

	// archiver is optional; nil disables archival.
	archiver OperationArchiver

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewCollaborationService wires the core components together. archiver may be
// nil when operation archival is disabled.
func NewCollaborationService(cfg collab.Config, archiver OperationArchiver) *CollaborationService {
	bus := collab.NewEventBus(cfg.EventBufferSize)
	balancer := collab.NewPartitionBalancer(cfg.MaxRoomsPerPartition)
	return &CollaborationService{
		cfg:             cfg,
		bus:             bus,
		rooms:           collab.NewRoomRegistry(cfg, balancer, bus),
		presence:        collab.NewPresenceBuffer(cfg.PresenceMode, bus),
		opLimiter:       collab.NewRateLimiter(cfg.MaxOpsPerSecond, time.Second),
		presenceLimiter: collab.NewRateLimiter(cfg.MaxPresencePerSecond, time.Second),
		archiver:        archiver,
		stopCh:          make(chan struct{}),
	}
}

// Start launches the background loops: the presence flush ticker and the
// idle-session/idle-room sweep. Both are independent of the request path.
func (s *CollaborationService) Start() {
	s.wg.Add(2)

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.PresenceFlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.presence.Flush()
			case <-s.stopCh:
				return
			}
		}
	}()

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.ReapInactive()
				s.opLimiter.Prune()
				s.presenceLimiter.Prune()
			case <-s.stopCh:
				return
			}
		}
	}()

	logrus.WithFields(logrus.Fields{
		"presence_flush": s.cfg.PresenceFlushInterval,
		"sweep_interval": s.cfg.HeartbeatInterval,
	}).Info("Collaboration service started")
}

// Stop halts the background loops. Safe to call more than once.
func (s *CollaborationService) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// CreateRoom registers a new room and returns its id.
func (s *CollaborationService) CreateRoom(ctx context.Context, name, ownerID string) (string, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(ownerID) == "" {
		return "", ErrInvalidInput
	}
	return s.rooms.CreateRoom(name, ownerID)
}

// DeleteRoom removes the room, invalidating all of its sessions and dropping
// any presence state buffered for them.
func (s *CollaborationService) DeleteRoom(ctx context.Context, roomID string) error {
	orphans, err := s.rooms.DeleteRoom(roomID)
	if err != nil {
		return err
	}
	for _, sess := range orphans {
		s.presence.Forget(roomID, sess.UserID)
	}
	return nil
}

// GetRoom returns a read-only snapshot of the room.
func (s *CollaborationService) GetRoom(ctx context.Context, roomID string) (domain.RoomView, error) {
	return s.rooms.Get(roomID)
}

// JoinRoom creates a session for the user in the room.
func (s *CollaborationService) JoinRoom(ctx context.Context, roomID, userID, name string) (domain.UserSession, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.UserSession{}, ErrInvalidInput
	}
	if name == "" {
		name = userID
	}
	return s.rooms.Join(roomID, userID, name)
}

// LeaveRoom removes the session. Calling it again with the same id fails
// with ErrSessionNotFound.
func (s *CollaborationService) LeaveRoom(ctx context.Context, sessionID string) error {
	roomID, userID, err := s.rooms.SessionInfo(sessionID)
	if err != nil {
		return err
	}
	if err := s.rooms.Leave(sessionID); err != nil {
		return err
	}
	s.presence.Forget(roomID, userID)
	return nil
}

// UpdatePresence records the session's cursor/selection/status. Delivery
// follows the configured presence mode. Presence draws from its own rate
// budget, independent of document operations.
func (s *CollaborationService) UpdatePresence(ctx context.Context, sessionID string, cursor *domain.CursorPosition, selection *domain.SelectionRange, status domain.UserStatus) error {
	roomID, userID, err := s.rooms.SessionInfo(sessionID)
	if err != nil {
		return err
	}
	if !s.presenceLimiter.Allow(roomID, userID) {
		return collab.ErrRateLimited
	}

	update, err := s.rooms.UpdatePresence(sessionID, cursor, selection, status)
	if err != nil {
		return err
	}
	s.presence.Record(update)
	return nil
}

// ApplyOperation runs the admission check and applies one document operation.
// A rejected operation has no effect: no version bump, no event.
func (s *CollaborationService) ApplyOperation(ctx context.Context, sessionID string, op domain.DocumentOperation) (domain.DocumentState, error) {
	roomID, userID, err := s.rooms.SessionInfo(sessionID)
	if err != nil {
		metrics.OperationsRejected.WithLabelValues("not_found").Inc()
		return domain.DocumentState{}, err
	}
	if !s.opLimiter.Allow(roomID, userID) {
		metrics.OperationsRejected.WithLabelValues("rate_limited").Inc()
		return domain.DocumentState{}, collab.ErrRateLimited
	}

	op.UserID = userID
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = time.Now().UTC()
	}

	state, logEntry, err := s.rooms.ApplyOperation(sessionID, op)
	if err != nil {
		metrics.OperationsRejected.WithLabelValues(rejectReason(err)).Inc()
		return domain.DocumentState{}, err
	}
	metrics.OperationsApplied.Inc()

	if s.archiver != nil {
		if err := s.archiver.ArchiveOperation(ctx, roomID, logEntry); err != nil {
			// Archival is best-effort; the apply already succeeded.
			logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to enqueue operation for archival")
		}
	}
	return state, nil
}

// SendChat broadcasts a chat message to the session's room.
func (s *CollaborationService) SendChat(ctx context.Context, sessionID, message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrInvalidInput
	}
	roomID, userID, err := s.rooms.SessionInfo(sessionID)
	if err != nil {
		return err
	}
	if err := s.rooms.Touch(sessionID); err != nil {
		return err
	}
	s.bus.Publish(domain.NewChat(roomID, userID, message))
	return nil
}

// TouchSession refreshes the session's activity clock, used by transport
// heartbeats.
func (s *CollaborationService) TouchSession(ctx context.Context, sessionID string) error {
	return s.rooms.Touch(sessionID)
}

// GetRoomUsers returns the room's active sessions.
func (s *CollaborationService) GetRoomUsers(ctx context.Context, roomID string) ([]domain.UserSession, error) {
	return s.rooms.GetRoomUsers(roomID)
}

// GetDocument returns a snapshot of the room's document.
func (s *CollaborationService) GetDocument(ctx context.Context, roomID string) (domain.DocumentState, error) {
	return s.rooms.GetDocument(roomID)
}

// GetOperationLog returns the room's retained audit log, oldest first.
func (s *CollaborationService) GetOperationLog(ctx context.Context, roomID string) ([]domain.OperationLogEntry, error) {
	return s.rooms.OperationLog(roomID)
}

// Subscribe attaches a new event stream to the room.
func (s *CollaborationService) Subscribe(ctx context.Context, roomID string) (*collab.EventStream, error) {
	return s.bus.Subscribe(roomID)
}

// Stats returns the aggregate counters.
func (s *CollaborationService) Stats(ctx context.Context) domain.CollabStats {
	return s.rooms.Stats()
}

// FlushPresence forces an immediate flush of the throttled presence buffer.
// Exposed for the transport layer and tests; the periodic flusher normally
// handles this.
func (s *CollaborationService) FlushPresence() int {
	return s.presence.Flush()
}

// ReapInactive runs one sweep of idle sessions and idle rooms, dropping the
// buffered presence state of everything it removes. The background loop calls
// it each heartbeat; exposed so operators and tests can force a sweep.
func (s *CollaborationService) ReapInactive() {
	for _, sess := range s.rooms.CleanupInactiveSessions(s.cfg.UserTimeout) {
		s.presence.Forget(sess.RoomID, sess.UserID)
	}
	orphans, _ := s.rooms.ReapIdleRooms(s.cfg.RoomIdleTimeout)
	for _, sess := range orphans {
		s.presence.Forget(sess.RoomID, sess.UserID)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, collab.ErrInvalidOperation):
		return "invalid_range"
	case errors.Is(err, collab.ErrRoomNotFound), errors.Is(err, collab.ErrSessionNotFound):
		return "not_found"
	default:
		return "other"
	}
}
