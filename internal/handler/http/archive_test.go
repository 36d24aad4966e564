package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaborative-editor/internal/domain"
	httphandler "collaborative-editor/internal/handler/http"
)

// memoryOplogRepo backs the handler with an in-memory archive.
type memoryOplogRepo struct {
	ops []domain.ArchivedOperation
}

func (r *memoryOplogRepo) SaveBatch(_ context.Context, ops []domain.ArchivedOperation) error {
	r.ops = append(r.ops, ops...)
	return nil
}

func (r *memoryOplogRepo) CountSince(_ context.Context, roomID string, since time.Time) (int64, error) {
	var n int64
	for _, op := range r.ops {
		if op.RoomID == roomID && op.AppliedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (r *memoryOplogRepo) ListByRoom(_ context.Context, roomID string, limit int) ([]domain.ArchivedOperation, error) {
	var out []domain.ArchivedOperation
	for _, op := range r.ops {
		if op.RoomID == roomID && len(out) < limit {
			out = append(out, op)
		}
	}
	return out, nil
}

func newArchiveRouter(repo *memoryOplogRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/rooms/:roomId/archive", httphandler.NewArchiveHandler(repo).GetArchive)
	return router
}

func TestGetArchive_ReturnsRoomOperations(t *testing.T) {
	now := time.Now().UTC()
	repo := &memoryOplogRepo{ops: []domain.ArchivedOperation{
		{RoomID: "room-1", OperationID: "op-1", UserID: "alice", ResultingVersion: 1, AppliedAt: now},
		{RoomID: "room-1", OperationID: "op-2", UserID: "bob", ResultingVersion: 2, AppliedAt: now},
		{RoomID: "room-2", OperationID: "op-3", UserID: "carol", ResultingVersion: 1, AppliedAt: now},
	}}
	router := newArchiveRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rooms/room-1/archive", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Operations []domain.ArchivedOperation `json:"operations"`
		Total      int64                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Operations, 2, "only room-1's operations")
	assert.Equal(t, "op-1", body.Operations[0].OperationID)
	assert.Equal(t, "op-2", body.Operations[1].OperationID)
	assert.Equal(t, int64(2), body.Total)
}

func TestGetArchive_HonorsLimit(t *testing.T) {
	now := time.Now().UTC()
	repo := &memoryOplogRepo{ops: []domain.ArchivedOperation{
		{RoomID: "room-1", OperationID: "op-1", ResultingVersion: 1, AppliedAt: now},
		{RoomID: "room-1", OperationID: "op-2", ResultingVersion: 2, AppliedAt: now},
		{RoomID: "room-1", OperationID: "op-3", ResultingVersion: 3, AppliedAt: now},
	}}
	router := newArchiveRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rooms/room-1/archive?limit=2", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Operations []domain.ArchivedOperation `json:"operations"`
		Total      int64                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Operations, 2)
	assert.Equal(t, int64(3), body.Total, "the total still counts everything archived")
}

func TestGetArchive_RejectsBadLimit(t *testing.T) {
	router := newArchiveRouter(&memoryOplogRepo{})

	for _, limit := range []string{"0", "-5", "many"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/rooms/room-1/archive?limit="+limit, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit %q", limit)
	}
}

func TestGetArchive_EmptyRoom(t *testing.T) {
	router := newArchiveRouter(&memoryOplogRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rooms/room-9/archive", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Operations []domain.ArchivedOperation `json:"operations"`
		Total      int64                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Operations)
	assert.Zero(t, body.Total)
}
