package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/collab"
	"collaborative-editor/internal/service"
)

// HandleServiceError maps service and core errors onto HTTP status codes.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, collab.ErrRoomNotFound), errors.Is(err, collab.ErrSessionNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, collab.ErrRoomFull), errors.Is(err, collab.ErrCapacityExceeded), errors.Is(err, collab.ErrRateLimited):
		ErrorResponse(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, collab.ErrDuplicateUser), errors.Is(err, collab.ErrDuplicateRoom):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, collab.ErrInvalidOperation), errors.Is(err, service.ErrInvalidInput):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
