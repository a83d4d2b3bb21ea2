package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/service/scheduling"
	"carebook/scheduler/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "invalid_argument"})
}

// writeError maps a service error to its HTTP status. Unknown errors are logged and answered
// with a generic message.
func (h *Handler) writeError(c *gin.Context, msg string, err error, attrs ...any) {
	args := append([]any{slog.Any("err", err), slog.String("route", c.FullPath())}, attrs...)

	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &vErr):
		h.log.Warn("invalid request", args...)
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: vErr.Error(), Code: "invalid_argument"})
	case errors.Is(err, domain.ErrInvalidWindow):
		h.log.Warn("invalid request", args...)
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid_argument"})
	case errors.Is(err, domain.ErrSlotConflict):
		h.log.Info("slot taken concurrently", args...)
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Error: "That slot was just booked by someone else. Pick a different slot.", Code: "slot_conflict"})
	case errors.Is(err, domain.ErrSlotUnavailable):
		h.log.Info("slot unavailable", args...)
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: "slot_unavailable"})
	case errors.Is(err, domain.ErrInvalidState):
		h.log.Info("invalid booking state", args...)
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: "invalid_state"})
	case errors.Is(err, store.ErrIdempotencyConflict):
		h.log.Info("idempotency conflict", args...)
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Error: "This request key was already used for a different booking.", Code: "idempotency_conflict"})
	case errors.Is(err, store.ErrNotFound):
		h.log.Info("not found", args...)
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "not found", Code: "not_found"})
	case errors.Is(err, context.DeadlineExceeded):
		h.log.Warn(msg, args...)
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, errorResponse{Error: "request timed out", Code: "deadline_exceeded"})
	default:
		h.log.Error(msg, args...)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"})
	}
}
