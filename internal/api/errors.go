package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pacekeeper/internal/service"
	"pacekeeper/internal/streak"
)

var statusByError = []struct {
	err    error
	status int
}{
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrAlreadyCompleted, http.StatusConflict},
	{streak.ErrAlreadyRevived, http.StatusConflict},
	{service.ErrTaskInactive, http.StatusConflict},
	{streak.ErrNotEligible, http.StatusUnprocessableEntity},
	{service.ErrInvalidInput, http.StatusBadRequest},
	{streak.ErrInsufficientFunds, http.StatusPaymentRequired},
}

func statusFor(err error) int {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// fail writes the error response. Internal errors are logged and hidden.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Errorw("request failed", "requestID", c.GetString(ctxRequestID), "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
