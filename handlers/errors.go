package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// requestError is a client mistake caught at the HTTP boundary.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func (e *requestError) Kind() string { return "invalid_request" }

func badRequest(msg string) error {
	return &requestError{status: http.StatusBadRequest, msg: msg}
}

func statusForKind(kind string) int {
	switch kind {
	case "schema_error", "parse_error", "empty_dataset", "invalid_request":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "unknown_category":
		return http.StatusUnprocessableEntity
	case "model_unavailable":
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes {"error", "kind"} for typed errors. Anything else is
// logged and reported as a generic internal error.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		c.JSON(reqErr.status, gin.H{"error": reqErr.msg, "kind": reqErr.Kind()})
		return
	}

	var kinded interface{ Kind() string }
	if errors.As(err, &kinded) {
		c.JSON(statusForKind(kinded.Kind()), gin.H{"error": err.Error(), "kind": kinded.Kind()})
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request cancelled", "kind": "cancelled"})
		return
	}

	_ = c.Error(err)
	logger.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "kind": "internal"})
}
