package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-progress/internal/auth"
	"github.com/p-n-ai/pai-progress/internal/executor"
	"github.com/p-n-ai/pai-progress/internal/progress"
)

type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, progress.ErrUnknownCourse),
		errors.Is(err, progress.ErrUnknownSection),
		errors.Is(err, progress.ErrUnknownTopic):
		return http.StatusNotFound
	case errors.Is(err, progress.ErrNoProgressOwner),
		errors.Is(err, progress.ErrNoDevice),
		errors.Is(err, progress.ErrInvalidScore),
		errors.Is(err, progress.ErrNoExercise):
		return http.StatusBadRequest
	case errors.Is(err, progress.ErrNotSignedIn),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, executor.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, progress.ErrNoRunner),
		errors.Is(err, progress.ErrTrackerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
