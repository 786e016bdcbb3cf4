package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tabula/internal/apperr"
)

// writeJSON encodes v before committing status, so an encoding failure
// still produces a well-formed 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody("failed to encode response"))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

type errResponse struct {
	Error   string `json:"error" validate:"required"`
	Details string `json:"details,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusOf maps a service error to an HTTP status.
func statusOf(err error) int {
	var verrs validation.Errors
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUnsupportedFormat),
		errors.Is(err, apperr.ErrInvalidFile),
		errors.Is(err, apperr.ErrEmptyDataset),
		errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAnalyzerUnavailable):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status for err. msg is the public summary;
// client errors carry err as details, server errors are logged instead.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusOf(err)
	body := errorBody(msg)
	if status < http.StatusInternalServerError || status == http.StatusNotImplemented {
		body.Details = err.Error()
	} else {
		slog.Error(msg,
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	writeJSON(w, status, body)
}
