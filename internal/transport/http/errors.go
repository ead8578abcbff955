package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"commwatch/pkg/platform/sentinel"
)

// writeError centralizes sentinel error translation to HTTP responses so
// every handler emits the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	var description string

	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		status, code, description = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, sentinel.ErrConflict):
		status, code, description = http.StatusConflict, "conflict", err.Error()
	case errors.Is(err, sentinel.ErrExhausted):
		status, code, description = http.StatusServiceUnavailable, "exhausted", err.Error()
	case errors.Is(err, sentinel.ErrUnavailable):
		status, code, description = http.StatusServiceUnavailable, "unavailable", err.Error()
	}

	body := map[string]string{"error": code}
	// Internal errors keep their detail out of responses.
	if description != "" {
		body["error_description"] = description
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeBadRequest(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             "bad_request",
		"error_description": description,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
