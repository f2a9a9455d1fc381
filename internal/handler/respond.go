package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mveldt/clipnotes/internal/notes"
	"github.com/mveldt/clipnotes/internal/platform"
)

// envelope is the uniform JSON body every API response uses.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// respondNoteError maps note service errors onto HTTP statuses.
// Internal failures arrive pre-sanitized from the service, so the
// error text is safe to return.
func respondNoteError(w http.ResponseWriter, err error) {
	var verr *notes.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, notes.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// respondPlatformError maps Data API errors onto HTTP statuses.
func respondPlatformError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, platform.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "platform token rejected")
	case errors.Is(err, platform.ErrForbidden):
		respondError(w, http.StatusForbidden, "platform denied access")
	case errors.Is(err, platform.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found on platform")
	case errors.Is(err, platform.ErrQuotaExceeded):
		respondError(w, http.StatusTooManyRequests, "platform quota exceeded")
	default:
		respondError(w, http.StatusBadGateway, "platform request failed")
	}
}
