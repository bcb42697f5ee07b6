package handler

import (
	"encoding/json"
	"net/http"

	"github.com/jmorales-gt/crediventa/internal/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Errorf("failed to encode response: %v", err)
	}
}

// respondError maps the error taxonomy onto HTTP status codes. Internal
// errors are logged with their cause and returned as an opaque message.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.Validation:
		status = http.StatusBadRequest
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.Auth:
		status = http.StatusForbidden
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Errorf("internal error: %v", err)
		msg = "internal server error"
	}
	h.respondJSON(w, status, errorResponse{Error: msg})
}
