package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edvin/ern/internal/escalation"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteServiceError maps an engine error onto its HTTP status. Storage
// failures are reported without their cause.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, escalation.ErrValidation):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, escalation.ErrForbidden):
		WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, escalation.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, escalation.ErrConflict):
		WriteError(w, http.StatusConflict, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
