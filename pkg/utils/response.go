package utils

import (
	"encoding/json"
	"net/http"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// RespondConfirmation sends a 409 asking the client to retry with the
// matching confirm flag set.
func RespondConfirmation(w http.ResponseWriter, reason, message string) {
	RespondJSON(w, http.StatusConflict, map[string]interface{}{
		"success":               false,
		"confirmation_required": reason,
		"error":                 message,
	})
}
