package api

import (
	"encoding/json"
	"log"
	"net/http"

	apperrors "parkhub/internal/errors"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("write response: %v", err)
		}
	}
}

// writeError maps a domain error to its HTTP status. Unknown errors are
// logged and surfaced as a generic 500 so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	httpErr := apperrors.FromDomain(err)
	if httpErr.Code == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	writeJSON(w, httpErr.Code, messageResponse{Message: httpErr.Message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return false
	}
	return true
}
