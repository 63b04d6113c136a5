package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/receiptsync/amazon-ynab-sync/internal/api/dto"
)

// Health returns the liveness probe handler. It reports process liveness
// only; it deliberately touches no collaborator.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(dto.NewHealthResponse())
	}
}
