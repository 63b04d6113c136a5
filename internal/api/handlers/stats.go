package handlers

import (
	"net/http"
	"time"

	"github.com/receiptsync/amazon-ynab-sync/internal/api/dto"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/storage"
)

// StatsHandler handles stats HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo),
	}
}

// Get handles GET /api/stats - returns aggregate statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.StatsResponse{
		TotalRuns:     stats.TotalRuns,
		TotalMatches:  stats.TotalMatches,
		TotalErrors:   stats.TotalErrors,
		LastRunStatus: stats.LastRunStatus,
	}
	if stats.LastRunAt != nil {
		response.LastRunAt = stats.LastRunAt.UTC().Format(time.RFC3339)
	}

	h.WriteJSON(w, http.StatusOK, response)
}
