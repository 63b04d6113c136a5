package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/receiptsync/amazon-ynab-sync/internal/api/dto"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/storage"
)

// MatchesHandler handles accepted-match HTTP requests.
type MatchesHandler struct {
	*Base
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(repo storage.Repository) *MatchesHandler {
	return &MatchesHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/matches - returns recent accepted matches.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 50)

	matches, err := h.repo.ListMatches(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toMatchListResponse(matches))
}

// ListByRun handles GET /api/runs/{id}/matches - returns matches for a run.
func (h *MatchesHandler) ListByRun(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid run ID"))
		return
	}

	matches, err := h.repo.ListMatchesByRun(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toMatchListResponse(matches))
}

func toMatchListResponse(matches []storage.MatchRecord) dto.MatchListResponse {
	response := dto.MatchListResponse{
		Matches: make([]dto.MatchResponse, 0, len(matches)),
		Count:   len(matches),
	}
	for _, m := range matches {
		response.Matches = append(response.Matches, dto.MatchResponse{
			ID:                m.ID,
			RunID:             m.RunID,
			TransactionID:     m.TransactionID,
			RecordDate:        m.RecordDate.UTC().Format("2006-01-02"),
			AmountMilliunits:  m.AmountMilliunits,
			Memo:              m.Memo,
			Items:             m.Items,
			CategorySuggested: m.CategorySuggested,
			DryRun:            m.DryRun,
			CreatedAt:         m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return response
}
