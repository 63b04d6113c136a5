package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptsync/amazon-ynab-sync/internal/api/dto"
	"github.com/receiptsync/amazon-ynab-sync/internal/api/handlers"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/storage"
)

func TestRunsHandler_List(t *testing.T) {
	t.Run("returns empty list when no runs", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewRunsHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Empty(t, response.Runs)
		assert.Equal(t, 0, response.Count)
	})

	t.Run("returns runs from repository", func(t *testing.T) {
		repo := storage.NewMockRepository()

		runID1, _ := repo.StartRun(500, false)
		_ = repo.CompleteRun(runID1, 10, 8, 3, 0)

		runID2, _ := repo.StartRun(100, true)
		_ = repo.CompleteRun(runID2, 5, 5, 1, 1)

		handler := handlers.NewRunsHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 2, response.Count)
		require.Len(t, response.Runs, 2)

		// Newest first.
		assert.Equal(t, runID2, response.Runs[0].ID)
		assert.Equal(t, "partial", response.Runs[0].Status)
		assert.True(t, response.Runs[0].DryRun)
	})

	t.Run("respects limit parameter", func(t *testing.T) {
		repo := storage.NewMockRepository()
		for i := 0; i < 5; i++ {
			runID, _ := repo.StartRun(500, false)
			_ = repo.CompleteRun(runID, 1, 1, 0, 0)
		}

		handler := handlers.NewRunsHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=3", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		var response dto.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 3, response.Count)
	})
}

func runRouter(repo storage.Repository) chi.Router {
	r := chi.NewRouter()
	runsHandler := handlers.NewRunsHandler(repo)
	matchesHandler := handlers.NewMatchesHandler(repo)
	r.Get("/api/runs/{id}", runsHandler.Get)
	r.Get("/api/runs/{id}/matches", matchesHandler.ListByRun)
	r.Get("/api/matches", matchesHandler.List)
	return r
}

func TestRunsHandler_Get(t *testing.T) {
	repo := storage.NewMockRepository()
	runID, _ := repo.StartRun(500, false)
	_ = repo.CompleteRun(runID, 10, 8, 3, 0)

	router := runRouter(repo)

	t.Run("returns run by ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/1", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, runID, response.ID)
		assert.Equal(t, 10, response.MessagesScanned)
		assert.Equal(t, "success", response.Status)
	})

	t.Run("unknown run is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/999", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric run ID is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/abc", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMatchesHandler(t *testing.T) {
	repo := storage.NewMockRepository()
	runID, _ := repo.StartRun(500, false)

	_ = repo.SaveMatch(&storage.MatchRecord{
		RunID:            runID,
		TransactionID:    "tx1",
		RecordDate:       time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC),
		AmountMilliunits: -42100,
		Memo:             "Widget A; Widget B",
		Items:            []string{"Widget A", "Widget B"},
	})
	_ = repo.SaveMatch(&storage.MatchRecord{
		RunID:         runID + 1,
		TransactionID: "tx2",
		RecordDate:    time.Date(2025, 10, 11, 0, 0, 0, 0, time.UTC),
	})

	router := runRouter(repo)

	t.Run("lists recent matches", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/matches", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.MatchListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 2, response.Count)
	})

	t.Run("lists matches by run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/1/matches", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		var response dto.MatchListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Equal(t, 1, response.Count)
		assert.Equal(t, "tx1", response.Matches[0].TransactionID)
		assert.Equal(t, "2025-10-10", response.Matches[0].RecordDate)
	})
}

func TestStatsHandler(t *testing.T) {
	repo := storage.NewMockRepository()
	runID, _ := repo.StartRun(500, false)
	_ = repo.CompleteRun(runID, 10, 8, 3, 1)
	_ = repo.SaveMatch(&storage.MatchRecord{RunID: runID, TransactionID: "tx1"})

	handler := handlers.NewStatsHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, 1, response.TotalRuns)
	assert.Equal(t, 1, response.TotalMatches)
	assert.Equal(t, 1, response.TotalErrors)
	assert.NotEmpty(t, response.LastRunAt)
}
