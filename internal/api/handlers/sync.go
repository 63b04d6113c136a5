package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/receiptsync/amazon-ynab-sync/internal/api/dto"
	"github.com/receiptsync/amazon-ynab-sync/internal/application/service"
	appsync "github.com/receiptsync/amazon-ynab-sync/internal/application/sync"
)

// SyncHandler handles reconcile job HTTP requests.
type SyncHandler struct {
	*Base
	syncService *service.SyncService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{
		Base:        &Base{},
		syncService: syncService,
	}
}

// StartSync handles POST /api/sync - starts a reconcile job.
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req dto.StartJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	if req.Lookback <= 0 {
		req.Lookback = 500
	}

	jobID, err := h.syncService.StartSync(r.Context(), appsync.Options{
		DryRun:   req.DryRun,
		Lookback: req.Lookback,
	})
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.APIError{
			Code:    "sync_conflict",
			Message: err.Error(),
		})
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.StartJobResponse{
		JobID:  jobID,
		Status: string(service.StatusPending),
	})
}

// GetSyncStatus handles GET /api/sync/{jobId} - gets reconcile job status.
func (h *SyncHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	job, err := h.syncService.GetJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("reconcile job"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toJobResponse(job))
}

// ListSyncs handles GET /api/sync - lists all reconcile jobs.
func (h *SyncHandler) ListSyncs(w http.ResponseWriter, r *http.Request) {
	jobs := h.syncService.ListJobs()

	response := dto.JobListResponse{
		Jobs:  make([]dto.JobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// CancelSync handles DELETE /api/sync/{jobId} - cancels a reconcile job.
func (h *SyncHandler) CancelSync(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	if err := h.syncService.CancelSync(jobID); err != nil {
		h.WriteError(w, http.StatusConflict, dto.APIError{
			Code:    "cancel_failed",
			Message: err.Error(),
		})
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "reconcile job cancelled",
	})
}

// toJobResponse converts a service job to an API response.
func toJobResponse(job *service.Job) dto.JobResponse {
	response := dto.JobResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		DryRun:    job.Options.DryRun,
		Lookback:  job.Options.Lookback,
		StartedAt: job.StartedAt.UTC().Format(time.RFC3339),
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.UTC().Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if job.Result != nil {
		response.Result = &dto.JobResultResponse{
			MessagesScanned:  job.Result.MessagesScanned,
			RecordsExtracted: job.Result.RecordsExtracted,
			MatchesAccepted:  job.Result.MatchesAccepted,
			UpdatesApplied:   job.Result.UpdatesApplied,
			ErrorCount:       job.Result.ErrorCount,
		}
	}

	if job.Error != nil {
		errMsg := job.Error.Error()
		response.Error = &errMsg
	}

	return response
}
