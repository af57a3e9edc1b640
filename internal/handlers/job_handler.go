// -----------------------------------------------------------------------
// Job API
// Submission, polling, listing, and stats over the job service.
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/aemulus/internal/services/jobs"
	"github.com/ternarybob/arbor"
)

// JobHandler handles job-related API requests
type JobHandler struct {
	jobService *jobs.Service
	logger     arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobService *jobs.Service, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		logger:     logger,
	}
}

// SubmitJobHandler accepts an analysis request and returns its job ID
// POST /api/jobs
func (h *JobHandler) SubmitJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req jobs.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.jobService.Submit(r.Context(), &req)
	if err != nil {
		var valErr *models.ValidationError
		if errors.As(err, &valErr) {
			WriteError(w, http.StatusBadRequest, valErr.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Job submission failed")
		WriteError(w, http.StatusInternalServerError, "Failed to submit job")
		return
	}

	WriteJSON(w, http.StatusAccepted, resp)
}

// GetJobHandler returns the current status of a job, with the report
// when completed
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	status, err := h.jobService.Poll(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Job poll failed")
		WriteError(w, http.StatusInternalServerError, "Failed to retrieve job")
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// ListJobsHandler returns jobs, optionally filtered by state
// GET /api/jobs?state=queued&limit=50
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	state := models.JobState(r.URL.Query().Get("state"))
	limit := GetLimitParam(r, 50, 500)

	list, err := h.jobService.List(r.Context(), state, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Job list failed")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

// GetJobStatsHandler returns job counts by state
// GET /api/jobs/stats
func (h *JobHandler) GetJobStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	stats, err := h.jobService.Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Job stats failed")
		WriteError(w, http.StatusInternalServerError, "Failed to retrieve job stats")
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
