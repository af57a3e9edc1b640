package handlers

import (
	"net/http"

	"github.com/ternarybob/aemulus/internal/common"
	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/arbor"
)

type APIHandler struct {
	storage interfaces.JobStorage
	logger  arbor.ILogger
}

func NewAPIHandler(storage interfaces.JobStorage) *APIHandler {
	return &APIHandler{
		storage: storage,
		logger:  common.GetLogger(),
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GitCommit,
	})
}

// HealthHandler reports health. The check reads queue stats, so a
// green response means the job store is reachable, not just the
// listener.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	stats, err := h.storage.GetStats(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Health check failed to reach job store")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "degraded",
			"error":  "job store unreachable",
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"queued_jobs": stats.Queued,
		"active_jobs": stats.Active,
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
