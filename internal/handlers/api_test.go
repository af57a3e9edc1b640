package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/aemulus/internal/models"
)

func TestHealthHandlerReportsQueue(t *testing.T) {
	storage := &mockJobStorage{
		getStatsFunc: func(ctx context.Context) (*models.JobStats, error) {
			return &models.JobStats{Total: 5, Queued: 2, Active: 1}, nil
		},
	}
	handler := NewAPIHandler(storage)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["queued_jobs"])
	assert.Equal(t, float64(1), body["active_jobs"])
}

func TestHealthHandlerDegradedWhenStoreUnreachable(t *testing.T) {
	storage := &mockJobStorage{
		getStatsFunc: func(ctx context.Context) (*models.JobStats, error) {
			return nil, errors.New("store closed")
		},
	}
	handler := NewAPIHandler(storage)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
}

func TestVersionHandlerRejectsPost(t *testing.T) {
	handler := NewAPIHandler(&mockJobStorage{})

	req := httptest.NewRequest("POST", "/api/version", nil)
	rec := httptest.NewRecorder()
	handler.VersionHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
