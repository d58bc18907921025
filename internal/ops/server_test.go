package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswire/aggregator/internal/domain"
	"github.com/newswire/aggregator/internal/logger"
)

type fakeHealth struct {
	version string
	err     error
}

func (f *fakeHealth) Health(context.Context) (string, error) { return f.version, f.err }

type fakeItems struct {
	items     []domain.NewsItem
	err       error
	lastLimit int
}

func (f *fakeItems) Query(_ context.Context, limit int) ([]domain.NewsItem, error) {
	f.lastLimit = limit
	return f.items, f.err
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	s.engine.ServeHTTP(rec, req)
	return rec
}

func doHealth(t *testing.T, s *Server) map[string]any {
	t.Helper()
	rec := doGet(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthReportsWorkerID(t *testing.T) {
	s := NewServer(0, "worker-abc123", nil, &fakeItems{}, logger.Nop())

	body := doHealth(t, s)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "worker-abc123", body["worker_id"])
	assert.NotContains(t, body, "embedding")
}

func TestHealthIncludesEmbeddingStatus(t *testing.T) {
	s := NewServer(0, "w1", &fakeHealth{version: "v2"}, &fakeItems{}, logger.Nop())

	body := doHealth(t, s)
	embedding := body["embedding"].(map[string]any)
	assert.Equal(t, "ok", embedding["status"])
	assert.Equal(t, "v2", embedding["model_version"])
}

func TestHealthStaysOKWhenEmbeddingDown(t *testing.T) {
	s := NewServer(0, "w1", &fakeHealth{err: errors.New("connection refused")}, &fakeItems{}, logger.Nop())

	body := doHealth(t, s)
	assert.Equal(t, "ok", body["status"])
	embedding := body["embedding"].(map[string]any)
	assert.Equal(t, "unavailable", embedding["status"])
}

func TestMetricsEndpointServes(t *testing.T) {
	s := NewServer(0, "w1", nil, &fakeItems{}, logger.Nop())

	rec := doGet(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestItemsReturnsStoredItems(t *testing.T) {
	store := &fakeItems{items: []domain.NewsItem{
		{ID: 2, Title: "Bridge closed", Source: "telegram", SourceID: "43"},
		{ID: 1, Title: "Park opens", Source: "telegram", SourceID: "42"},
	}}
	s := NewServer(0, "w1", nil, store, logger.Nop())

	rec := doGet(t, s, "/items")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultItemsLimit, store.lastLimit)

	var body struct {
		Items []domain.NewsItem `json:"items"`
		Count int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "Bridge closed", body.Items[0].Title)
}

func TestItemsClampsLimit(t *testing.T) {
	store := &fakeItems{}
	s := NewServer(0, "w1", nil, store, logger.Nop())

	rec := doGet(t, s, "/items?limit=9999")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxItemsLimit, store.lastLimit)
}

func TestItemsRejectsBadLimit(t *testing.T) {
	s := NewServer(0, "w1", nil, &fakeItems{}, logger.Nop())

	rec := doGet(t, s, "/items?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemsReportsStoreFailure(t *testing.T) {
	s := NewServer(0, "w1", nil, &fakeItems{err: errors.New("connection reset")}, logger.Nop())

	rec := doGet(t, s, "/items")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
