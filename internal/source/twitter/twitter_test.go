package twitter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswire/aggregator/internal/domain"
	"github.com/newswire/aggregator/internal/logger"
)

type fakeCursorStore struct {
	cursors map[string]domain.Cursor
}

func newFakeCursorStore() *fakeCursorStore {
	return &fakeCursorStore{cursors: make(map[string]domain.Cursor)}
}

func (f *fakeCursorStore) key(source, channel string) string { return source + "/" + channel }

func (f *fakeCursorStore) Get(_ context.Context, source, channel string) (domain.Cursor, error) {
	return f.cursors[f.key(source, channel)], nil
}

func (f *fakeCursorStore) Advance(_ context.Context, source, channel string, ts time.Time) error {
	cur := f.cursors[f.key(source, channel)]
	cur.Source = source
	cur.Channel = channel
	cur.Timestamp = ts
	f.cursors[f.key(source, channel)] = cur
	return nil
}

func (f *fakeCursorStore) AdvanceMessageID(_ context.Context, source, channel, messageID string) error {
	cur := f.cursors[f.key(source, channel)]
	cur.Source = source
	cur.Channel = channel
	cur.MessageID = messageID
	f.cursors[f.key(source, channel)] = cur
	return nil
}

func newTestServer(t *testing.T, tweets []map[string]any, wantSinceID string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/by/username/newsdesk", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "9001"}})
	})
	mux.HandleFunc("/2/users/9001/tweets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, wantSinceID, r.URL.Query().Get("since_id"))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": tweets})
	})
	return httptest.NewServer(mux)
}

func newTestAdapter(t *testing.T, baseURL string, cursors *fakeCursorStore) *Twitter {
	t.Helper()
	tw, err := New(Config{
		BearerToken: "test-token",
		Accounts:    []string{"newsdesk"},
		FetchCap:    50,
		BaseURL:     baseURL,
	}, cursors, logger.Nop())
	require.NoError(t, err)
	return tw
}

func TestCollectMapsTweetsOldestFirst(t *testing.T) {
	server := newTestServer(t, []map[string]any{
		{"id": "102", "text": "second story", "created_at": "2025-03-01T11:00:00Z"},
		{"id": "101", "text": "first story", "created_at": "2025-03-01T10:00:00Z"},
	}, "")
	defer server.Close()

	cursors := newFakeCursorStore()
	tw := newTestAdapter(t, server.URL, cursors)

	messages, err := tw.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "101", messages[0].SourceID)
	assert.Equal(t, "first story", messages[0].Content)
	assert.Equal(t, domain.SourceTwitter, messages[0].Source)
	assert.Equal(t, "newsdesk", messages[0].Author)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), messages[0].Timestamp)
	assert.Equal(t, "https://x.com/newsdesk/status/101", messages[0].Metadata[domain.MetaTweetURL])
	assert.Equal(t, "102", messages[1].SourceID)

	// Cursor lands on the newest tweet handed off.
	assert.Equal(t, "102", cursors.cursors["twitter/newsdesk"].MessageID)
}

func TestCollectResumesFromStoredMessageID(t *testing.T) {
	server := newTestServer(t, []map[string]any{
		{"id": "205", "text": "fresh", "created_at": "2025-03-02T09:00:00Z"},
	}, "200")
	defer server.Close()

	cursors := newFakeCursorStore()
	cursors.cursors["twitter/newsdesk"] = domain.Cursor{
		Source: domain.SourceTwitter, Channel: "newsdesk", MessageID: "200",
	}
	tw := newTestAdapter(t, server.URL, cursors)

	messages, err := tw.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "205", messages[0].SourceID)
	assert.Equal(t, "205", cursors.cursors["twitter/newsdesk"].MessageID)
}

func TestCollectFetchCapBoundsHandOff(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/by/username/newsdesk", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "9001"}})
	})
	mux.HandleFunc("/2/users/9001/tweets", func(w http.ResponseWriter, r *http.Request) {
		// A cap below the API minimum page size still requests 5.
		assert.Equal(t, "5", r.URL.Query().Get("max_results"))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{
			{"id": "303", "text": "third", "created_at": "2025-03-01T12:00:00Z"},
			{"id": "302", "text": "second", "created_at": "2025-03-01T11:00:00Z"},
			{"id": "301", "text": "first", "created_at": "2025-03-01T10:00:00Z"},
		}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cursors := newFakeCursorStore()
	tw, err := New(Config{
		BearerToken: "test-token",
		Accounts:    []string{"newsdesk"},
		FetchCap:    2,
		BaseURL:     server.URL,
	}, cursors, logger.Nop())
	require.NoError(t, err)

	messages, err := tw.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "301", messages[0].SourceID)
	assert.Equal(t, "302", messages[1].SourceID)

	// The cursor stops at the last handed-off tweet so the capped one is
	// re-fetched next cycle.
	assert.Equal(t, "302", cursors.cursors["twitter/newsdesk"].MessageID)
}

func TestCollectSurvivesAccountFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tw := newTestAdapter(t, server.URL, newFakeCursorStore())

	messages, err := tw.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestNewRequiresBearerToken(t *testing.T) {
	_, err := New(Config{Accounts: []string{"newsdesk"}}, newFakeCursorStore(), logger.Nop())
	require.Error(t, err)
}
