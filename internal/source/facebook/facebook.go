// Package facebook collects posts from configured pages through the Graph
// API feed edge, resuming from a per-page timestamp cursor.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/newswire/aggregator/internal/domain"
	"github.com/newswire/aggregator/internal/logger"
	"github.com/newswire/aggregator/internal/source"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v19.0"
	timeLayout     = "2006-01-02T15:04:05-0700"
)

// Facebook polls page feeds for new posts.
type Facebook struct {
	baseURL  string
	token    string
	pages    []string
	fetchCap int
	http     *http.Client
	logger   logger.Logger

	trackers map[string]*source.ChannelTracker
}

// Config holds Facebook adapter construction parameters.
type Config struct {
	AccessToken string
	Pages       []string
	FetchCap    int
	BaseURL     string // test override
}

// New creates the Facebook adapter.
func New(cfg Config, cursors source.CursorStore, log logger.Logger) (*Facebook, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("facebook access token is required")
	}
	if len(cfg.Pages) == 0 {
		log.Warn("no facebook pages configured")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	trackers := make(map[string]*source.ChannelTracker, len(cfg.Pages))
	for _, page := range cfg.Pages {
		trackers[page] = source.NewChannelTracker(domain.SourceFacebook, page, cursors)
	}

	return &Facebook{
		baseURL:  baseURL,
		token:    cfg.AccessToken,
		pages:    cfg.Pages,
		fetchCap: cfg.FetchCap,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   log,
		trackers: trackers,
	}, nil
}

// Name returns the platform identifier.
func (f *Facebook) Name() string { return domain.SourceFacebook }

// Collect gathers new posts per page. Page-level failures are logged and
// skipped so a revoked page never starves the rest.
func (f *Facebook) Collect(ctx context.Context) ([]domain.RawMessage, error) {
	var messages []domain.RawMessage

	for _, page := range f.pages {
		collected, err := f.collectFromPage(ctx, page)
		if err != nil {
			f.logger.Error("failed to collect from facebook page",
				logger.String("page", page),
				logger.Error(err),
			)
			continue
		}
		messages = append(messages, collected...)
	}

	f.logger.Info("collected facebook messages", logger.Int("count", len(messages)))
	return messages, nil
}

type post struct {
	ID           string `json:"id"`
	Message      string `json:"message"`
	CreatedTime  string `json:"created_time"`
	PermalinkURL string `json:"permalink_url"`
	From         struct {
		Name string `json:"name"`
	} `json:"from"`
}

type feedResponse struct {
	Data []post `json:"data"`
}

func (f *Facebook) collectFromPage(ctx context.Context, page string) ([]domain.RawMessage, error) {
	tracker := f.trackers[page]
	if err := tracker.Load(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("access_token", f.token)
	params.Set("fields", "id,message,created_time,permalink_url,from")
	if f.fetchCap > 0 {
		params.Set("limit", strconv.Itoa(f.fetchCap))
	}
	if since := tracker.Since(); !since.IsZero() {
		params.Set("since", strconv.FormatInt(since.Unix(), 10))
	}

	var feed feedResponse
	endpoint := fmt.Sprintf("%s/%s/feed?%s", f.baseURL, url.PathEscape(page), params.Encode())
	if err := f.getJSON(ctx, endpoint, &feed); err != nil {
		return nil, fmt.Errorf("fetch feed for %s: %w", page, err)
	}

	// Feed order is newest first; walk backwards so cursor advances follow
	// hand-off order.
	messages := make([]domain.RawMessage, 0, len(feed.Data))
	for i := len(feed.Data) - 1; i >= 0; i-- {
		p := feed.Data[i]

		ts, err := time.Parse(timeLayout, p.CreatedTime)
		if err != nil {
			f.logger.Warn("skipping post with unparseable created_time",
				logger.String("page", page),
				logger.String("post_id", p.ID),
				logger.String("created_time", p.CreatedTime),
			)
			continue
		}
		ts = ts.UTC()

		// The since parameter is inclusive at second resolution, so the
		// boundary post comes back again; the cursor check drops it.
		if !tracker.Newer(ts) {
			continue
		}

		author := p.From.Name
		if author == "" {
			author = page
		}

		messages = append(messages, domain.RawMessage{
			Source:    domain.SourceFacebook,
			SourceID:  p.ID,
			Content:   p.Message,
			Author:    author,
			Timestamp: ts,
			Metadata: map[string]any{
				"page":             page,
				domain.MetaPostURL: p.PermalinkURL,
			},
		})

		if err := tracker.Advance(ctx, ts); err != nil {
			f.logger.Error("failed to advance facebook cursor",
				logger.String("page", page),
				logger.Error(err),
			)
		}
	}
	return messages, nil
}

func (f *Facebook) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph api returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
