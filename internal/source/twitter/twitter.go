// Package twitter collects recent tweets from configured accounts through
// the v2 API. Pagination uses since_id, so this adapter runs on the legacy
// message-id cursor rather than timestamps.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/newswire/aggregator/internal/domain"
	"github.com/newswire/aggregator/internal/logger"
	"github.com/newswire/aggregator/internal/source"
)

const defaultBaseURL = "https://api.twitter.com"

// Twitter polls account timelines for new tweets.
type Twitter struct {
	baseURL  string
	bearer   string
	accounts []string
	fetchCap int
	http     *http.Client
	logger   logger.Logger

	trackers map[string]*source.ChannelTracker
	userIDs  map[string]string
}

// Config holds Twitter adapter construction parameters.
type Config struct {
	BearerToken string
	Accounts    []string
	FetchCap    int
	BaseURL     string // test override
}

// New creates the Twitter adapter.
func New(cfg Config, cursors source.CursorStore, log logger.Logger) (*Twitter, error) {
	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("twitter bearer token is required")
	}
	if len(cfg.Accounts) == 0 {
		log.Warn("no twitter accounts configured")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	trackers := make(map[string]*source.ChannelTracker, len(cfg.Accounts))
	for _, account := range cfg.Accounts {
		trackers[account] = source.NewChannelTracker(domain.SourceTwitter, account, cursors)
	}

	return &Twitter{
		baseURL:  baseURL,
		bearer:   cfg.BearerToken,
		accounts: cfg.Accounts,
		fetchCap: cfg.FetchCap,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   log,
		trackers: trackers,
		userIDs:  make(map[string]string),
	}, nil
}

// Name returns the platform identifier.
func (t *Twitter) Name() string { return domain.SourceTwitter }

// Collect gathers new tweets per account. Account-level failures are logged
// and skipped so one throttled account never starves the rest.
func (t *Twitter) Collect(ctx context.Context) ([]domain.RawMessage, error) {
	var messages []domain.RawMessage

	for _, account := range t.accounts {
		collected, err := t.collectFromAccount(ctx, account)
		if err != nil {
			t.logger.Error("failed to collect from twitter account",
				logger.String("account", account),
				logger.Error(err),
			)
			continue
		}
		messages = append(messages, collected...)
	}

	t.logger.Info("collected twitter messages", logger.Int("count", len(messages)))
	return messages, nil
}

type tweet struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type timelineResponse struct {
	Data []tweet `json:"data"`
}

type userResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (t *Twitter) collectFromAccount(ctx context.Context, account string) ([]domain.RawMessage, error) {
	tracker := t.trackers[account]
	if err := tracker.Load(ctx); err != nil {
		return nil, err
	}

	userID, err := t.resolveUserID(ctx, account)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("tweet.fields", "created_at")
	params.Set("max_results", fmt.Sprintf("%d", t.maxResults()))
	if sinceID := tracker.LastMessageID(); sinceID != "" {
		params.Set("since_id", sinceID)
	}

	var timeline timelineResponse
	endpoint := fmt.Sprintf("%s/2/users/%s/tweets?%s", t.baseURL, userID, params.Encode())
	if err := t.getJSON(ctx, endpoint, &timeline); err != nil {
		return nil, fmt.Errorf("fetch timeline for %s: %w", account, err)
	}

	// The API returns newest first; reverse into ascending temporal order so
	// cursor advances mirror hand-off order. The fetch cap bounds hand-off
	// even when the API minimum page size forced a larger request; tweets
	// beyond the cap stay above since_id and come back next cycle.
	messages := make([]domain.RawMessage, 0, len(timeline.Data))
	for i := len(timeline.Data) - 1; i >= 0; i-- {
		if t.fetchCap > 0 && len(messages) >= t.fetchCap {
			break
		}
		tw := timeline.Data[i]
		messages = append(messages, domain.RawMessage{
			Source:    domain.SourceTwitter,
			SourceID:  tw.ID,
			Content:   tw.Text,
			Author:    account,
			Timestamp: tw.CreatedAt.UTC(),
			Metadata: map[string]any{
				"account":           account,
				domain.MetaTweetURL: fmt.Sprintf("https://x.com/%s/status/%s", account, tw.ID),
			},
		})

		if err := tracker.AdvanceMessageID(ctx, tw.ID); err != nil {
			t.logger.Error("failed to advance twitter cursor",
				logger.String("account", account),
				logger.Error(err),
			)
		}
	}
	return messages, nil
}

// resolveUserID looks up and caches the numeric user id for a handle.
func (t *Twitter) resolveUserID(ctx context.Context, account string) (string, error) {
	if id, ok := t.userIDs[account]; ok {
		return id, nil
	}

	var user userResponse
	endpoint := fmt.Sprintf("%s/2/users/by/username/%s", t.baseURL, url.PathEscape(account))
	if err := t.getJSON(ctx, endpoint, &user); err != nil {
		return "", fmt.Errorf("resolve user id for %s: %w", account, err)
	}
	if user.Data.ID == "" {
		return "", fmt.Errorf("unknown twitter account %s", account)
	}

	t.userIDs[account] = user.Data.ID
	return user.Data.ID, nil
}

func (t *Twitter) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.bearer)

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("twitter api returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// maxResults clamps the per-request page size to the API's allowed range of
// 5 to 100. A fetch cap below the minimum still requests 5; hand-off is
// truncated to the cap in collectFromAccount.
func (t *Twitter) maxResults() int {
	switch {
	case t.fetchCap <= 0 || t.fetchCap > 100:
		return 100
	case t.fetchCap < 5:
		return 5
	default:
		return t.fetchCap
	}
}
