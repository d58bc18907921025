// Package telegram collects channel posts through the Telegram Bot API. The
// bot must be a member of every configured channel.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/newswire/aggregator/internal/domain"
	"github.com/newswire/aggregator/internal/logger"
	"github.com/newswire/aggregator/internal/source"
)

// botAPI is the slice of tgbotapi.BotAPI the adapter uses, kept narrow so
// tests can fake it.
type botAPI interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Telegram polls configured channels for new posts. Cursors are per channel,
// timestamp based; the Bot API update offset is tracked in memory only and
// re-derived after a restart from the timestamp cursors.
type Telegram struct {
	bot      botAPI
	channels []string
	fetchCap int
	logger   logger.Logger

	trackers map[string]*source.ChannelTracker
	offset   int
}

// Config holds Telegram adapter construction parameters.
type Config struct {
	BotToken string
	Channels []string
	FetchCap int
}

// New creates the Telegram adapter. It fails when the bot token is missing or
// rejected; a failed adapter is skipped for the whole worker lifetime.
func New(cfg Config, cursors source.CursorStore, log logger.Logger) (*Telegram, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if len(cfg.Channels) == 0 {
		log.Warn("no telegram channels configured")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot client: %w", err)
	}

	return newWithBot(bot, cfg, cursors, log), nil
}

func newWithBot(bot botAPI, cfg Config, cursors source.CursorStore, log logger.Logger) *Telegram {
	trackers := make(map[string]*source.ChannelTracker, len(cfg.Channels))
	channels := make([]string, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		name := normalizeChannel(ch)
		channels = append(channels, name)
		trackers[name] = source.NewChannelTracker(domain.SourceTelegram, name, cursors)
	}

	return &Telegram{
		bot:      bot,
		channels: channels,
		fetchCap: cfg.FetchCap,
		logger:   log,
		trackers: trackers,
	}
}

// Name returns the platform identifier.
func (t *Telegram) Name() string { return domain.SourceTelegram }

// Collect drains pending channel posts newer than each channel's cursor, up
// to the per-cycle fetch cap. Cursors advance write-through per handed-off
// message.
func (t *Telegram) Collect(ctx context.Context) ([]domain.RawMessage, error) {
	for _, tracker := range t.trackers {
		if err := tracker.Load(ctx); err != nil {
			return nil, err
		}
	}

	updateCfg := tgbotapi.NewUpdate(t.offset)
	updateCfg.Limit = t.fetchCap
	updateCfg.AllowedUpdates = []string{"channel_post"}

	updates, err := t.bot.GetUpdates(updateCfg)
	if err != nil {
		return nil, fmt.Errorf("get telegram updates: %w", err)
	}

	var messages []domain.RawMessage
	for _, update := range updates {
		// Cap check comes before the offset bump: an update confirmed via
		// offset without being handed off cannot be re-fetched.
		if t.fetchCap > 0 && len(messages) >= t.fetchCap {
			break
		}
		if update.UpdateID >= t.offset {
			t.offset = update.UpdateID + 1
		}

		post := update.ChannelPost
		if post == nil || post.Text == "" {
			continue
		}

		channel := normalizeChannel(post.Chat.UserName)
		tracker, ok := t.trackers[channel]
		if !ok {
			continue
		}

		ts := time.Unix(int64(post.Date), 0).UTC()
		if !tracker.Newer(ts) {
			continue
		}

		messages = append(messages, t.buildMessage(post, channel, ts))

		if err := tracker.Advance(ctx, ts); err != nil {
			t.logger.Error("failed to advance telegram cursor",
				logger.String("channel", channel),
				logger.Error(err),
			)
		}
	}

	t.logger.Info("collected telegram messages",
		logger.Int("count", len(messages)),
		logger.Int("channels", len(t.channels)),
	)
	return messages, nil
}

func (t *Telegram) buildMessage(post *tgbotapi.Message, channel string, ts time.Time) domain.RawMessage {
	metadata := map[string]any{
		"channel":    channel,
		"message_id": post.MessageID,
	}
	if post.Chat.UserName != "" {
		metadata[domain.MetaPermalink] = fmt.Sprintf("https://t.me/%s/%d", post.Chat.UserName, post.MessageID)
	}
	if post.ReplyToMessage != nil {
		metadata["reply_to_message_id"] = post.ReplyToMessage.MessageID
	}

	author := post.AuthorSignature
	if author == "" && post.From != nil {
		author = post.From.UserName
	}

	return domain.RawMessage{
		Source:    domain.SourceTelegram,
		SourceID:  strconv.Itoa(post.MessageID),
		Content:   post.Text,
		Author:    author,
		Timestamp: ts,
		Metadata:  metadata,
	}
}

// normalizeChannel strips the leading @ so configured names and API chat
// usernames compare equal.
func normalizeChannel(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "@")
}
