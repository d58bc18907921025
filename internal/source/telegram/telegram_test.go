package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswire/aggregator/internal/domain"
	"github.com/newswire/aggregator/internal/logger"
)

type fakeBot struct {
	updates []tgbotapi.Update

	gotOffset int
}

func (f *fakeBot) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.gotOffset = cfg.Offset
	return f.updates, nil
}

type fakeCursorStore struct {
	cursors  map[string]domain.Cursor
	advances []time.Time
}

func (f *fakeCursorStore) Get(_ context.Context, source, channel string) (domain.Cursor, error) {
	c := f.cursors[source+"/"+channel]
	c.Source = source
	c.Channel = channel
	return c, nil
}

func (f *fakeCursorStore) Advance(_ context.Context, _, _ string, ts time.Time) error {
	f.advances = append(f.advances, ts)
	return nil
}

func (f *fakeCursorStore) AdvanceMessageID(context.Context, string, string, string) error {
	return nil
}

func channelPost(updateID, messageID int, channel, text string, date time.Time) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: updateID,
		ChannelPost: &tgbotapi.Message{
			MessageID: messageID,
			Text:      text,
			Date:      int(date.Unix()),
			Chat:      &tgbotapi.Chat{UserName: channel, Type: "channel"},
		},
	}
}

func TestCollect_MapsChannelPosts(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	bot := &fakeBot{updates: []tgbotapi.Update{
		channelPost(1, 11, "citynews", "first post", base),
		channelPost(2, 12, "citynews", "second post", base.Add(time.Minute)),
	}}
	store := &fakeCursorStore{}

	tg := newWithBot(bot, Config{Channels: []string{"@citynews"}, FetchCap: 100}, store, logger.Nop())
	messages, err := tg.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)

	msg := messages[0]
	assert.Equal(t, domain.SourceTelegram, msg.Source)
	assert.Equal(t, "11", msg.SourceID)
	assert.Equal(t, "first post", msg.Content)
	assert.Equal(t, base, msg.Timestamp)
	assert.Equal(t, "citynews", msg.Metadata["channel"])
	assert.Equal(t, "https://t.me/citynews/11", msg.Metadata[domain.MetaPermalink])

	// Cursor advanced once per handed-off message.
	assert.Equal(t, []time.Time{base, base.Add(time.Minute)}, store.advances)
}

func TestCollect_SkipsMessagesAtOrBeforeCursor(t *testing.T) {
	cursorTS := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	bot := &fakeBot{updates: []tgbotapi.Update{
		channelPost(1, 11, "citynews", "old post", cursorTS.Add(-time.Hour)),
		channelPost(2, 12, "citynews", "at cursor", cursorTS),
		channelPost(3, 13, "citynews", "new post", cursorTS.Add(time.Minute)),
	}}
	store := &fakeCursorStore{cursors: map[string]domain.Cursor{
		"telegram/citynews": {Timestamp: cursorTS},
	}}

	tg := newWithBot(bot, Config{Channels: []string{"citynews"}, FetchCap: 100}, store, logger.Nop())
	messages, err := tg.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "new post", messages[0].Content)
}

func TestCollect_IgnoresUnconfiguredChannels(t *testing.T) {
	bot := &fakeBot{updates: []tgbotapi.Update{
		channelPost(1, 11, "othernews", "post", time.Now()),
	}}
	tg := newWithBot(bot, Config{Channels: []string{"citynews"}, FetchCap: 100}, &fakeCursorStore{}, logger.Nop())

	messages, err := tg.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestCollect_FetchCapBoundsCycle(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var updates []tgbotapi.Update
	for i := range 10 {
		updates = append(updates, channelPost(i+1, i+1, "citynews", "post", base.Add(time.Duration(i)*time.Minute)))
	}
	bot := &fakeBot{updates: updates}

	tg := newWithBot(bot, Config{Channels: []string{"citynews"}, FetchCap: 3}, &fakeCursorStore{}, logger.Nop())
	messages, err := tg.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, messages, 3)

	// Updates beyond the cap must not be confirmed via the offset; the next
	// poll has to resume at the first update that was not handed off.
	bot.updates = nil
	_, err = tg.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, bot.gotOffset, "capped updates must be re-fetched next cycle")
}

func TestCollect_AdvancesUpdateOffset(t *testing.T) {
	base := time.Now().UTC().Truncate(time.Second)
	bot := &fakeBot{updates: []tgbotapi.Update{channelPost(7, 1, "citynews", "post", base)}}

	tg := newWithBot(bot, Config{Channels: []string{"citynews"}, FetchCap: 100}, &fakeCursorStore{}, logger.Nop())

	_, err := tg.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, bot.gotOffset)

	bot.updates = nil
	_, err = tg.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, bot.gotOffset, "second poll must resume past the last update id")
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(Config{}, &fakeCursorStore{}, logger.Nop())
	require.Error(t, err)
}
