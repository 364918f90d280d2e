package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dmetrikx/goDiscordPersona/internal/media"
	"github.com/Dmetrikx/goDiscordPersona/internal/reply"
)

const botID = "bot-1"

type fakeChannel struct {
	mu       sync.Mutex
	last     []*discordgo.Message
	fetchErr error
	sendErr  error
	fetches  int
	posted   []*discordgo.MessageSend
}

func (f *fakeChannel) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.last, f.fetchErr
}

func (f *fakeChannel) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, data)
	return &discordgo.Message{ID: "posted"}, f.sendErr
}

type fakeIdentity struct {
	ready bool
}

func (f fakeIdentity) Ready() bool   { return f.ready }
func (f fakeIdentity) BotID() string { return botID }

func newScheduler(ch *fakeChannel, ready bool) *Scheduler {
	reg := media.New(nil, []media.Item{
		{URL: "https://example.com/1.gif", Caption: "one"},
		{URL: "https://example.com/2.gif", Caption: "two"},
	}, media.Item{})
	s := New(ch, reg, "target", fakeIdentity{ready: ready}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.rng = rand.New(rand.NewPCG(1, 2))
	return s
}

func message(authorID string) []*discordgo.Message {
	return []*discordgo.Message{{ID: "m", Author: &discordgo.User{ID: authorID}}}
}

func TestRunCycleSkipsWhenBotPostedLast(t *testing.T) {
	ch := &fakeChannel{last: message(botID)}
	s := newScheduler(ch, true)

	posted, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.False(t, posted)
	assert.Empty(t, ch.posted)
}

func TestRunCyclePostsFiller(t *testing.T) {
	tests := []struct {
		name string
		last []*discordgo.Message
	}{
		{"someone else posted last", message("user-7")},
		{"empty channel", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{last: tt.last}
			s := newScheduler(ch, true)

			posted, err := s.RunCycle(context.Background())
			require.NoError(t, err)
			assert.True(t, posted)
			require.Len(t, ch.posted, 1)

			embed := ch.posted[0].Embeds[0]
			assert.Equal(t, reply.FooterScheduled, embed.Footer.Text)
			assert.Equal(t, reply.EmbedColor, embed.Color)
			assert.Contains(t, []string{"https://example.com/1.gif", "https://example.com/2.gif"}, embed.Image.URL)
		})
	}
}

func TestRunCycleNotReady(t *testing.T) {
	ch := &fakeChannel{}
	s := newScheduler(ch, false)

	posted, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.False(t, posted)
	assert.Equal(t, 0, ch.fetches)
}

func TestRunCycleFetchError(t *testing.T) {
	ch := &fakeChannel{fetchErr: errors.New("unknown channel")}
	s := newScheduler(ch, true)

	_, err := s.RunCycle(context.Background())
	assert.Error(t, err)
	assert.Empty(t, ch.posted)
}

func TestNextDelayWithinBounds(t *testing.T) {
	s := newScheduler(&fakeChannel{}, true)
	for i := 0; i < 1000; i++ {
		d := s.nextDelay()
		assert.GreaterOrEqual(t, d, MinDelayMinutes*time.Minute)
		assert.LessOrEqual(t, d, MaxDelayMinutes*time.Minute)
		assert.Equal(t, time.Duration(0), d%time.Minute)
	}
}

func TestRunBacksOffOnErrorAndStops(t *testing.T) {
	ch := &fakeChannel{fetchErr: errors.New("boom")}
	s := newScheduler(ch, true)

	ctx, cancel := context.WithCancel(context.Background())
	var sleeps []time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		if len(sleeps) == 4 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	require.Len(t, sleeps, 4)
	assert.GreaterOrEqual(t, sleeps[0], MinDelayMinutes*time.Minute)
	assert.Equal(t, ErrorBackoff, sleeps[1])
	assert.Equal(t, ErrorBackoff, sleeps[3])
	assert.Equal(t, 2, ch.fetches)
}

func TestSleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
