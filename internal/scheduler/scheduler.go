// Package scheduler posts random filler media to a channel at random
// intervals, unless the bot itself posted last.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Dmetrikx/goDiscordPersona/internal/media"
	"github.com/Dmetrikx/goDiscordPersona/internal/reply"
)

// Timing defaults
const (
	MinDelayMinutes = 30
	MaxDelayMinutes = 90
	ErrorBackoff    = 60 * time.Second
	CallTimeout     = 15 * time.Second
)

// State of the scheduler loop.
type State string

const (
	StateWaiting  State = "waiting"
	StateChecking State = "checking"
	StatePosting  State = "posting"
)

// Channel is the part of the Discord session the scheduler uses.
type Channel interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Identity reports the bot's readiness and user id.
type Identity interface {
	Ready() bool
	BotID() string
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Scheduler runs the filler media loop.
type Scheduler struct {
	channel   Channel
	registry  *media.Registry
	channelID string
	identity  Identity
	logger    *slog.Logger

	sleep   SleepFunc
	rng     *rand.Rand
	backoff time.Duration
}

// New creates a scheduler posting to channelID.
func New(channel Channel, registry *media.Registry, channelID string, identity Identity, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		channel:   channel,
		registry:  registry,
		channelID: channelID,
		identity:  identity,
		logger:    logger,
		sleep:     Sleep,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		backoff:   ErrorBackoff,
	}
}

// Sleep is the real clock.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.InfoContext(ctx, "scheduler started", "channel_id", s.channelID)

	for {
		delay := s.nextDelay()
		s.logger.InfoContext(ctx, "scheduler waiting",
			"state", StateWaiting,
			"delay_minutes", int(delay.Minutes()))

		if err := s.sleep(ctx, delay); err != nil {
			s.logger.InfoContext(ctx, "scheduler stopped")
			return
		}

		if _, err := s.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.InfoContext(ctx, "scheduler stopped")
				return
			}
			s.logger.ErrorContext(ctx, "scheduler error", "error", err)
			if err := s.sleep(ctx, s.backoff); err != nil {
				s.logger.InfoContext(ctx, "scheduler stopped")
				return
			}
		}
	}
}

// RunCycle performs one check-and-post step and reports whether it posted.
func (s *Scheduler) RunCycle(ctx context.Context) (bool, error) {
	if !s.identity.Ready() {
		s.logger.InfoContext(ctx, "scheduler skipped, session not ready", "state", StateChecking)
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	messages, err := s.channel.ChannelMessages(s.channelID, 1, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to fetch last message: %w", err)
	}
	if len(messages) > 0 && messages[0].Author != nil && messages[0].Author.ID == s.identity.BotID() {
		s.logger.InfoContext(ctx, "scheduler skipped, last message is ours",
			"state", StateChecking,
			"message_id", messages[0].ID)
		return false, nil
	}

	item := s.registry.RandomFiller(s.rng)
	s.logger.InfoContext(ctx, "scheduler posting",
		"state", StatePosting,
		"media_url", item.URL)

	_, err = s.channel.ChannelMessageSendComplex(s.channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{reply.NewEmbed(item.URL, item.Caption, reply.FooterScheduled)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to post filler: %w", err)
	}
	return true, nil
}

// nextDelay picks a whole number of minutes in [MinDelayMinutes, MaxDelayMinutes].
func (s *Scheduler) nextDelay() time.Duration {
	minutes := MinDelayMinutes + s.rng.IntN(MaxDelayMinutes-MinDelayMinutes+1)
	return time.Duration(minutes) * time.Minute
}
