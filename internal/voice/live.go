package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dmetrikx/goDiscordPersona/internal/speech"
)

// Live playback limits
const (
	ConnectTimeout  = 15 * time.Second
	PlaybackTimeout = 30 * time.Second
	// DrainDelay covers the frames still buffered in the voice connection
	// after the last packet is queued.
	DrainDelay = 2 * 20 * time.Millisecond
)

// VoiceLocator answers where a user is and what the bot may do there.
type VoiceLocator interface {
	// UserVoiceChannel returns the voice channel the user is connected to.
	UserVoiceChannel(guildID, userID string) (string, bool)
	// CanSpeak reports whether the bot may connect and speak in channelID.
	CanSpeak(channelID string) (bool, error)
}

// VoiceJoiner opens voice connections.
type VoiceJoiner interface {
	JoinVoice(ctx context.Context, guildID, channelID string) (VoiceConn, error)
}

// VoiceConn is an open voice connection.
type VoiceConn interface {
	Speaking(on bool) error
	SendOpus(ctx context.Context, packet []byte) error
	Disconnect() error
}

// LiveStrategy plays audio in the requester's voice channel.
type LiveStrategy struct {
	locator         VoiceLocator
	joiner          VoiceJoiner
	connectTimeout  time.Duration
	playbackTimeout time.Duration
	drainDelay      time.Duration
	logger          *slog.Logger
}

// NewLiveStrategy creates the voice channel strategy
func NewLiveStrategy(locator VoiceLocator, joiner VoiceJoiner, logger *slog.Logger) *LiveStrategy {
	return &LiveStrategy{
		locator:         locator,
		joiner:          joiner,
		connectTimeout:  ConnectTimeout,
		playbackTimeout: PlaybackTimeout,
		drainDelay:      DrainDelay,
		logger:          logger,
	}
}

func (l *LiveStrategy) Kind() Kind     { return KindLive }
func (l *LiveStrategy) Format() string { return speech.FormatOpus }

func (l *LiveStrategy) Prepare(ctx context.Context, req Request) (Delivery, error) {
	channelID, ok := l.locator.UserVoiceChannel(req.GuildID, req.UserID)
	if !ok {
		return nil, NewValidationError(ReasonNotInVoice, MsgNotInVoice)
	}

	allowed, err := l.locator.CanSpeak(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to check voice permissions: %w", err)
	}
	if !allowed {
		return nil, NewValidationError(ReasonMissingPermission, MsgMissingPermission)
	}

	joinCtx, cancel := context.WithTimeout(ctx, l.connectTimeout)
	defer cancel()

	conn, err := l.joiner.JoinVoice(joinCtx, req.GuildID, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	l.logger.InfoContext(ctx, "joined voice channel",
		"request_id", req.ID,
		"guild_id", req.GuildID,
		"channel_id", channelID)

	return &liveDelivery{strategy: l, conn: conn, req: req}, nil
}

type liveDelivery struct {
	strategy *LiveStrategy
	conn     VoiceConn
	req      Request
}

func (d *liveDelivery) Deliver(ctx context.Context, audio []byte) error {
	playCtx, cancel := context.WithTimeout(ctx, d.strategy.playbackTimeout)
	defer cancel()

	if err := d.conn.Speaking(true); err != nil {
		return fmt.Errorf("failed to start speaking: %w", err)
	}

	packets := 0
	err := ForEachOpusPacket(bytes.NewReader(audio), func(packet []byte) error {
		packets++
		return d.conn.SendOpus(playCtx, packet)
	})
	if err == nil {
		err = d.drain(playCtx)
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		d.strategy.logger.InfoContext(ctx, "voice playback timed out",
			"request_id", d.req.ID,
			"packets_sent", packets)
		return ErrPlaybackTimeout
	}
	return err
}

// drain waits for buffered frames to play out before teardown.
func (d *liveDelivery) drain(ctx context.Context) error {
	t := time.NewTimer(d.strategy.drainDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *liveDelivery) Close() error {
	serr := d.conn.Speaking(false)
	derr := d.conn.Disconnect()
	return errors.Join(serr, derr)
}
