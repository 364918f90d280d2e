package voice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Dmetrikx/goDiscordPersona/internal/gate"
	"github.com/Dmetrikx/goDiscordPersona/internal/speech"
)

// Strategy prepares the delivery channel for a request.
type Strategy interface {
	Kind() Kind
	// Format is the synthesis output format the delivery expects.
	Format() string
	// Prepare checks preconditions and acquires delivery resources.
	Prepare(ctx context.Context, req Request) (Delivery, error)
}

// Delivery sends synthesized audio. Close is always called once Prepare
// has succeeded.
type Delivery interface {
	Deliver(ctx context.Context, audio []byte) error
	Close() error
}

// Speaker runs a voice request through validation, quota, synthesis and
// delivery.
type Speaker struct {
	strategy Strategy
	synth    speech.Synthesizer
	rates    *gate.RateGate
	voiceID  string
	now      func() time.Time
	logger   *slog.Logger
}

// NewSpeaker creates a speaker
func NewSpeaker(strategy Strategy, synth speech.Synthesizer, rates *gate.RateGate, voiceID string, logger *slog.Logger) *Speaker {
	return &Speaker{
		strategy: strategy,
		synth:    synth,
		rates:    rates,
		voiceID:  voiceID,
		now:      time.Now,
		logger:   logger,
	}
}

// Kind returns the configured strategy kind.
func (s *Speaker) Kind() Kind {
	return s.strategy.Kind()
}

// Speak synthesizes req.Text and delivers it. The daily quota is consumed
// only when delivery completes.
func (s *Speaker) Speak(ctx context.Context, req Request) (err error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	state := StateIdle
	transition := func(next State) {
		s.logger.InfoContext(ctx, "voice state changed",
			"request_id", req.ID,
			"user_id", req.UserID,
			"from", state.String(),
			"to", next.String())
		state = next
	}
	defer func() {
		if err != nil {
			transition(StateFailed)
		}
	}()

	transition(StateRequested)

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return NewValidationError(ReasonNoContent, MsgNoContent)
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return NewValidationError(ReasonTooLong, MsgTooLong)
	}
	req.Text = text

	today := gate.Today(s.now())
	if !s.rates.AllowVoice(req.UserID, today) {
		return gate.NewDeniedError(gate.ReasonQuota, MsgQuota)
	}

	delivery, err := s.strategy.Prepare(ctx, req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := delivery.Close(); cerr != nil {
			s.logger.ErrorContext(ctx, "failed to release voice delivery",
				"request_id", req.ID,
				"error", cerr)
		}
	}()

	transition(StateSynthesizing)
	audio, err := s.synth.Synthesize(ctx, speech.NewRequest(text, s.voiceID, s.strategy.Format()))
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	transition(StateDelivering)
	if err := delivery.Deliver(ctx, audio); err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	transition(StateDone)
	s.rates.MarkVoiceUsed(req.UserID, today)
	return nil
}

// DisabledStrategy refuses every request.
type DisabledStrategy struct{}

func (DisabledStrategy) Kind() Kind     { return KindDisabled }
func (DisabledStrategy) Format() string { return "" }

func (DisabledStrategy) Prepare(context.Context, Request) (Delivery, error) {
	return nil, ErrDisabled
}
