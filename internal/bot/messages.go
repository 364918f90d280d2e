package bot

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/Dmetrikx/goDiscordPersona/internal/ai"
	"github.com/Dmetrikx/goDiscordPersona/internal/reply"
)

// messageHandler handles incoming messages. A panic while handling one
// message is logged and answered with the generic apology.
func (b *Bot) messageHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	ctx := context.Background()
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.ErrorContext(ctx, "panic while handling message",
				"request_id", m.ID,
				"channel_id", m.ChannelID,
				"panic", rec)
			b.reportMessageFailure(ctx, m.Message)
		}
	}()

	b.handleMessage(ctx, m.Message)
}

// reportMessageFailure replies to m with the generic apology.
func (b *Bot) reportMessageFailure(ctx context.Context, m *discordgo.Message) {
	target := reply.Target{
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		MessageID: m.ID,
	}
	if err := reply.Deliver(ctx, b.session, reply.Parsed{Text: MsgModelError}, target); err != nil {
		b.logger.ErrorContext(ctx, "failed to send error reply",
			"request_id", m.ID,
			"error", err)
	}
}

// handleMessage runs one chat message through the gates, the model and the
// reply router.
func (b *Bot) handleMessage(ctx context.Context, m *discordgo.Message) {
	botID := b.botID()
	if !b.shouldRespond(ctx, m, botID) {
		return
	}

	userID := m.Author.ID
	logger := b.logger.With(
		"request_id", m.ID,
		"user_id", userID,
		"channel_id", m.ChannelID)

	if !b.rates.AllowMessage(userID, b.now()) {
		logger.InfoContext(ctx, "message denied", "reason", "cooldown")
		return
	}

	if !b.membership.IsMember(ctx, userID, m.ChannelID) {
		logger.InfoContext(ctx, "message denied", "reason", "membership")
		return
	}

	text := stripMention(m.Content, botID)
	logger.InfoContext(ctx, "received message", "text_length", len(text))

	target := reply.Target{
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		MessageID: m.ID,
	}

	raw, err := b.store.Exchange(ctx, userID, text, b.aiClient.Complete)
	if err != nil {
		var complErr *ai.CompletionError
		isCompletion := errors.As(err, &complErr)
		logger.ErrorContext(ctx, "AI request failed",
			"rate_limited", isCompletion && complErr.RateLimited(),
			"retryable", isCompletion && complErr.Retryable(),
			"error", err)
		b.reportMessageFailure(ctx, m)
		return
	}

	parsed := reply.Parse(raw, b.registry)
	if err := reply.Deliver(ctx, b.session, parsed, target); err != nil {
		logger.ErrorContext(ctx, "failed to deliver reply", "error", err)
		return
	}

	logger.InfoContext(ctx, "sent reply",
		"emotion", parsed.EmotionKey,
		"reply_length", len(parsed.Text))
}

// shouldRespond decides whether a message is addressed to the bot: a direct
// message, a mention, or a reply to one of its messages. Bot authors and
// command-prefixed text are ignored.
func (b *Bot) shouldRespond(ctx context.Context, m *discordgo.Message, botID string) bool {
	if m.Author == nil || m.Author.Bot || m.Author.ID == botID {
		return false
	}
	if hasCommandPrefix(m.Content) {
		return false
	}

	if m.GuildID == "" {
		return true
	}
	if botID != "" && mentions(m, botID) {
		return true
	}
	return b.isReplyToBot(ctx, m, botID)
}

// isReplyToBot reports whether m replies to a message authored by the bot
func (b *Bot) isReplyToBot(ctx context.Context, m *discordgo.Message, botID string) bool {
	if botID == "" || m.MessageReference == nil || m.MessageReference.MessageID == "" {
		return false
	}

	ref := m.ReferencedMessage
	if ref == nil {
		channelID := m.MessageReference.ChannelID
		if channelID == "" {
			channelID = m.ChannelID
		}

		ctx, cancel := context.WithTimeout(ctx, DiscordCallTimeout)
		defer cancel()

		fetched, err := b.session.ChannelMessage(channelID, m.MessageReference.MessageID, discordgo.WithContext(ctx))
		if err != nil {
			b.logger.ErrorContext(ctx, "failed to fetch referenced message",
				"channel_id", channelID,
				"message_id", m.MessageReference.MessageID,
				"error", err)
			return false
		}
		ref = fetched
	}

	return ref.Author != nil && ref.Author.ID == botID
}
