package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/Dmetrikx/goDiscordPersona/internal/gate"
	"github.com/Dmetrikx/goDiscordPersona/internal/reply"
	"github.com/Dmetrikx/goDiscordPersona/internal/voice"
)

// interactionHandler handles slash and context menu commands
func (b *Bot) interactionHandler(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	b.handleInteraction(context.Background(), ic.Interaction)
}

// responder tracks whether an interaction has been acknowledged so the
// failure path knows whether to follow up or reply.
type responder struct {
	bot          *Bot
	interaction  *discordgo.Interaction
	logger       *slog.Logger
	acknowledged bool
}

func (r *responder) respond(ctx context.Context, resp *discordgo.InteractionResponse) error {
	if err := r.bot.session.InteractionRespond(r.interaction, resp, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to respond to interaction: %w", err)
	}
	r.acknowledged = true
	return nil
}

func (r *responder) deferReply(ctx context.Context, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

func (r *responder) edit(ctx context.Context, content string) error {
	if _, err := r.bot.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
		Content: &content,
	}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to edit interaction response: %w", err)
	}
	return nil
}

func (r *responder) followup(ctx context.Context, content string, ephemeral bool) error {
	params := &discordgo.WebhookParams{Content: content}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if _, err := r.bot.session.FollowupMessageCreate(r.interaction, true, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send follow-up: %w", err)
	}
	return nil
}

func (r *responder) delete(ctx context.Context) error {
	if err := r.bot.session.InteractionResponseDelete(r.interaction, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete interaction response: %w", err)
	}
	return nil
}

// handleInteraction routes an interaction and is the last line of defence:
// errors and panics are logged and the user is told something went wrong.
func (b *Bot) handleInteraction(ctx context.Context, i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	requestID := i.ID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	r := &responder{
		bot:         b,
		interaction: i,
		logger:      b.logger.With("request_id", requestID),
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "panic while handling interaction", "panic", rec)
			b.reportFailure(ctx, r)
		}
	}()

	if err := b.routeInteraction(ctx, r); err != nil {
		r.logger.ErrorContext(ctx, "unhandled interaction error", "error", err)
		b.reportFailure(ctx, r)
	}
}

func (b *Bot) reportFailure(ctx context.Context, r *responder) {
	var err error
	if r.acknowledged {
		err = r.followup(ctx, MsgInternalError, true)
	} else {
		err = r.respond(ctx, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: MsgUnexpectedError,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to report interaction failure", "error", err)
	}
}

func (b *Bot) routeInteraction(ctx context.Context, r *responder) error {
	data := r.interaction.ApplicationCommandData()
	user := getUserFromInteraction(r.interaction)
	if user == nil {
		return errors.New("interaction has no user")
	}

	r.logger.InfoContext(ctx, "received command",
		"command", data.Name,
		"user_id", user.ID,
		"channel_id", r.interaction.ChannelID)

	switch {
	case data.CommandType == discordgo.MessageApplicationCommand && data.Name == CommandSpeakMessage:
		return b.handleSpeakMessage(ctx, r, user, data)
	case data.Name == CommandSpeak:
		return b.handleSpeak(ctx, r, user, data)
	case data.Name == CommandStartConversation, data.Name == CommandClearMemory:
		return b.handleClearMemory(ctx, r, user)
	default:
		r.logger.InfoContext(ctx, "unknown command", "command", data.Name)
		return nil
	}
}

// handleClearMemory drops the user's session and greets them again
func (b *Bot) handleClearMemory(ctx context.Context, r *responder, user *discordgo.User) error {
	b.store.Clear(user.ID)

	intro := b.registry.Intro()
	return r.respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{reply.NewEmbed(intro.URL, intro.Caption, reply.FooterIntro)},
		},
	})
}

// handleSpeakMessage voices the bot message a context menu was opened on
func (b *Bot) handleSpeakMessage(ctx context.Context, r *responder, user *discordgo.User, data discordgo.ApplicationCommandInteractionData) error {
	if err := r.deferReply(ctx, true); err != nil {
		return err
	}

	if !b.membership.IsMember(ctx, user.ID, r.interaction.ChannelID) {
		return r.edit(ctx, MsgJoinRequired)
	}

	target, err := b.resolveTargetMessage(ctx, r.interaction.ChannelID, data)
	if err != nil {
		return err
	}
	if target.Author == nil || target.Author.ID != b.botID() {
		return r.edit(ctx, voice.MsgNotBotMessage)
	}

	text := voiceText(target)
	if text == "" {
		return r.edit(ctx, voice.MsgNoContent)
	}

	if err := b.speak(ctx, r, user, text, target.ID); err != nil {
		return r.edit(ctx, b.voiceFailureMessage(ctx, r, err))
	}

	if b.speaker.Kind() == voice.KindLive {
		return r.edit(ctx, MsgVoicePlayed)
	}
	if err := r.delete(ctx); err != nil {
		return err
	}
	return r.followup(ctx, MsgVoiceSent, true)
}

// handleSpeak voices the text option, or the bot's latest message in the
// channel when replied is set.
func (b *Bot) handleSpeak(ctx context.Context, r *responder, user *discordgo.User, data discordgo.ApplicationCommandInteractionData) error {
	if err := r.deferReply(ctx, false); err != nil {
		return err
	}

	if !b.membership.IsMember(ctx, user.ID, r.interaction.ChannelID) {
		return r.edit(ctx, MsgJoinRequired)
	}

	opts := optionMap(data.Options)
	var text, replyTo string
	if o, ok := opts[OptionText]; ok {
		text = o.StringValue()
	}

	if text == "" {
		replied := false
		if o, ok := opts[OptionReplied]; ok {
			replied = o.BoolValue()
		}
		if !replied {
			return r.edit(ctx, voice.MsgNothingToSpeak)
		}

		latest, err := b.latestBotMessage(ctx, r.interaction.ChannelID)
		if err != nil {
			return err
		}
		if latest == nil {
			return r.edit(ctx, voice.MsgNothingToSpeak)
		}
		text = voiceText(latest)
		replyTo = latest.ID
	}

	if text == "" {
		return r.edit(ctx, MsgNoTextToSpeak)
	}

	if err := b.speak(ctx, r, user, text, replyTo); err != nil {
		return r.edit(ctx, b.voiceFailureMessage(ctx, r, err))
	}

	if b.speaker.Kind() == voice.KindLive {
		return r.edit(ctx, MsgVoicePlayed)
	}
	return r.delete(ctx)
}

func (b *Bot) speak(ctx context.Context, r *responder, user *discordgo.User, text, replyTo string) error {
	i := r.interaction
	return b.speaker.Speak(ctx, voice.Request{
		ID:        i.ID,
		UserID:    user.ID,
		UserTag:   userTag(user),
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Text:      text,
		ReplyToID: replyTo,
	})
}

// voiceFailureMessage maps a Speak error to what the user sees. Expected
// refusals are logged at info, everything else at error.
func (b *Bot) voiceFailureMessage(ctx context.Context, r *responder, err error) string {
	var validationErr *voice.ValidationError
	var deniedErr *gate.DeniedError

	switch {
	case errors.As(err, &validationErr):
		r.logger.InfoContext(ctx, "voice request rejected", "reason", validationErr.Reason)
		return validationErr.Message
	case errors.As(err, &deniedErr):
		r.logger.InfoContext(ctx, "voice request denied", "reason", deniedErr.Reason)
		return deniedErr.Message
	case errors.Is(err, voice.ErrDisabled):
		return MsgVoiceDisabled
	default:
		r.logger.ErrorContext(ctx, "voice request failed", "error", err)
		return fmt.Sprintf("❌ Error: %v", err)
	}
}

// resolveTargetMessage returns the message a context menu command targets
func (b *Bot) resolveTargetMessage(ctx context.Context, channelID string, data discordgo.ApplicationCommandInteractionData) (*discordgo.Message, error) {
	if data.Resolved != nil {
		if m, ok := data.Resolved.Messages[data.TargetID]; ok && m != nil {
			return m, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, DiscordCallTimeout)
	defer cancel()

	m, err := b.session.ChannelMessage(channelID, data.TargetID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target message: %w", err)
	}
	return m, nil
}

// latestBotMessage finds the bot's most recent message among the last few
// in the channel, or nil when there is none.
func (b *Bot) latestBotMessage(ctx context.Context, channelID string) (*discordgo.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, DiscordCallTimeout)
	defer cancel()

	messages, err := b.session.ChannelMessages(channelID, RecentMessageScan, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel messages: %w", err)
	}

	botID := b.botID()
	for _, m := range messages {
		if m.Author != nil && m.Author.ID == botID {
			return m, nil
		}
	}
	return nil, nil
}
