package discord

import (
	"github.com/bwmarrin/discordgo"
)

// Intents the bot needs: guild and direct messages with content, plus
// voice states for live playback.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsGuildVoiceStates

// Session defines the interface for Discord session operations
type Session interface {
	// Open opens a websocket connection to Discord
	Open() error

	// Close closes the websocket connection to Discord
	Close() error

	// User returns the current user
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)

	// ChannelMessageSendComplex sends a message with embeds, files or components
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)

	// ChannelMessages retrieves messages from a channel
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)

	// ChannelMessage retrieves a specific message from a channel
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)

	// GuildMember retrieves a guild member
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)

	// InteractionRespond sends the initial interaction response
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error

	// InteractionResponseEdit edits the initial interaction response
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)

	// InteractionResponseDelete deletes the initial interaction response
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error

	// FollowupMessageCreate sends a follow-up message for an interaction
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)

	// ApplicationCommandBulkOverwrite replaces the registered commands
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)

	// AddHandler adds an event handler
	AddHandler(handler interface{}) func()

	// GetState returns the session state
	GetState() *discordgo.State
}

// DiscordSession wraps discordgo.Session to implement the Session interface
type DiscordSession struct {
	*discordgo.Session
}

// NewDiscordSession creates a new DiscordSession wrapper
func NewDiscordSession(token string) (*DiscordSession, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = Intents

	return &DiscordSession{Session: session}, nil
}

// GetState returns the session state
func (d *DiscordSession) GetState() *discordgo.State {
	return d.State
}

// Ready reports whether the gateway session is established.
func (d *DiscordSession) Ready() bool {
	return d.DataReady && d.State != nil && d.State.User != nil
}

// BotID returns the bot's user id, or "" before the session is ready.
func (d *DiscordSession) BotID() string {
	if d.State == nil || d.State.User == nil {
		return ""
	}
	return d.State.User.ID
}
