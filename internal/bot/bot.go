package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Dmetrikx/goDiscordPersona/internal/ai"
	"github.com/Dmetrikx/goDiscordPersona/internal/config"
	"github.com/Dmetrikx/goDiscordPersona/internal/discord"
	"github.com/Dmetrikx/goDiscordPersona/internal/gate"
	"github.com/Dmetrikx/goDiscordPersona/internal/media"
	"github.com/Dmetrikx/goDiscordPersona/internal/scheduler"
	"github.com/Dmetrikx/goDiscordPersona/internal/session"
	"github.com/Dmetrikx/goDiscordPersona/internal/speech"
	"github.com/Dmetrikx/goDiscordPersona/internal/voice"
)

type membershipChecker interface {
	IsMember(ctx context.Context, userID, channelID string) bool
}

type voiceSpeaker interface {
	Kind() voice.Kind
	Speak(ctx context.Context, req voice.Request) error
}

type backgroundRunner interface {
	Run(ctx context.Context)
}

// Bot represents the Discord bot
type Bot struct {
	session    discord.Session
	aiClient   ai.Client
	store      *session.Store
	rates      *gate.RateGate
	membership membershipChecker
	speaker    voiceSpeaker
	registry   *media.Registry
	scheduler  backgroundRunner
	config     *config.Config
	logger     *slog.Logger
	now        func() time.Time
}

// NewBot creates a new bot instance
func NewBot(cfg *config.Config, logger *slog.Logger) (*Bot, error) {
	dg, err := discord.NewDiscordSession(cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	registry, err := media.Load(cfg.MediaFile)
	if err != nil {
		return nil, fmt.Errorf("error loading media content: %w", err)
	}

	aiClient, err := ai.NewAIClient(cfg.ModelAPIKey, cfg.ModelBaseURL, cfg.Model, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating AI client: %w", err)
	}

	store := session.NewStore(ai.RiasPersona, session.DefaultOptions())
	rates := gate.NewRateGate(store, cfg.PrivilegedUserID, gate.DefaultCooldown)

	var strategy voice.Strategy = voice.DisabledStrategy{}
	if cfg.VoiceEnabled() {
		if cfg.VoiceMode == config.VoiceModeLive {
			adapter := discord.NewVoiceAdapter(dg)
			strategy = voice.NewLiveStrategy(adapter, adapter, logger)
		} else {
			strategy = voice.NewFileStrategy(dg, voice.NewDirStore(""), logger)
		}
	}
	synth := speech.NewClient(cfg.SpeechAPIKey, "", logger)

	bot := &Bot{
		session:    dg,
		aiClient:   aiClient,
		store:      store,
		rates:      rates,
		membership: gate.NewMembershipGate(dg, cfg.GuildID, cfg.PrivilegedUserID, cfg.InviteURL, logger),
		speaker:    voice.NewSpeaker(strategy, synth, rates, cfg.VoiceID, logger),
		registry:   registry,
		scheduler:  scheduler.New(dg, registry, cfg.TargetChannelID, dg, logger),
		config:     cfg,
		logger:     logger,
		now:        time.Now,
	}

	// Register event handlers
	dg.AddHandler(bot.messageHandler)
	dg.AddHandler(bot.interactionHandler)

	logger.Info("bot configured",
		"voice_mode", cfg.VoiceMode,
		"model", cfg.Model,
		"emotions", registry.Emotions())

	return bot, nil
}

// Start opens the session, registers commands and starts the scheduler.
// The scheduler stops when ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	err := b.session.Open()
	if err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	user, err := b.session.User("@me")
	if err != nil {
		return fmt.Errorf("error obtaining account details: %w", err)
	}

	b.logger.InfoContext(ctx, "bot started",
		"username", user.Username,
		"user_id", user.ID)

	if err := b.registerCommands(ctx, user.ID); err != nil {
		// the bot still chats without slash commands
		b.logger.ErrorContext(ctx, "failed to register commands", "error", err)
	}

	if b.scheduler != nil {
		go b.scheduler.Run(ctx)
	}

	return nil
}

// Close closes the bot session
func (b *Bot) Close(ctx context.Context) error {
	b.logger.InfoContext(ctx, "closing bot session")
	return b.session.Close()
}

// registerCommands replaces the global command set. Voice commands are
// only offered when voice is enabled.
func (b *Bot) registerCommands(ctx context.Context, appID string) error {
	cmds := commandDefinitions(b.speaker.Kind() != voice.KindDisabled)

	created, err := b.session.ApplicationCommandBulkOverwrite(appID, "", cmds, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}

	b.logger.InfoContext(ctx, "registered commands", "count", len(created))
	return nil
}

func commandDefinitions(voiceEnabled bool) []*discordgo.ApplicationCommand {
	cmds := []*discordgo.ApplicationCommand{
		{
			Name:        CommandStartConversation,
			Description: "Start a new conversation with Rias Gremory",
		},
		{
			Name:        CommandClearMemory,
			Description: "Clear your conversation memory with Rias",
		},
	}
	if !voiceEnabled {
		return cmds
	}

	return append(cmds,
		&discordgo.ApplicationCommand{
			Name:        CommandSpeak,
			Description: "Generate Rias Gremory voice from her message (or your text)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        OptionText,
					Description: "The text for Rias to speak (max 280 characters)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        OptionReplied,
					Description: "Speak my most recent message in this channel",
				},
			},
		},
		&discordgo.ApplicationCommand{
			Name: CommandSpeakMessage,
			Type: discordgo.MessageApplicationCommand,
		},
	)
}

// botID returns the bot's user id from the session state
func (b *Bot) botID() string {
	state := b.session.GetState()
	if state == nil || state.User == nil {
		return ""
	}
	return state.User.ID
}
