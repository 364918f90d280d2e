package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Voice delivery modes selectable through VOICE_MODE.
const (
	VoiceModeFile     = "file"
	VoiceModeLive     = "live"
	VoiceModeDisabled = "disabled"
)

// Defaults for optional settings
const (
	DefaultPort         = "3000"
	DefaultVoiceMode    = VoiceModeFile
	DefaultVoiceID      = "cgSgspJ2msm6clMCkdW9"
	DefaultModel        = "llama-3.3-70b-versatile"
	DefaultModelBaseURL = "https://api.groq.com/openai/v1"
	DefaultInviteURL    = "https://discord.gg/bxSnZQBsdf"
	DefaultLogFormat    = "json"
	DefaultLogLevel     = "info"
)

// Config holds all configuration values
type Config struct {
	DiscordToken     string
	ModelAPIKey      string
	SpeechAPIKey     string
	PrivilegedUserID string
	GuildID          string
	TargetChannelID  string
	Port             string

	VoiceMode    string
	VoiceID      string
	Model        string
	ModelBaseURL string
	InviteURL    string
	MediaFile    string
	LogFormat    string
	LogLevel     string
}

// LoadConfig loads environment variables from .env file and returns a Config struct
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional - may not exist in production)
	_ = godotenv.Load(".env")

	config := &Config{
		DiscordToken:     env("DISCORD_BOT_TOKEN"),
		ModelAPIKey:      env("GROQ_API_KEY"),
		SpeechAPIKey:     env("ELEVENLABS_API_KEY"),
		PrivilegedUserID: env("PRIVILEGED_USER_ID"),
		GuildID:          env("GUILD_ID"),
		TargetChannelID:  env("TARGET_CHANNEL_ID"),
		Port:             envOr("PORT", DefaultPort),
		VoiceMode:        strings.ToLower(envOr("VOICE_MODE", DefaultVoiceMode)),
		VoiceID:          envOr("ELEVENLABS_VOICE_ID", DefaultVoiceID),
		Model:            envOr("GROQ_MODEL", DefaultModel),
		ModelBaseURL:     envOr("GROQ_BASE_URL", DefaultModelBaseURL),
		InviteURL:        envOr("INVITE_URL", DefaultInviteURL),
		MediaFile:        env("MEDIA_FILE"),
		LogFormat:        envOr("LOG_FORMAT", DefaultLogFormat),
		LogLevel:         envOr("LOG_LEVEL", DefaultLogLevel),
	}

	return config, nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"DISCORD_BOT_TOKEN", c.DiscordToken},
		{"GROQ_API_KEY", c.ModelAPIKey},
		{"PRIVILEGED_USER_ID", c.PrivilegedUserID},
		{"GUILD_ID", c.GuildID},
		{"TARGET_CHANNEL_ID", c.TargetChannelID},
	}
	for _, r := range required {
		if r.value == "" {
			return newMissingError(r.field, "required to start the bot")
		}
	}

	switch c.VoiceMode {
	case VoiceModeFile, VoiceModeLive:
		if c.SpeechAPIKey == "" {
			return newMissingError("ELEVENLABS_API_KEY", "required unless VOICE_MODE=disabled")
		}
	case VoiceModeDisabled:
	default:
		return NewConfigError("VOICE_MODE", "must be one of file, live, disabled")
	}

	if c.Port == "" || strings.ContainsAny(c.Port, " \t") {
		return NewConfigError("PORT", "invalid value")
	}

	return nil
}

// ListenAddr returns the address for the keep-alive server. A PORT that
// already contains a colon is used as-is.
func (c *Config) ListenAddr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// VoiceEnabled reports whether a voice delivery strategy is configured.
func (c *Config) VoiceEnabled() bool {
	return c.VoiceMode != VoiceModeDisabled
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOr(key, fallback string) string {
	if v := env(key); v != "" {
		return v
	}
	return fallback
}
