package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Dmetrikx/goDiscordPersona/internal/reply"
)

// hasCommandPrefix reports whether content starts with a command prefix
func hasCommandPrefix(content string) bool {
	for _, p := range commandPrefixes {
		if strings.HasPrefix(content, p) {
			return true
		}
	}
	return false
}

// stripMention removes mentions of the bot from content
func stripMention(content, botID string) string {
	if botID == "" {
		return strings.TrimSpace(content)
	}
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	return strings.TrimSpace(content)
}

// mentions reports whether the message mentions userID
func mentions(m *discordgo.Message, userID string) bool {
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

// voiceText picks the speakable text of a bot message: the first embed's
// description if present, otherwise the content, with tags removed.
func voiceText(m *discordgo.Message) string {
	text := m.Content
	if len(m.Embeds) > 0 && m.Embeds[0] != nil && m.Embeds[0].Description != "" {
		text = m.Embeds[0].Description
	}
	return reply.CleanText(text)
}

// getUserFromInteraction returns the invoking user for guild and DM interactions
func getUserFromInteraction(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// optionMap indexes slash command options by name
func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

// userTag formats a user for display, without the legacy discriminator
// when the account has none
func userTag(u *discordgo.User) string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}
