package reply

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Embed styling
const (
	EmbedColor      = 0xCD0000
	FooterPersona   = "Rias Gremory"
	FooterScheduled = "Scheduled by Rias Gremory"
	FooterIntro     = "President of the Occult Research Club"
)

// MaxMessageLength is Discord's limit for plain message content.
const MaxMessageLength = 2000

const fallbackPreview = 100

// Sender is the part of the Discord session used to deliver replies.
type Sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Target identifies where a reply goes. MessageID, when set, is the
// message being replied to.
type Target struct {
	ChannelID string
	GuildID   string
	MessageID string
}

func (t Target) reference() *discordgo.MessageReference {
	if t.MessageID == "" {
		return nil
	}
	return &discordgo.MessageReference{
		MessageID: t.MessageID,
		ChannelID: t.ChannelID,
		GuildID:   t.GuildID,
	}
}

// NewEmbed builds the persona-styled media embed.
func NewEmbed(imageURL, description, footer string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Description: description,
		Color:       EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}
	if imageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: imageURL}
	}
	return embed
}

// Deliver sends p to the target: an embed when it carries media, chunked
// plain text otherwise. If that fails a short error notice is sent instead,
// and only a failure of the notice is returned.
func Deliver(ctx context.Context, sender Sender, p Parsed, target Target) error {
	err := send(ctx, sender, p, target)
	if err == nil {
		return nil
	}

	notice := fmt.Sprintf("Error processing message: %s...", Preview(p.Text, fallbackPreview))
	_, ferr := sender.ChannelMessageSendComplex(target.ChannelID, &discordgo.MessageSend{
		Content:   notice,
		Reference: target.reference(),
	}, discordgo.WithContext(ctx))
	if ferr != nil {
		return fmt.Errorf("failed to send reply (%v) and fallback notice: %w", err, ferr)
	}
	return nil
}

func send(ctx context.Context, sender Sender, p Parsed, target Target) error {
	if p.HasMedia() {
		_, err := sender.ChannelMessageSendComplex(target.ChannelID, &discordgo.MessageSend{
			Embeds:    []*discordgo.MessageEmbed{NewEmbed(p.MediaURL, p.Text, FooterPersona)},
			Reference: target.reference(),
		}, discordgo.WithContext(ctx))
		return err
	}

	for i, chunk := range Chunk(p.Text, MaxMessageLength) {
		msg := &discordgo.MessageSend{Content: chunk}
		if i == 0 {
			msg.Reference = target.reference()
		}
		if _, err := sender.ChannelMessageSendComplex(target.ChannelID, msg, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to send message chunk %d: %w", i, err)
		}
	}
	return nil
}

// Chunk splits text into pieces of at most size characters. Empty text
// yields no chunks.
func Chunk(text string, size int) []string {
	runes := []rune(text)
	var chunks []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// Preview returns at most n characters of text.
func Preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
