package gate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Invitation texts shown to users outside the required guild.
const (
	InvitePrompt = "To use me, join **@squad13girls** first!"
	InviteLabel  = "✅ Join @squad13girls"
)

// MemberClient is the slice of the Discord session the membership gate uses.
type MemberClient interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// MembershipGate checks that a user belongs to the required guild.
type MembershipGate struct {
	client       MemberClient
	guildID      string
	privilegedID string
	inviteURL    string
	logger       *slog.Logger
}

// NewMembershipGate creates a membership gate
func NewMembershipGate(client MemberClient, guildID, privilegedID, inviteURL string, logger *slog.Logger) *MembershipGate {
	return &MembershipGate{
		client:       client,
		guildID:      guildID,
		privilegedID: privilegedID,
		inviteURL:    inviteURL,
		logger:       logger,
	}
}

// IsMember reports whether userID is in the required guild. When the user is
// definitely not a member, one invitation is posted to channelID. Lookup
// failures are logged and fail closed without an invitation.
func (g *MembershipGate) IsMember(ctx context.Context, userID, channelID string) bool {
	if g.privilegedID != "" && userID == g.privilegedID {
		return true
	}

	member, err := g.client.GuildMember(g.guildID, userID, discordgo.WithContext(ctx))
	if err == nil && member != nil {
		return true
	}

	if err != nil && !isUnknownMember(err) {
		g.logger.ErrorContext(ctx, "guild membership check failed",
			"guild_id", g.guildID,
			"user_id", userID,
			"error", err)
		return false
	}

	g.logger.InfoContext(ctx, "user is not a guild member",
		"guild_id", g.guildID,
		"user_id", userID)
	g.sendInvite(ctx, channelID)
	return false
}

func (g *MembershipGate) sendInvite(ctx context.Context, channelID string) {
	if channelID == "" {
		return
	}

	_, err := g.client.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: InvitePrompt,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label: InviteLabel,
						Style: discordgo.LinkButton,
						URL:   g.inviteURL,
					},
				},
			},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to send invite prompt",
			"channel_id", channelID,
			"error", err)
	}
}

// isUnknownMember reports whether err means the user is not in the guild.
func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMember {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
