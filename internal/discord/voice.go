package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/Dmetrikx/goDiscordPersona/internal/voice"
)

// VoiceAdapter gives the live voice strategy access to gateway voice state
// and connections.
type VoiceAdapter struct {
	session *discordgo.Session
}

// NewVoiceAdapter creates a voice adapter over an open session.
func NewVoiceAdapter(d *DiscordSession) *VoiceAdapter {
	return &VoiceAdapter{session: d.Session}
}

// UserVoiceChannel looks up the user's voice channel in the cached state.
func (v *VoiceAdapter) UserVoiceChannel(guildID, userID string) (string, bool) {
	if guildID == "" {
		return "", false
	}
	vs, err := v.session.State.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

// CanSpeak reports whether the bot has Connect and Speak in channelID.
func (v *VoiceAdapter) CanSpeak(channelID string) (bool, error) {
	perms, err := v.session.UserChannelPermissions(v.session.State.User.ID, channelID)
	if err != nil {
		return false, err
	}
	const need = discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak
	return perms&need == need, nil
}

// JoinVoice joins channelID, giving up when ctx expires. A join that
// completes after giving up is disconnected.
func (v *VoiceAdapter) JoinVoice(ctx context.Context, guildID, channelID string) (voice.VoiceConn, error) {
	type result struct {
		vc  *discordgo.VoiceConnection
		err error
	}

	ch := make(chan result, 1)
	go func() {
		vc, err := v.session.ChannelVoiceJoin(guildID, channelID, false, true)
		ch <- result{vc: vc, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if r.vc != nil {
				_ = r.vc.Disconnect()
			}
			return nil, r.err
		}
		return &voiceConn{vc: r.vc}, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.vc != nil {
				_ = r.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
}

type voiceConn struct {
	vc *discordgo.VoiceConnection
}

func (c *voiceConn) Speaking(on bool) error {
	return c.vc.Speaking(on)
}

func (c *voiceConn) SendOpus(ctx context.Context, packet []byte) error {
	select {
	case c.vc.OpusSend <- packet:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *voiceConn) Disconnect() error {
	return c.vc.Disconnect()
}

var (
	_ voice.VoiceLocator = (*VoiceAdapter)(nil)
	_ voice.VoiceJoiner  = (*VoiceAdapter)(nil)
)
