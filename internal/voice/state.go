// Package voice turns persona text into speech and delivers it either as a
// file attachment or by playing it in the requester's voice channel.
package voice

import "fmt"

// MaxTextLength is the longest text, in characters, accepted for synthesis.
const MaxTextLength = 280

// State of a single voice request.
type State int

const (
	StateIdle State = iota
	StateRequested
	StateSynthesizing
	StateDelivering
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequested:
		return "requested"
	case StateSynthesizing:
		return "synthesizing"
	case StateDelivering:
		return "delivering"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Kind selects the delivery strategy.
type Kind string

const (
	KindDisabled Kind = "disabled"
	KindFile     Kind = "file"
	KindLive     Kind = "live"
)

// Request is one voice generation request.
type Request struct {
	// ID names the request; the interaction id when there is one.
	ID        string
	UserID    string
	UserTag   string
	GuildID   string
	ChannelID string
	Text      string
	// ReplyToID is the message the delivered audio should reference.
	ReplyToID string
}
