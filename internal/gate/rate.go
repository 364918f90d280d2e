// Package gate decides whether a request may proceed: per-user cooldown,
// daily voice quota and required group membership.
package gate

import (
	"time"

	"github.com/Dmetrikx/goDiscordPersona/internal/session"
)

// DefaultCooldown is the minimum gap between processed chat messages.
const DefaultCooldown = 10 * time.Second

// DateLayout formats the calendar day used for the voice quota.
const DateLayout = "2006-01-02"

// RateGate enforces the message cooldown and the daily voice quota. State
// lives in the session store's rate records.
type RateGate struct {
	store        *session.Store
	privilegedID string
	cooldown     time.Duration
}

// NewRateGate creates a gate; the privileged user bypasses every limit.
func NewRateGate(store *session.Store, privilegedID string, cooldown time.Duration) *RateGate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &RateGate{
		store:        store,
		privilegedID: privilegedID,
		cooldown:     cooldown,
	}
}

// IsPrivileged reports whether userID is exempt from limits.
func (g *RateGate) IsPrivileged(userID string) bool {
	return g.privilegedID != "" && userID == g.privilegedID
}

// AllowMessage reports whether the user is outside the cooldown window.
// The request time is recorded only when allowed.
func (g *RateGate) AllowMessage(userID string, now time.Time) bool {
	if g.IsPrivileged(userID) {
		return true
	}

	allowed := false
	g.store.UpdateRate(userID, func(rec *session.RateRecord) {
		if !rec.LastRequest.IsZero() && now.Sub(rec.LastRequest) < g.cooldown {
			return
		}
		rec.LastRequest = now
		allowed = true
	})
	return allowed
}

// AllowVoice reports whether the user still has today's voice quota. It
// does not consume the quota; see MarkVoiceUsed.
func (g *RateGate) AllowVoice(userID, today string) bool {
	if g.IsPrivileged(userID) {
		return true
	}
	return g.store.Rate(userID).LastVoiceDate != today
}

// MarkVoiceUsed consumes today's quota after a successful delivery.
func (g *RateGate) MarkVoiceUsed(userID, today string) {
	if g.IsPrivileged(userID) {
		return
	}
	g.store.UpdateRate(userID, func(rec *session.RateRecord) {
		rec.LastVoiceDate = today
	})
}

// Today formats t as a quota day in UTC.
func Today(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
