package voice

import (
	"errors"
	"fmt"
)

// Validation reasons
const (
	ReasonTooLong           = "too_long"
	ReasonNoContent         = "no_content"
	ReasonNotBotMessage     = "not_bot_message"
	ReasonNotInVoice        = "not_in_voice"
	ReasonMissingPermission = "missing_permission"
)

// User-facing validation messages
const (
	MsgTooLong           = "❌ Text is too long. Please keep it under 280 characters."
	MsgNoContent         = "❌ Could not find text content in the selected message."
	MsgNothingToSpeak    = "❌ Please provide text or reply to one of my messages to generate voice."
	MsgNotBotMessage     = "❌ You can only request voice generation from one of my messages."
	MsgNotInVoice        = "❌ You need to be in a voice channel to use this command."
	MsgMissingPermission = "❌ I don't have permission to join or speak in your voice channel."
	MsgQuota             = "You can only use the voice command once per day."
)

var (
	// ErrPlaybackTimeout is returned when live playback exceeds its limit.
	ErrPlaybackTimeout = errors.New("voice playback timed out")
	// ErrDisabled is returned by the disabled strategy.
	ErrDisabled = errors.New("voice is disabled")
)

// ValidationError is a request the user must fix. Message is shown as is.
type ValidationError struct {
	Reason  string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(reason, message string) *ValidationError {
	return &ValidationError{
		Reason:  reason,
		Message: message,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("voice validation error (%s): %s", e.Reason, e.Message)
}
