package speech

import (
	"encoding/json"
	"fmt"
)

const detailPreview = 100

// SynthesisError is a non-2xx answer from the synthesis service.
type SynthesisError struct {
	StatusCode int
	Detail     string
}

// NewSynthesisError builds the error from a failed response body.
func NewSynthesisError(statusCode int, body []byte) *SynthesisError {
	return &SynthesisError{
		StatusCode: statusCode,
		Detail:     extractDetail(body),
	}
}

// Error implements the error interface
func (e *SynthesisError) Error() string {
	return fmt.Sprintf("ElevenLabs API failed. Status: %d. Detail: %s...", e.StatusCode, e.Detail)
}

type errorPayload struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// extractDetail pulls the "message" field out of an error payload. Bodies
// without one are cut to their first 100 characters.
func extractDetail(body []byte) string {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}

		var nested errorPayload
		if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &nested) == nil && nested.Message != "" {
			return nested.Message
		}

		var text string
		if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &text) == nil && text != "" {
			return text
		}
	}

	runes := []rune(string(body))
	if len(runes) > detailPreview {
		runes = runes[:detailPreview]
	}
	return string(runes)
}
