// Package speech is a small ElevenLabs text-to-speech client.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Synthesis defaults
const (
	DefaultBaseURL         = "https://api.elevenlabs.io/v1"
	DefaultModelID         = "eleven_multilingual_v2"
	DefaultStability       = 0.75
	DefaultSimilarityBoost = 0.85
	RequestTimeout         = 60 * time.Second
)

// Output formats
const (
	FormatMP3  = "mp3_44100_128"
	FormatOpus = "opus_48000_64"
)

// Request describes one synthesis call.
type Request struct {
	Text            string
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
	OutputFormat    string
}

// NewRequest fills in the default model and voice settings.
func NewRequest(text, voiceID, format string) Request {
	return Request{
		Text:            text,
		VoiceID:         voiceID,
		ModelID:         DefaultModelID,
		Stability:       DefaultStability,
		SimilarityBoost: DefaultSimilarityBoost,
		OutputFormat:    format,
	}
}

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// Client calls the ElevenLabs REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a synthesis client. An empty baseURL uses the public API.
func NewClient(apiKey, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: RequestTimeout,
		},
		logger: logger,
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesisBody struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize returns the audio bytes for req.Text.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	jsonData, err := json.Marshal(synthesisBody{
		Text:    req.Text,
		ModelID: req.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       req.Stability,
			SimilarityBoost: req.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, url.PathEscape(req.VoiceID))
	if req.OutputFormat != "" {
		endpoint += "?" + url.Values{"output_format": {req.OutputFormat}}.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.apiKey)

	c.logger.InfoContext(ctx, "sending synthesis request",
		"voice_id", req.VoiceID,
		"output_format", req.OutputFormat,
		"text_length", len([]rune(req.Text)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.ErrorContext(ctx, "ElevenLabs request failed", "error", err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		synthErr := NewSynthesisError(resp.StatusCode, body)
		c.logger.ErrorContext(ctx, "ElevenLabs API error",
			"status_code", resp.StatusCode,
			"detail", synthErr.Detail)
		return nil, synthErr
	}

	c.logger.InfoContext(ctx, "received synthesized audio", "audio_bytes", len(body))
	return body, nil
}
