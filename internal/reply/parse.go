// Package reply turns raw model output into a Discord reply: the leading
// emotion tag picks a media item, the rest becomes the caption.
package reply

import (
	"regexp"
	"strings"

	"github.com/Dmetrikx/goDiscordPersona/internal/media"
)

var (
	emotionTag = regexp.MustCompile(`\{\{(\w+)\}\}`)
	anyTag     = regexp.MustCompile(`\{\{.*?\}\}`)
)

// Parsed is model output split into its emotion media and caption text.
type Parsed struct {
	EmotionKey string
	MediaURL   string
	Text       string
}

// HasMedia reports whether the reply resolved to a media item.
func (p Parsed) HasMedia() bool {
	return p.MediaURL != ""
}

// Parse extracts the first {{key}} tag from raw. When the key is known the
// tag is removed and the text trimmed; otherwise the text is left as is.
func Parse(raw string, registry *media.Registry) Parsed {
	loc := emotionTag.FindStringSubmatchIndex(raw)
	if loc == nil {
		return Parsed{Text: raw}
	}

	key := strings.ToLower(raw[loc[2]:loc[3]])
	url, ok := registry.Emotion(key)
	if !ok {
		return Parsed{Text: raw}
	}

	return Parsed{
		EmotionKey: key,
		MediaURL:   url,
		Text:       strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:]),
	}
}

// CleanText removes every {{...}} token and trims the result.
func CleanText(text string) string {
	return strings.TrimSpace(anyTag.ReplaceAllString(text, ""))
}
