// Package media holds the static image tables: emotion keys the persona can
// emit, filler media for scheduled posts, and the conversation intro.
package media

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

// Item is a media URL with an optional caption.
type Item struct {
	URL     string `yaml:"url"`
	Caption string `yaml:"caption"`
}

// Registry is read-only after construction and safe for concurrent use.
type Registry struct {
	emotions map[string]string
	fillers  []Item
	intro    Item
}

type content struct {
	Emotions map[string]string `yaml:"emotions"`
	Fillers  []Item            `yaml:"fillers"`
	Intro    Item              `yaml:"intro"`
}

// Default returns the registry built from the embedded content table.
func Default() (*Registry, error) {
	return Parse(defaultContent)
}

// Load reads a YAML content file. An empty path returns the embedded table.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read media file: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML. Emotion keys are lower-cased.
func Parse(data []byte) (*Registry, error) {
	var c content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse media content: %w", err)
	}
	if len(c.Fillers) == 0 {
		return nil, errors.New("media content has no fillers")
	}

	r := &Registry{
		emotions: make(map[string]string, len(c.Emotions)),
		fillers:  c.Fillers,
		intro:    c.Intro,
	}
	for k, v := range c.Emotions {
		r.emotions[strings.ToLower(k)] = v
	}
	return r, nil
}

// New builds a registry directly, mostly for tests.
func New(emotions map[string]string, fillers []Item, intro Item) *Registry {
	r := &Registry{
		emotions: make(map[string]string, len(emotions)),
		fillers:  fillers,
		intro:    intro,
	}
	for k, v := range emotions {
		r.emotions[strings.ToLower(k)] = v
	}
	return r
}

// Emotion resolves an emotion key to its media URL.
func (r *Registry) Emotion(key string) (string, bool) {
	url, ok := r.emotions[strings.ToLower(key)]
	return url, ok
}

// Emotions returns the number of known emotion keys.
func (r *Registry) Emotions() int {
	return len(r.emotions)
}

// Fillers returns a copy of the scheduled-post table.
func (r *Registry) Fillers() []Item {
	out := make([]Item, len(r.fillers))
	copy(out, r.fillers)
	return out
}

// RandomFiller picks a filler uniformly using rng.
func (r *Registry) RandomFiller(rng *rand.Rand) Item {
	return r.fillers[rng.IntN(len(r.fillers))]
}

// Intro is the media sent when a conversation starts.
func (r *Registry) Intro() Item {
	return r.intro
}
