// Package session keeps per-user conversation history and rate records in
// memory for the lifetime of the process.
package session

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"
)

// Role of a turn in the outbound context.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Defaults for Options
const (
	DefaultMaxMessages   = 5
	DefaultMaxCharacters = 5000
	DefaultTruncateAt    = 200
)

const truncationMarker = "..."

// Turn is one message of a conversation.
type Turn struct {
	Role Role
	Text string
}

// RateRecord tracks a user's usage for the rate gate.
type RateRecord struct {
	LastRequest   time.Time
	LastVoiceDate string
}

// Options bound the history kept and the context built from it.
type Options struct {
	// MaxMessages is the window sent to the model; history keeps twice that.
	MaxMessages int
	// MaxCharacters caps the total text length of the built context.
	MaxCharacters int
	// TruncateAt caps each turn's text before inclusion.
	TruncateAt int
}

// DefaultOptions returns the production limits.
func DefaultOptions() Options {
	return Options{
		MaxMessages:   DefaultMaxMessages,
		MaxCharacters: DefaultMaxCharacters,
		TruncateAt:    DefaultTruncateAt,
	}
}

// CompleteFunc produces the assistant reply for a built context.
type CompleteFunc func(ctx context.Context, messages []Turn) (string, error)

// Store owns every session and rate record. Operations on the same user are
// serialized; different users proceed independently.
type Store struct {
	persona string
	opts    Options

	mu       sync.Mutex
	locks    map[string]*userLock
	sessions map[string][]Turn
	rates    map[string]*RateRecord
}

// NewStore creates a store whose contexts start with the persona prompt.
func NewStore(persona string, opts Options) *Store {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	if opts.MaxCharacters <= 0 {
		opts.MaxCharacters = DefaultMaxCharacters
	}
	if opts.TruncateAt <= 0 {
		opts.TruncateAt = DefaultTruncateAt
	}

	return &Store{
		persona:  persona,
		opts:     opts,
		locks:    make(map[string]*userLock),
		sessions: make(map[string][]Turn),
		rates:    make(map[string]*RateRecord),
	}
}

// userLock serializes one user's operations. refs counts holders and
// waiters; the entry is dropped when it reaches zero.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// lockUser blocks until the caller owns userID and returns the release func.
func (s *Store) lockUser(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// AppendUserTurn records a user message, creating the session if needed.
func (s *Store) AppendUserTurn(userID, text string) {
	defer s.lockUser(userID)()

	s.appendTurn(userID, Turn{Role: RoleUser, Text: text})
}

// AppendAssistantTurn records a reply and evicts the oldest turns beyond
// twice the message window.
func (s *Store) AppendAssistantTurn(userID, text string) {
	defer s.lockUser(userID)()

	s.appendAssistant(userID, text)
}

// BuildContext returns the persona prompt followed by the user's recent
// turns, bounded by count, per-turn length and total length.
func (s *Store) BuildContext(userID string) []Turn {
	defer s.lockUser(userID)()

	return s.buildContext(userID)
}

// Clear removes the user's session. Rate records are kept.
func (s *Store) Clear(userID string) {
	defer s.lockUser(userID)()

	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// Len returns the number of stored turns for the user.
func (s *Store) Len(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions[userID])
}

// History returns a copy of the stored turns.
func (s *Store) History(userID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[userID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Exchange runs one conversational round under the user's lock: the user
// turn is appended, the context built and passed to complete, and the reply
// appended. On error the user turn stays and no reply is recorded.
func (s *Store) Exchange(ctx context.Context, userID, text string, complete CompleteFunc) (string, error) {
	defer s.lockUser(userID)()

	s.appendTurn(userID, Turn{Role: RoleUser, Text: text})

	reply, err := complete(ctx, s.buildContext(userID))
	if err != nil {
		return "", err
	}

	s.appendAssistant(userID, reply)
	return reply, nil
}

// UpdateRate applies fn to the user's rate record atomically.
func (s *Store) UpdateRate(userID string, fn func(rec *RateRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rates[userID]
	if !ok {
		rec = &RateRecord{}
		s.rates[userID] = rec
	}
	fn(rec)
}

// Rate returns a copy of the user's rate record.
func (s *Store) Rate(userID string) RateRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.rates[userID]; ok {
		return *rec
	}
	return RateRecord{}
}

// Options returns the limits in effect.
func (s *Store) Options() Options {
	return s.opts
}

func (s *Store) appendTurn(userID string, t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = append(s.sessions[userID], t)
}

func (s *Store) appendAssistant(userID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[userID], Turn{Role: RoleAssistant, Text: text})
	if limit := 2 * s.opts.MaxMessages; len(turns) > limit {
		kept := make([]Turn, limit)
		copy(kept, turns[len(turns)-limit:])
		turns = kept
	}
	s.sessions[userID] = turns
}

func (s *Store) buildContext(userID string) []Turn {
	s.mu.Lock()
	turns := s.sessions[userID]
	start := 0
	if len(turns) > s.opts.MaxMessages {
		start = len(turns) - s.opts.MaxMessages
	}
	window := make([]Turn, 0, len(turns)-start+1)
	window = append(window, Turn{Role: RoleSystem, Text: s.persona})
	for _, t := range turns[start:] {
		window = append(window, Turn{Role: t.Role, Text: truncate(t.Text, s.opts.TruncateAt)})
	}
	s.mu.Unlock()

	total := totalLength(window)
	for total > s.opts.MaxCharacters && len(window) > 1 {
		total -= utf8.RuneCountInString(window[1].Text)
		window = append(window[:1], window[2:]...)
	}
	return window
}

// truncate cuts text to max characters and marks the cut.
func truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + truncationMarker
}

// totalLength counts characters across all turns.
func totalLength(turns []Turn) int {
	n := 0
	for _, t := range turns {
		n += utf8.RuneCountInString(t.Text)
	}
	return n
}
