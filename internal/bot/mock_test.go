package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Dmetrikx/goDiscordPersona/internal/gate"
	"github.com/Dmetrikx/goDiscordPersona/internal/media"
	"github.com/Dmetrikx/goDiscordPersona/internal/session"
	"github.com/Dmetrikx/goDiscordPersona/internal/voice"
)

const (
	testBotID      = "bot-id"
	testPrivileged = "owner-id"
)

// mockDiscordSession is a mock implementation for testing
type mockDiscordSession struct {
	mu    sync.Mutex
	state *discordgo.State

	messages        map[string]*discordgo.Message
	channelMessages []*discordgo.Message

	sent          []*discordgo.MessageSend
	responses     []*discordgo.InteractionResponse
	edits         []string
	deletes       int
	followups     []*discordgo.WebhookParams
	commands      []*discordgo.ApplicationCommand
	respondErrors int
}

func newMockSession() *mockDiscordSession {
	state := discordgo.NewState()
	state.User = &discordgo.User{ID: testBotID, Username: "rias"}
	return &mockDiscordSession{
		state:    state,
		messages: make(map[string]*discordgo.Message),
	}
}

func (m *mockDiscordSession) Open() error {
	return nil
}

func (m *mockDiscordSession) Close() error {
	return nil
}

func (m *mockDiscordSession) User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error) {
	return &discordgo.User{ID: testBotID, Username: "rias"}, nil
}

func (m *mockDiscordSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	return &discordgo.Message{ID: "sent-id", ChannelID: channelID, Content: data.Content}, nil
}

func (m *mockDiscordSession) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	return m.channelMessages, nil
}

func (m *mockDiscordSession) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if msg, ok := m.messages[messageID]; ok {
		return msg, nil
	}
	return nil, errors.New("unknown message")
}

func (m *mockDiscordSession) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	return &discordgo.Member{User: &discordgo.User{ID: userID}}, nil
}

func (m *mockDiscordSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	if m.respondErrors > 0 {
		m.respondErrors--
		return errors.New("interaction failed")
	}
	return nil
}

func (m *mockDiscordSession) InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, *newresp.Content)
	return &discordgo.Message{}, nil
}

func (m *mockDiscordSession) InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	return nil
}

func (m *mockDiscordSession) FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followups = append(m.followups, data)
	return &discordgo.Message{}, nil
}

func (m *mockDiscordSession) ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	m.commands = commands
	return commands, nil
}

func (m *mockDiscordSession) AddHandler(handler interface{}) func() {
	return func() {}
}

func (m *mockDiscordSession) GetState() *discordgo.State {
	return m.state
}

type mockAIClient struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (m *mockAIClient) Complete(ctx context.Context, messages []session.Turn) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.response, m.err
}

type mockMembership struct {
	member bool
	checks int
}

func (m *mockMembership) IsMember(ctx context.Context, userID, channelID string) bool {
	m.checks++
	return m.member
}

type mockSpeaker struct {
	kind     voice.Kind
	err      error
	panicMsg string
	requests []voice.Request
}

func (m *mockSpeaker) Kind() voice.Kind {
	return m.kind
}

func (m *mockSpeaker) Speak(ctx context.Context, req voice.Request) error {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	m.requests = append(m.requests, req)
	return m.err
}

type testBot struct {
	*Bot
	session    *mockDiscordSession
	ai         *mockAIClient
	membership *mockMembership
	speaker    *mockSpeaker
}

func newTestBot() *testBot {
	sess := newMockSession()
	aiClient := &mockAIClient{response: "{{hug}} welcome back"}
	membership := &mockMembership{member: true}
	speaker := &mockSpeaker{kind: voice.KindFile}
	store := session.NewStore("persona", session.DefaultOptions())

	registry := media.New(
		map[string]string{"hug": "https://example.com/hug.gif"},
		[]media.Item{{URL: "https://example.com/filler.gif"}},
		media.Item{URL: "https://example.com/intro.gif", Caption: "Welcome, beloved."},
	)

	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	b := &Bot{
		session:    sess,
		aiClient:   aiClient,
		store:      store,
		rates:      gate.NewRateGate(store, testPrivileged, gate.DefaultCooldown),
		membership: membership,
		speaker:    speaker,
		registry:   registry,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        func() time.Time { return now },
	}

	return &testBot{
		Bot:        b,
		session:    sess,
		ai:         aiClient,
		membership: membership,
		speaker:    speaker,
	}
}

func (tb *testBot) advance(d time.Duration) {
	next := tb.now().Add(d)
	tb.now = func() time.Time { return next }
}
