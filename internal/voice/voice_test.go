package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dmetrikx/goDiscordPersona/internal/gate"
	"github.com/Dmetrikx/goDiscordPersona/internal/session"
	"github.com/Dmetrikx/goDiscordPersona/internal/speech"
)

const privileged = "owner"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSynth struct {
	audio []byte
	err   error
	calls []speech.Request
}

func (f *fakeSynth) Synthesize(ctx context.Context, req speech.Request) ([]byte, error) {
	f.calls = append(f.calls, req)
	return f.audio, f.err
}

type fakeStore struct {
	files   map[string][]byte
	written []string
	removed []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string][]byte)}
}

func (f *fakeStore) Write(name string, data []byte) (string, error) {
	path := "/tmp/" + name
	f.files[path] = data
	f.written = append(f.written, path)
	return path, nil
}

func (f *fakeStore) Open(path string) (fs.File, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return fstest.MapFS{"a": &fstest.MapFile{Data: data}}.Open("a")
}

func (f *fakeStore) Remove(path string) error {
	delete(f.files, path)
	f.removed = append(f.removed, path)
	return nil
}

type fakeSender struct {
	err  error
	sent []*discordgo.MessageSend
}

func (f *fakeSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sent = append(f.sent, data)
	if f.err != nil {
		return nil, f.err
	}
	return &discordgo.Message{ID: "sent"}, nil
}

type fixture struct {
	synth   *fakeSynth
	store   *fakeStore
	sender  *fakeSender
	rates   *gate.RateGate
	speaker *Speaker
}

func newFileFixture() *fixture {
	f := &fixture{
		synth:  &fakeSynth{audio: []byte("mp3-data")},
		store:  newFakeStore(),
		sender: &fakeSender{},
		rates:  gate.NewRateGate(session.NewStore("p", session.DefaultOptions()), privileged, 0),
	}
	strategy := NewFileStrategy(f.sender, f.store, discardLogger())
	f.speaker = NewSpeaker(strategy, f.synth, f.rates, "voice-1", discardLogger())
	f.speaker.now = func() time.Time { return time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC) }
	return f
}

func request(text string) Request {
	return Request{
		ID:        "interaction-1",
		UserID:    "u1",
		UserTag:   "someone",
		GuildID:   "g1",
		ChannelID: "c1",
		Text:      text,
		ReplyToID: "m1",
	}
}

func TestSpeakRejectsLongTextBeforeSynthesis(t *testing.T) {
	f := newFileFixture()

	err := f.speaker.Speak(context.Background(), request(strings.Repeat("a", MaxTextLength+1)))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, ReasonTooLong, vErr.Reason)
	assert.Equal(t, MsgTooLong, vErr.Message)
	assert.Empty(t, f.synth.calls)
	assert.True(t, f.rates.AllowVoice("u1", "2026-10-17"))
}

func TestSpeakAcceptsMaxLength(t *testing.T) {
	f := newFileFixture()

	err := f.speaker.Speak(context.Background(), request(strings.Repeat("é", MaxTextLength)))
	require.NoError(t, err)
	assert.Len(t, f.synth.calls, 1)
}

func TestSpeakRejectsEmptyText(t *testing.T) {
	f := newFileFixture()

	err := f.speaker.Speak(context.Background(), request("   "))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, ReasonNoContent, vErr.Reason)
	assert.Empty(t, f.synth.calls)
}

func TestSpeakFileDelivery(t *testing.T) {
	f := newFileFixture()

	err := f.speaker.Speak(context.Background(), request("  hello there "))
	require.NoError(t, err)

	require.Len(t, f.synth.calls, 1)
	assert.Equal(t, "hello there", f.synth.calls[0].Text)
	assert.Equal(t, "voice-1", f.synth.calls[0].VoiceID)
	assert.Equal(t, speech.FormatMP3, f.synth.calls[0].OutputFormat)

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, "🎙️ **someone** requested Rias Gremory voice:", msg.Content)
	require.Len(t, msg.Files, 1)
	assert.Equal(t, "rias_voice_interaction-1.mp3", msg.Files[0].Name)
	require.NotNil(t, msg.Reference)
	assert.Equal(t, "m1", msg.Reference.MessageID)

	assert.Equal(t, f.store.written, f.store.removed)
	assert.Empty(t, f.store.files)
	assert.False(t, f.rates.AllowVoice("u1", "2026-10-17"))
}

func TestSpeakRemovesArtifactWhenSendFails(t *testing.T) {
	f := newFileFixture()
	f.sender.err = errors.New("upload failed")

	err := f.speaker.Speak(context.Background(), request("hello"))
	require.Error(t, err)

	require.Len(t, f.store.written, 1)
	assert.Equal(t, f.store.written, f.store.removed)
	assert.Empty(t, f.store.files)
	assert.True(t, f.rates.AllowVoice("u1", "2026-10-17"))
}

func TestSpeakSynthesisFailureKeepsQuota(t *testing.T) {
	f := newFileFixture()
	f.synth.err = &speech.SynthesisError{StatusCode: 401, Detail: "bad key"}

	err := f.speaker.Speak(context.Background(), request("hello"))

	var synthErr *speech.SynthesisError
	require.True(t, errors.As(err, &synthErr))
	assert.Empty(t, f.store.written)
	assert.True(t, f.rates.AllowVoice("u1", "2026-10-17"))
}

func TestSpeakDailyQuota(t *testing.T) {
	f := newFileFixture()

	require.NoError(t, f.speaker.Speak(context.Background(), request("one")))

	err := f.speaker.Speak(context.Background(), request("two"))
	var denied *gate.DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, gate.ReasonQuota, denied.Reason)
	assert.Equal(t, MsgQuota, denied.Message)
	assert.Len(t, f.synth.calls, 1)

	f.speaker.now = func() time.Time { return time.Date(2026, 10, 18, 0, 0, 1, 0, time.UTC) }
	assert.NoError(t, f.speaker.Speak(context.Background(), request("three")))
}

func TestSpeakPrivilegedUnlimited(t *testing.T) {
	f := newFileFixture()
	req := request("hi")
	req.UserID = privileged

	for i := 0; i < 3; i++ {
		require.NoError(t, f.speaker.Speak(context.Background(), req))
	}
	assert.Len(t, f.synth.calls, 3)
}

func TestSpeakAssignsRequestID(t *testing.T) {
	f := newFileFixture()
	req := request("hi")
	req.ID = ""

	require.NoError(t, f.speaker.Speak(context.Background(), req))
	require.Len(t, f.sender.sent, 1)
	name := f.sender.sent[0].Files[0].Name
	assert.True(t, strings.HasPrefix(name, "rias_voice_"))
	assert.NotEqual(t, "rias_voice_.mp3", name)
}

func TestDisabledStrategy(t *testing.T) {
	synth := &fakeSynth{}
	rates := gate.NewRateGate(session.NewStore("p", session.DefaultOptions()), privileged, 0)
	s := NewSpeaker(DisabledStrategy{}, synth, rates, "v", discardLogger())

	assert.Equal(t, KindDisabled, s.Kind())
	assert.ErrorIs(t, s.Speak(context.Background(), request("hi")), ErrDisabled)
	assert.Empty(t, synth.calls)
}

type fakeLocator struct {
	channelID string
	canSpeak  bool
	permErr   error
}

func (f *fakeLocator) UserVoiceChannel(guildID, userID string) (string, bool) {
	return f.channelID, f.channelID != ""
}

func (f *fakeLocator) CanSpeak(channelID string) (bool, error) {
	return f.canSpeak, f.permErr
}

type fakeConn struct {
	mu           sync.Mutex
	block        bool
	packets      [][]byte
	speaking     []bool
	disconnected bool
	lastSend     time.Time
	disconnectAt time.Time
}

func (c *fakeConn) Speaking(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking = append(c.speaking, on)
	return nil
}

func (c *fakeConn) SendOpus(ctx context.Context, packet []byte) error {
	if c.block {
		<-ctx.Done()
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packets = append(c.packets, packet)
	c.lastSend = time.Now()
	return nil
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	c.disconnectAt = time.Now()
	return nil
}

type fakeJoiner struct {
	conn     *fakeConn
	err      error
	channels []string
}

func (f *fakeJoiner) JoinVoice(ctx context.Context, guildID, channelID string) (VoiceConn, error) {
	f.channels = append(f.channels, channelID)
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

func newLiveSpeaker(locator *fakeLocator, joiner *fakeJoiner, synth *fakeSynth) (*Speaker, *LiveStrategy, *gate.RateGate) {
	rates := gate.NewRateGate(session.NewStore("p", session.DefaultOptions()), privileged, 0)
	live := NewLiveStrategy(locator, joiner, discardLogger())
	return NewSpeaker(live, synth, rates, "voice-1", discardLogger()), live, rates
}

func TestLiveRequiresVoiceChannel(t *testing.T) {
	joiner := &fakeJoiner{conn: &fakeConn{}}
	synth := &fakeSynth{}
	s, _, _ := newLiveSpeaker(&fakeLocator{}, joiner, synth)

	err := s.Speak(context.Background(), request("hi"))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, ReasonNotInVoice, vErr.Reason)
	assert.Empty(t, joiner.channels)
	assert.Empty(t, synth.calls)
}

func TestLiveRequiresPermission(t *testing.T) {
	joiner := &fakeJoiner{conn: &fakeConn{}}
	s, _, _ := newLiveSpeaker(&fakeLocator{channelID: "vc1"}, joiner, &fakeSynth{})

	err := s.Speak(context.Background(), request("hi"))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, ReasonMissingPermission, vErr.Reason)
	assert.Empty(t, joiner.channels)
}

func TestLivePlaysPackets(t *testing.T) {
	conn := &fakeConn{}
	joiner := &fakeJoiner{conn: conn}
	synth := &fakeSynth{audio: oggOpusStream([]byte("p1"), []byte("p2"), bytes.Repeat([]byte{7}, 300))}
	s, _, rates := newLiveSpeaker(&fakeLocator{channelID: "vc1", canSpeak: true}, joiner, synth)

	require.NoError(t, s.Speak(context.Background(), request("hi")))

	assert.Equal(t, []string{"vc1"}, joiner.channels)
	assert.Equal(t, speech.FormatOpus, synth.calls[0].OutputFormat)
	require.Len(t, conn.packets, 3)
	assert.Equal(t, []byte("p1"), conn.packets[0])
	assert.Len(t, conn.packets[2], 300)
	assert.Equal(t, []bool{true, false}, conn.speaking)
	assert.True(t, conn.disconnected)
	assert.False(t, rates.AllowVoice("u1", gate.Today(time.Now())))
}

func TestLivePlaybackTimeoutTearsDown(t *testing.T) {
	conn := &fakeConn{block: true}
	joiner := &fakeJoiner{conn: conn}
	synth := &fakeSynth{audio: oggOpusStream([]byte("p1"))}
	s, live, rates := newLiveSpeaker(&fakeLocator{channelID: "vc1", canSpeak: true}, joiner, synth)
	live.playbackTimeout = 20 * time.Millisecond

	err := s.Speak(context.Background(), request("hi"))

	assert.ErrorIs(t, err, ErrPlaybackTimeout)
	assert.Equal(t, []bool{true, false}, conn.speaking)
	assert.True(t, conn.disconnected)
	assert.True(t, rates.AllowVoice("u1", gate.Today(time.Now())))
}

func TestLiveWaitsForBufferedAudio(t *testing.T) {
	conn := &fakeConn{}
	joiner := &fakeJoiner{conn: conn}
	synth := &fakeSynth{audio: oggOpusStream([]byte("p1"), []byte("p2"))}
	s, live, _ := newLiveSpeaker(&fakeLocator{channelID: "vc1", canSpeak: true}, joiner, synth)
	live.drainDelay = 50 * time.Millisecond

	require.NoError(t, s.Speak(context.Background(), request("hi")))

	require.Len(t, conn.packets, 2)
	assert.GreaterOrEqual(t, conn.disconnectAt.Sub(conn.lastSend), 50*time.Millisecond)
}

func TestLiveDrainBoundedByPlaybackTimeout(t *testing.T) {
	conn := &fakeConn{}
	joiner := &fakeJoiner{conn: conn}
	synth := &fakeSynth{audio: oggOpusStream([]byte("p1"))}
	s, live, rates := newLiveSpeaker(&fakeLocator{channelID: "vc1", canSpeak: true}, joiner, synth)
	live.drainDelay = time.Minute
	live.playbackTimeout = 20 * time.Millisecond

	start := time.Now()
	err := s.Speak(context.Background(), request("hi"))

	assert.ErrorIs(t, err, ErrPlaybackTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, conn.disconnected)
	assert.True(t, rates.AllowVoice("u1", gate.Today(time.Now())))
}

func TestLiveSynthesisFailureDisconnects(t *testing.T) {
	conn := &fakeConn{}
	joiner := &fakeJoiner{conn: conn}
	synth := &fakeSynth{err: errors.New("service down")}
	s, _, _ := newLiveSpeaker(&fakeLocator{channelID: "vc1", canSpeak: true}, joiner, synth)

	require.Error(t, s.Speak(context.Background(), request("hi")))
	assert.True(t, conn.disconnected)
}

func TestForEachOpusPacketSkipsHeaders(t *testing.T) {
	var got [][]byte
	err := ForEachOpusPacket(bytes.NewReader(oggOpusStream([]byte("a"), []byte("b"))), func(p []byte) error {
		got = append(got, p)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, got)
}

func TestForEachOpusPacketRejectsGarbage(t *testing.T) {
	err := ForEachOpusPacket(strings.NewReader("not an ogg stream"), func([]byte) error { return nil })
	assert.Error(t, err)
}

// oggOpusStream builds a minimal Ogg/Opus stream: OpusHead page, OpusTags
// page, then one page per audio packet.
func oggOpusStream(packets ...[]byte) []byte {
	head := make([]byte, 19)
	copy(head, "OpusHead")
	head[8] = 1                                   // version
	head[9] = 2                                   // channels
	binary.LittleEndian.PutUint16(head[10:], 312) // pre-skip
	binary.LittleEndian.PutUint32(head[12:], 48000)

	tags := []byte("OpusTags\x00\x00\x00\x00\x00\x00\x00\x00")

	var buf bytes.Buffer
	buf.Write(oggPage(0x02, 0, 0, head))
	buf.Write(oggPage(0x00, 1, 0, tags))
	for i, p := range packets {
		buf.Write(oggPage(0x00, uint32(i+2), uint64(960*(i+1)), p))
	}
	return buf.Bytes()
}

func oggPage(headerType byte, seq uint32, granule uint64, packet []byte) []byte {
	var lacing []byte
	n := len(packet)
	for n >= 255 {
		lacing = append(lacing, 255)
		n -= 255
	}
	lacing = append(lacing, byte(n))

	page := make([]byte, 27, 27+len(lacing)+len(packet))
	copy(page, "OggS")
	page[5] = headerType
	binary.LittleEndian.PutUint64(page[6:], granule)
	binary.LittleEndian.PutUint32(page[14:], 1)
	binary.LittleEndian.PutUint32(page[18:], seq)
	page[26] = byte(len(lacing))
	page = append(page, lacing...)
	page = append(page, packet...)

	binary.LittleEndian.PutUint32(page[22:], oggChecksum(page))
	return page
}

func oggChecksum(data []byte) uint32 {
	var table [256]uint32
	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = (r << 1) ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}

	var crc uint32
	for _, b := range data {
		crc = (crc << 8) ^ table[byte(crc>>24)^b]
	}
	return crc
}
