package voice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"

	"github.com/Dmetrikx/goDiscordPersona/internal/speech"
)

// TempStore holds audio artifacts while they are uploaded.
type TempStore interface {
	Write(name string, data []byte) (string, error)
	Open(path string) (fs.File, error)
	Remove(path string) error
}

// DirStore keeps artifacts in a directory on disk.
type DirStore struct {
	Dir string
}

// NewDirStore uses dir, or the system temp directory when empty.
func NewDirStore(dir string) *DirStore {
	if dir == "" {
		dir = os.TempDir()
	}
	return &DirStore{Dir: dir}
}

func (d *DirStore) Write(name string, data []byte) (string, error) {
	path := filepath.Join(d.Dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return path, err
	}
	return path, nil
}

func (d *DirStore) Open(path string) (fs.File, error) {
	return os.Open(path)
}

func (d *DirStore) Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ArtifactName is the attachment file name for a request.
func ArtifactName(requestID string) string {
	return fmt.Sprintf("rias_voice_%s.mp3", requestID)
}

// FileSender posts messages with attachments.
type FileSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// FileStrategy uploads the audio as an mp3 attachment.
type FileStrategy struct {
	sender FileSender
	store  TempStore
	logger *slog.Logger
}

// NewFileStrategy creates the attachment strategy
func NewFileStrategy(sender FileSender, store TempStore, logger *slog.Logger) *FileStrategy {
	return &FileStrategy{
		sender: sender,
		store:  store,
		logger: logger,
	}
}

func (f *FileStrategy) Kind() Kind     { return KindFile }
func (f *FileStrategy) Format() string { return speech.FormatMP3 }

func (f *FileStrategy) Prepare(ctx context.Context, req Request) (Delivery, error) {
	return &fileDelivery{strategy: f, req: req}, nil
}

type fileDelivery struct {
	strategy *FileStrategy
	req      Request
}

func (d *fileDelivery) Deliver(ctx context.Context, audio []byte) error {
	f := d.strategy
	name := ArtifactName(d.req.ID)

	path, err := f.store.Write(name, audio)
	defer func() {
		if path == "" {
			return
		}
		if rerr := f.store.Remove(path); rerr != nil {
			f.logger.ErrorContext(ctx, "failed to remove voice artifact",
				"path", path,
				"error", rerr)
		}
	}()
	if err != nil {
		return fmt.Errorf("failed to write voice artifact: %w", err)
	}

	file, err := f.store.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open voice artifact: %w", err)
	}
	defer file.Close()

	msg := &discordgo.MessageSend{
		Content: fmt.Sprintf("🎙️ **%s** requested Rias Gremory voice:", d.req.UserTag),
		Files: []*discordgo.File{{
			Name:        name,
			ContentType: "audio/mpeg",
			Reader:      file,
		}},
	}
	if d.req.ReplyToID != "" {
		msg.Reference = &discordgo.MessageReference{
			MessageID: d.req.ReplyToID,
			ChannelID: d.req.ChannelID,
			GuildID:   d.req.GuildID,
		}
	}

	if _, err := f.sender.ChannelMessageSendComplex(d.req.ChannelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send voice file: %w", err)
	}
	return nil
}

func (d *fileDelivery) Close() error {
	return nil
}
