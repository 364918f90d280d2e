package voice

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pion/opus/pkg/oggreader"
)

const maxLacing = 255

// ForEachOpusPacket demuxes an Ogg/Opus stream and calls fn for each audio
// packet. The identification and comment headers are skipped.
func ForEachOpusPacket(r io.Reader, fn func(packet []byte) error) error {
	ogg, _, err := oggreader.NewWith(r)
	if err != nil {
		return fmt.Errorf("parse OGG container: %w", err)
	}

	var pending []byte
	for {
		segments, _, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("parse OGG page: %w", err)
		}

		for _, segment := range segments {
			pending = append(pending, segment...)
			// a full-length segment continues into the next one
			if len(segment) == maxLacing {
				continue
			}

			packet := pending
			pending = nil
			if len(packet) == 0 || isOpusHeader(packet) {
				continue
			}
			if err := fn(packet); err != nil {
				return err
			}
		}
	}
	return nil
}

func isOpusHeader(packet []byte) bool {
	return bytes.HasPrefix(packet, []byte("OpusHead")) || bytes.HasPrefix(packet, []byte("OpusTags"))
}
