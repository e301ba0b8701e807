// ABOUTME: Opus audio encoder
// ABOUTME: Encodes float32 samples to Opus packets
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusPacket bounds the size of one encoded packet
const maxOpusPacket = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder    *opus.Encoder
	sampleRate int
	channels   int
	frameSize  int
}

// NewOpus creates a new Opus encoder
func NewOpus(format audio.StreamFormat) (Encoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	return &OpusEncoder{
		encoder:    encoder,
		sampleRate: format.SampleRate,
		channels:   format.Channels,
		frameSize:  format.SampleRate / 50, // 20ms
	}, nil
}

// FrameSize returns the frames per channel each Encode call expects
func (e *OpusEncoder) FrameSize() int {
	return e.frameSize
}

// Encode converts one frame of float32 samples to an Opus packet
func (e *OpusEncoder) Encode(samples []float32) ([]byte, error) {
	data := make([]byte, maxOpusPacket)
	n, err := e.encoder.EncodeFloat32(samples, data)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	return data[:n], nil
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
