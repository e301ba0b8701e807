// ABOUTME: Encoder interface definition and codec dispatch
// ABOUTME: Common interface for all audio encoders
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
)

// Encoder encodes normalized float32 samples to various formats
type Encoder interface {
	// Encode converts PCM samples to encoded audio data
	Encode(samples []float32) ([]byte, error)

	// Close releases encoder resources
	Close() error
}

// New returns the encoder for format.Codec
func New(format audio.StreamFormat) (Encoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %q", format.Codec)
	}
}
