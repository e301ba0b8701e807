// ABOUTME: Decoder interface definition and codec dispatch
// ABOUTME: Common interface for all stream packet decoders
package decode

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
)

var (
	ErrUnsupportedCodec    = errors.New("unsupported codec")
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	ErrInvalidChannels     = errors.New("invalid channel count")
)

// Decoder decodes stream packets to normalized interleaved float32 samples
type Decoder interface {
	// Decode converts one encoded packet to samples
	Decode(data []byte) ([]float32, error)

	// Close releases decoder resources
	Close() error
}

// New returns the decoder for format.Codec
func New(format audio.StreamFormat) (Decoder, error) {
	if format.Channels < audio.MinChannels || format.Channels > audio.MaxChannels {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, format.Channels)
	}

	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, format.Codec)
	}
}
