// ABOUTME: Audio output interface definition
// ABOUTME: Outputs pull rendered float32 frames and play or store them
package output

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/audio/encode"
)

var (
	ErrUnknownBackend = errors.New("unknown output backend")
	ErrNotOpen        = errors.New("output not initialized")
)

// Renderer produces interleaved float32 frames and reports engine.AtEnd once
// it has nothing left. *engine.NodeGraph is a Renderer.
type Renderer interface {
	Read(out []float32) (int, error)
}

// Format is the PCM format an output plays at
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// Validate checks the format is one the PCM encoder can produce
func (f Format) Validate() error {
	if f.SampleRate <= 0 || f.Channels < audio.MinChannels || f.Channels > audio.MaxChannels {
		return fmt.Errorf("invalid output format %s", f)
	}
	if f.BitDepth != 16 && f.BitDepth != 24 && f.BitDepth != 32 {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", f.BitDepth)
	}
	return nil
}

func (f Format) pcmEncoder() *encode.PCMEncoder {
	enc, err := encode.NewPCM(audio.StreamFormat{
		Codec:      "pcm",
		SampleRate: f.SampleRate,
		Channels:   f.Channels,
		BitDepth:   f.BitDepth,
	})
	if err != nil {
		// Validate rejects every format NewPCM does
		panic(err)
	}
	return enc.(*encode.PCMEncoder)
}

// Output represents an audio sink driven by a Renderer
type Output interface {
	// Open starts pulling from r at the given format
	Open(r Renderer, format Format) error

	// Done is closed once the renderer reports its end
	Done() <-chan struct{}

	// Close releases output resources
	Close() error
}

// New returns the named playback backend: "malgo" or "oto"
func New(backend string) (Output, error) {
	switch backend {
	case "malgo", "":
		return NewMalgo(), nil
	case "oto":
		return NewOto(), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: malgo, oto)", ErrUnknownBackend, backend)
	}
}
