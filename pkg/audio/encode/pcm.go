// ABOUTME: PCM audio encoder
// ABOUTME: Encodes float32 samples to 16, 24 or 32-bit PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	bitDepth int
}

// NewPCM creates a new PCM encoder
func NewPCM(format audio.StreamFormat) (Encoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 && format.BitDepth != 32 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", format.BitDepth)
	}

	return &PCMEncoder{
		bitDepth: format.BitDepth,
	}, nil
}

// Encode converts float32 samples to PCM bytes, clipping to [-1, 1]
func (e *PCMEncoder) Encode(samples []float32) ([]byte, error) {
	return e.AppendEncoded(make([]byte, 0, len(samples)*e.bitDepth/8), samples), nil
}

// AppendEncoded appends the PCM encoding of samples to dst
func (e *PCMEncoder) AppendEncoded(dst []byte, samples []float32) []byte {
	for _, s := range samples {
		sample := audio.FloatToSample(s) // 24-bit range
		switch e.bitDepth {
		case 24:
			b := audio.SampleTo24Bit(sample)
			dst = append(dst, b[:]...)
		case 32:
			dst = binary.LittleEndian.AppendUint32(dst, uint32(sample<<8))
		default:
			dst = binary.LittleEndian.AppendUint16(dst, uint16(audio.SampleToInt16(sample)))
		}
	}
	return dst
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
