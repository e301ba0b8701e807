// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 16, 24 and 32-bit little-endian PCM to float32 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	bitDepth int
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.StreamFormat) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 && format.BitDepth != 32 {
		return nil, fmt.Errorf("%w: %d (supported: 16, 24, 32)", ErrUnsupportedBitDepth, format.BitDepth)
	}

	return &PCMDecoder{
		bitDepth: format.BitDepth,
	}, nil
}

// Decode converts PCM bytes to float32 samples. A trailing partial sample is dropped.
func (d *PCMDecoder) Decode(data []byte) ([]float32, error) {
	switch d.bitDepth {
	case 24:
		samples := make([]float32, len(data)/3)
		for i := range samples {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.SampleToFloat(audio.SampleFrom24Bit(b))
		}
		return samples, nil
	case 32:
		samples := make([]float32, len(data)/4)
		for i := range samples {
			s := int32(binary.LittleEndian.Uint32(data[i*4:]))
			samples[i] = float32(float64(s) / 2147483648)
		}
		return samples, nil
	default:
		samples := make([]float32, len(data)/2)
		for i := range samples {
			s := int16(binary.LittleEndian.Uint16(data[i*2:]))
			samples[i] = float32(s) / 32768
		}
		return samples, nil
	}
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
