// ABOUTME: WAV file loading into an in-memory source
// ABOUTME: Decodes the whole file with go-audio/wav; 16-bit files stay 16-bit
package sources

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
)

// OpenWAV decodes a WAV file into a Memory source
func OpenWAV(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	return DecodeWAV(f, baseName(path))
}

// DecodeWAV reads a complete WAV stream into a Memory source
func DecodeWAV(r io.ReadSeeker, name string) (*Memory, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		if err := decoder.Err(); err != nil {
			return nil, fmt.Errorf("%w: not a WAV file: %v", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("%w: not a WAV file", ErrUnsupportedFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	channels := int(decoder.NumChans)
	if channels < audio.MinChannels || channels > audio.MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidFormat, channels)
	}

	var data audio.View
	if decoder.BitDepth == 16 {
		samples := make([]int16, len(buf.Data))
		for i, s := range buf.Data {
			samples[i] = int16(s)
		}
		data = audio.NewInt16View(samples, channels)
	} else {
		data = audio.NewFloat32View(audio.Float32FromIntBuffer(buf), channels)
	}

	m, err := newMemory("wav", name, data, decoder.SampleRate)
	if err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"bit_depth": decoder.BitDepth,
		"rate":      decoder.SampleRate,
		"channels":  channels,
	}).Info("Loaded WAV")
	return m, nil
}
