// ABOUTME: Interop between View and go-audio PCM buffers
// ABOUTME: Used by WAV decoding and rendering
package audio

import (
	goaudio "github.com/go-audio/audio"
)

// Float32Buffer exposes an FormatF32 view as a go-audio buffer without copying.
// Returns nil for other formats.
func (v View) Float32Buffer(sampleRate int) *goaudio.Float32Buffer {
	if v.format != FormatF32 {
		return nil
	}
	return &goaudio.Float32Buffer{
		Format:         &goaudio.Format{NumChannels: v.channels, SampleRate: sampleRate},
		Data:           v.f32,
		SourceBitDepth: 32,
	}
}

// IntBuffer converts the view into a newly allocated go-audio integer buffer
// scaled to bitDepth (16, 24 or 32)
func (v View) IntBuffer(sampleRate, bitDepth int) *goaudio.IntBuffer {
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: v.channels, SampleRate: sampleRate},
		Data:           make([]int, v.frames*v.channels),
		SourceBitDepth: bitDepth,
	}
	v.FillIntBuffer(buf)
	return buf
}

// FillIntBuffer writes the view into buf.Data at buf.SourceBitDepth, reusing its storage
// when large enough
func (v View) FillIntBuffer(buf *goaudio.IntBuffer) {
	n := v.frames * v.channels
	if cap(buf.Data) < n {
		buf.Data = make([]int, n)
	}
	buf.Data = buf.Data[:n]

	for f := 0; f < v.frames; f++ {
		for ch := 0; ch < v.channels; ch++ {
			s := FloatToSample(v.Sample(f, ch)) // 24-bit range
			switch buf.SourceBitDepth {
			case 16:
				buf.Data[f*v.channels+ch] = int(SampleToInt16(s))
			case 32:
				buf.Data[f*v.channels+ch] = int(s) << 8
			default:
				buf.Data[f*v.channels+ch] = int(s)
			}
		}
	}
}

// Float32FromIntBuffer converts a go-audio integer buffer into normalized
// interleaved float32 samples
func Float32FromIntBuffer(buf *goaudio.IntBuffer) []float32 {
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	out := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			out[i] = (float32(s) - 128) / 128
			continue
		}
		out[i] = clip(float32(s) / scale)
	}
	return out
}
