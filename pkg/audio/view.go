// ABOUTME: Non-owning interleaved buffer view over sample memory
// ABOUTME: Typed access for every SampleFormat plus normalized float access
package audio

import (
	"encoding/binary"
	"math"
)

// View is a non-owning window over interleaved PCM samples. It aliases the
// memory it was built from and is only valid while that memory is.
// Exactly one backing slice is set, chosen by the sample format.
type View struct {
	format   SampleFormat
	channels int
	frames   int

	f32 []float32
	s16 []int16
	s32 []int32
	raw []byte // FormatU8 and FormatS24
}

// NewFloat32View wraps interleaved float32 samples
func NewFloat32View(samples []float32, channels int) View {
	if channels <= 0 {
		return View{}
	}
	frames := len(samples) / channels
	return View{format: FormatF32, channels: channels, frames: frames, f32: samples[:frames*channels]}
}

// NewInt16View wraps interleaved 16-bit samples
func NewInt16View(samples []int16, channels int) View {
	if channels <= 0 {
		return View{}
	}
	frames := len(samples) / channels
	return View{format: FormatS16, channels: channels, frames: frames, s16: samples[:frames*channels]}
}

// NewInt32View wraps interleaved 32-bit samples
func NewInt32View(samples []int32, channels int) View {
	if channels <= 0 {
		return View{}
	}
	frames := len(samples) / channels
	return View{format: FormatS32, channels: channels, frames: frames, s32: samples[:frames*channels]}
}

// NewByteView wraps byte-packed samples (FormatU8 or FormatS24)
func NewByteView(format SampleFormat, data []byte, channels int) View {
	if channels <= 0 || (format != FormatU8 && format != FormatS24) {
		return View{}
	}
	frames := len(data) / format.BytesPerFrame(channels)
	return View{format: format, channels: channels, frames: frames, raw: data[:frames*format.BytesPerFrame(channels)]}
}

// Format returns the sample encoding of the view
func (v View) Format() SampleFormat { return v.format }

// Channels returns the interleaved channel count
func (v View) Channels() int { return v.channels }

// Frames returns the frame capacity of the view
func (v View) Frames() int { return v.frames }

// Empty reports whether the view covers no frames
func (v View) Empty() bool { return v.frames == 0 }

// Float32 returns the backing samples of an FormatF32 view, nil otherwise
func (v View) Float32() []float32 { return v.f32 }

// Int16 returns the backing samples of an FormatS16 view, nil otherwise
func (v View) Int16() []int16 { return v.s16 }

// Int32 returns the backing samples of an FormatS32 view, nil otherwise
func (v View) Int32() []int32 { return v.s32 }

// Bytes returns the backing bytes of an FormatU8 or FormatS24 view, nil otherwise
func (v View) Bytes() []byte { return v.raw }

// Slice returns the sub-view covering frames [from, to)
func (v View) Slice(from, to int) View {
	if from < 0 {
		from = 0
	}
	if to > v.frames {
		to = v.frames
	}
	if from >= to {
		return View{format: v.format, channels: v.channels}
	}

	s := View{format: v.format, channels: v.channels, frames: to - from}
	lo, hi := from*v.channels, to*v.channels
	switch v.format {
	case FormatF32:
		s.f32 = v.f32[lo:hi]
	case FormatS16:
		s.s16 = v.s16[lo:hi]
	case FormatS32:
		s.s32 = v.s32[lo:hi]
	case FormatU8, FormatS24:
		bps := v.format.BytesPerSample()
		s.raw = v.raw[lo*bps : hi*bps]
	}
	return s
}

// Sample returns the sample at frame/channel normalized to [-1, 1]
func (v View) Sample(frame, channel int) float32 {
	i := frame*v.channels + channel
	switch v.format {
	case FormatF32:
		return v.f32[i]
	case FormatS16:
		return float32(v.s16[i]) / 32768
	case FormatS32:
		return float32(float64(v.s32[i]) / 2147483648)
	case FormatS24:
		return SampleToFloat(SampleFrom24Bit([3]byte{v.raw[i*3], v.raw[i*3+1], v.raw[i*3+2]}))
	case FormatU8:
		return (float32(v.raw[i]) - 128) / 128
	}
	return 0
}

// SetSample stores a normalized sample at frame/channel, clipping to [-1, 1]
func (v View) SetSample(frame, channel int, value float32) {
	i := frame*v.channels + channel
	value = clip(value)
	switch v.format {
	case FormatF32:
		v.f32[i] = value
	case FormatS16:
		v.s16[i] = SampleToInt16(FloatToSample(value))
	case FormatS32:
		v.s32[i] = FloatToSample(value) << 8
	case FormatS24:
		b := SampleTo24Bit(FloatToSample(value))
		copy(v.raw[i*3:i*3+3], b[:])
	case FormatU8:
		v.raw[i] = byte(int(value*127) + 128)
	}
}

// Silence fills the view with the format's zero level
func (v View) Silence() {
	switch v.format {
	case FormatF32:
		clear(v.f32)
	case FormatS16:
		clear(v.s16)
	case FormatS32:
		clear(v.s32)
	case FormatS24:
		clear(v.raw)
	case FormatU8:
		for i := range v.raw {
			v.raw[i] = 128
		}
	}
}

// CopyFrom copies frames from src, converting format and channel layout.
// Mono sources are duplicated across channels; otherwise channels map by index
// and missing channels are silenced. Returns the number of frames copied.
func (v View) CopyFrom(src View) int {
	n := min(v.frames, src.frames)
	if n == 0 {
		return 0
	}

	if v.format == src.format && v.channels == src.channels {
		switch v.format {
		case FormatF32:
			copy(v.f32, src.f32[:n*v.channels])
		case FormatS16:
			copy(v.s16, src.s16[:n*v.channels])
		case FormatS32:
			copy(v.s32, src.s32[:n*v.channels])
		default:
			copy(v.raw, src.raw[:n*v.format.BytesPerFrame(v.channels)])
		}
		return n
	}

	for f := 0; f < n; f++ {
		for ch := 0; ch < v.channels; ch++ {
			switch {
			case src.channels == 1:
				v.SetSample(f, ch, src.Sample(f, 0))
			case ch < src.channels:
				v.SetSample(f, ch, src.Sample(f, ch))
			default:
				v.SetSample(f, ch, 0)
			}
		}
	}
	return n
}

// AppendBytes appends the view's samples in little-endian wire order
func (v View) AppendBytes(dst []byte) []byte {
	switch v.format {
	case FormatF32:
		for _, s := range v.f32 {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s))
		}
	case FormatS16:
		for _, s := range v.s16 {
			dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
		}
	case FormatS32:
		for _, s := range v.s32 {
			dst = binary.LittleEndian.AppendUint32(dst, uint32(s))
		}
	default:
		dst = append(dst, v.raw...)
	}
	return dst
}
