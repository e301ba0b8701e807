// ABOUTME: Sample encodings, channel positions and the data format descriptor
// ABOUTME: Also defines FrameRange for playable ranges and loop regions
package audio

import "fmt"

// SampleFormat is the encoding of a single sample
type SampleFormat uint8

const (
	FormatUnknown SampleFormat = iota
	FormatU8
	FormatS16
	FormatS24 // packed, 3 bytes per sample
	FormatS32
	FormatF32
)

// BytesPerSample returns the storage size of one sample, or 0 for FormatUnknown
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16:
		return 2
	case FormatS24:
		return 3
	case FormatS32, FormatF32:
		return 4
	default:
		return 0
	}
}

// BytesPerFrame returns the storage size of one PCM frame
func (f SampleFormat) BytesPerFrame(channels int) int {
	return f.BytesPerSample() * channels
}

// BitDepth returns the number of significant bits per sample
func (f SampleFormat) BitDepth() int {
	return f.BytesPerSample() * 8
}

func (f SampleFormat) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16"
	case FormatS24:
		return "s24"
	case FormatS32:
		return "s32"
	case FormatF32:
		return "f32"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

// SampleFormatForBitDepth maps an integer bit depth to its signed PCM format
func SampleFormatForBitDepth(bitDepth int) (SampleFormat, error) {
	switch bitDepth {
	case 8:
		return FormatU8, nil
	case 16:
		return FormatS16, nil
	case 24:
		return FormatS24, nil
	case 32:
		return FormatS32, nil
	default:
		return FormatUnknown, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", bitDepth)
	}
}

// Channel is a speaker position in a channel map
type Channel uint8

const (
	ChannelNone Channel = iota
	ChannelMono
	ChannelFrontLeft
	ChannelFrontRight
	ChannelFrontCenter
	ChannelLFE
	ChannelBackLeft
	ChannelBackRight
	ChannelFrontLeftCenter
	ChannelFrontRightCenter
	ChannelBackCenter
	ChannelSideLeft
	ChannelSideRight
	ChannelTopCenter
	ChannelTopFrontLeft
	ChannelTopFrontCenter
	ChannelTopFrontRight
	ChannelTopBackLeft
	ChannelTopBackCenter
	ChannelTopBackRight
	ChannelAux0
)

const (
	// MinChannels and MaxChannels bound channel counts and channel map capacities
	MinChannels = 1
	MaxChannels = 254
)

// DefaultChannelMap returns the conventional speaker layout for a channel count.
// Channels beyond the 7.1 layout are mapped to auxiliary positions.
func DefaultChannelMap(channels int) []Channel {
	if channels <= 0 {
		return nil
	}
	if channels == 1 {
		return []Channel{ChannelMono}
	}

	surround := []Channel{
		ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelLFE,
		ChannelBackLeft, ChannelBackRight, ChannelSideLeft, ChannelSideRight,
	}
	layout := map[int][]Channel{
		2: {ChannelFrontLeft, ChannelFrontRight},
		3: {ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter},
		4: {ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight},
		5: {ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelBackLeft, ChannelBackRight},
		6: surround[:6],
		7: {ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelLFE, ChannelBackCenter, ChannelSideLeft, ChannelSideRight},
		8: surround,
	}

	out := make([]Channel, channels)
	if l, ok := layout[channels]; ok {
		copy(out, l)
		return out
	}
	copy(out, surround)
	for i := len(surround); i < channels; i++ {
		out[i] = ChannelAux0 + Channel(i-len(surround))
	}
	return out
}

// Format describes the PCM data a source produces
type Format struct {
	SampleFormat SampleFormat
	Channels     uint32
	SampleRate   uint32
	ChannelMap   []Channel
}

// BytesPerFrame returns the storage size of one frame in this format
func (f Format) BytesPerFrame() int {
	return f.SampleFormat.BytesPerFrame(int(f.Channels))
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dHz %dch", f.SampleFormat, f.SampleRate, f.Channels)
}

// FrameRange is a [Start, End) span of PCM frames
type FrameRange struct {
	Start uint64
	End   uint64
}

// Len returns the number of frames in the range, or 0 when End precedes Start
func (r FrameRange) Len() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}
