// ABOUTME: Sample range constants and scalar sample conversions
// ABOUTME: Converts between float32, 16-bit, 24-bit and 32-bit PCM representations
package audio

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// StreamFormat describes an encoded packet stream (network or file framing)
type StreamFormat struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	// Take lower 24 bits, pack little-endian
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF // Set upper 8 bits to 1 for negative values
	}
	return val
}

// FloatToSample converts a float sample in [-1, 1] to the 24-bit int32 range.
// Values outside the range are clipped.
func FloatToSample(f float32) int32 {
	if f >= 1 {
		return Max24Bit
	}
	if f <= -1 {
		return Min24Bit
	}
	return int32(f * 8388608)
}

// SampleToFloat converts a 24-bit range int32 sample to float32 in [-1, 1)
func SampleToFloat(sample int32) float32 {
	return float32(sample) / 8388608
}

// clip limits f to [-1, 1]
func clip(f float32) float32 {
	if f > 1 {
		return 1
	}
	if f < -1 {
		return -1
	}
	return f
}
