// ABOUTME: Audio encoder package for encoding float32 samples to wire formats
// ABOUTME: Provides Encoder interface and implementations for PCM, Opus
// Package encode provides audio encoders for various codecs.
//
// Supports: PCM (16, 24 and 32-bit little-endian), Opus
//
// All encoders accept normalized interleaved float32 samples, the format the
// node graph produces, and encode to wire format.
//
// Example:
//
//	encoder, err := encode.New(format)
//	data, err := encoder.Encode(samples)
package encode
