// ABOUTME: Packet decoders for network audio streams
// ABOUTME: Provides Decoder interface and implementations for PCM and Opus
// Package decode turns encoded stream packets into interleaved float32 samples.
//
// Supports: PCM (16, 24 and 32-bit little-endian) and Opus.
//
// Example:
//
//	dec, err := decode.New(audio.StreamFormat{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16})
//	samples, err := dec.Decode(packet)
package decode
