// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines sample formats, the data format descriptor and buffer views
// Package audio provides the value types shared by the engine and the adapters.
//
// This package defines:
//   - SampleFormat: sample encoding (u8, s16, s24, s32, f32)
//   - Format: encoding, channel count, sample rate and channel map of a source
//   - FrameRange: a span of PCM frames used for playable ranges and loop regions
//   - View: a non-owning interleaved view over sample memory
//
// It also provides utilities for converting between sample representations:
//   - 16-bit ↔ 24-bit conversions
//   - int32 ↔ packed byte conversions
//   - float32 ↔ 24-bit conversions
//
// Example:
//
//	samples := make([]float32, 480*2)
//	view := audio.NewFloat32View(samples, 2)
//	view.SetSample(0, 1, 0.5)
//
//	// Convert 16-bit sample to 24-bit range
//	sample24 := audio.SampleFromInt16(sample16)
package audio
