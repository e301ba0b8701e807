// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts float32 audio between sample rates in streaming blocks
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates.
// Handles both upsampling and downsampling, and keeps its position across
// blocks so a stream can be converted piecewise.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	need := r.InputFramesNeeded(512)
//	consumed, produced := r.Process(input[:need*2], output)
package resample
