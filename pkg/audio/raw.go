// ABOUTME: Conversion between views and raw sample memory
// ABOUTME: The only place in this package that reads through untyped pointers
package audio

import "unsafe"

// ViewAt builds a view over raw interleaved sample memory owned by someone else.
// A nil pointer, unknown format or non-positive channel count yields an empty view.
func ViewAt(format SampleFormat, p unsafe.Pointer, frames, channels int) View {
	if p == nil || frames <= 0 || channels <= 0 {
		return View{format: format, channels: max(channels, 0)}
	}
	n := frames * channels
	switch format {
	case FormatF32:
		return NewFloat32View(unsafe.Slice((*float32)(p), n), channels)
	case FormatS16:
		return NewInt16View(unsafe.Slice((*int16)(p), n), channels)
	case FormatS32:
		return NewInt32View(unsafe.Slice((*int32)(p), n), channels)
	case FormatU8, FormatS24:
		return NewByteView(format, unsafe.Slice((*byte)(p), n*format.BytesPerSample()), channels)
	}
	return View{}
}

// Pointer returns the address of the first sample, or nil for an empty view
func (v View) Pointer() unsafe.Pointer {
	if v.frames == 0 {
		return nil
	}
	switch v.format {
	case FormatF32:
		return unsafe.Pointer(unsafe.SliceData(v.f32))
	case FormatS16:
		return unsafe.Pointer(unsafe.SliceData(v.s16))
	case FormatS32:
		return unsafe.Pointer(unsafe.SliceData(v.s32))
	case FormatU8, FormatS24:
		return unsafe.Pointer(unsafe.SliceData(v.raw))
	}
	return nil
}
