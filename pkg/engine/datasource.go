// ABOUTME: Data source ABI: handle header, callback table and control primitives
// ABOUTME: Implements range clamping, looping and seeking on top of the vtable callbacks
package engine

import (
	"sync/atomic"
	"unsafe"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
)

// DataSource is the opaque handle the engine passes to callbacks.
// It points at a DataSourceBase.
type DataSource unsafe.Pointer

const (
	// RangeEnd marks an open-ended playable range
	RangeEnd = ^uint64(0)
	// LoopPointEnd marks a loop region that runs to the end of the range
	LoopPointEnd = ^uint64(0)
)

// DataSourceVTable is the callback table a data source registers with.
// Pointer arguments follow the engine calling convention: framesOut may be
// nil (skip without producing output), channelMap points at channelMapCap entries.
type DataSourceVTable struct {
	OnRead          func(ds DataSource, framesOut unsafe.Pointer, frameCount uint64, framesRead *uint64) Result
	OnSeek          func(ds DataSource, frameIndex uint64) Result
	OnGetDataFormat func(ds DataSource, format *audio.SampleFormat, channels *uint32, sampleRate *uint32, channelMap *audio.Channel, channelMapCap int) Result
	OnGetCursor     func(ds DataSource, cursor *uint64) Result
	OnGetLength     func(ds DataSource, length *uint64) Result
	OnSetLooping    func(ds DataSource, looping bool) Result
}

// DataSourceBase is the control block every data source begins with.
// A DataSource handle is the address of this struct.
type DataSourceBase struct {
	vtable *DataSourceVTable

	rangeBeg uint64
	rangeEnd uint64
	loopBeg  uint64 // relative to rangeBeg
	loopEnd  uint64 // relative to rangeBeg

	looping atomic.Bool
}

// DataSourceConfig configures DataSourceInit
type DataSourceConfig struct {
	VTable *DataSourceVTable
}

// NewDataSourceConfig returns a config for the given callback table
func NewDataSourceConfig(vtable *DataSourceVTable) DataSourceConfig {
	return DataSourceConfig{VTable: vtable}
}

func baseOf(ds DataSource) *DataSourceBase {
	return (*DataSourceBase)(ds)
}

// DataSourceInit registers ds with the engine. The handle must point at a
// DataSourceBase embedded at offset zero of the caller's struct.
func DataSourceInit(config *DataSourceConfig, ds DataSource) Result {
	if ds == nil || config == nil || config.VTable == nil {
		return InvalidArgs
	}

	b := baseOf(ds)
	b.vtable = config.VTable
	b.rangeBeg = 0
	b.rangeEnd = RangeEnd
	b.loopBeg = 0
	b.loopEnd = LoopPointEnd
	b.looping.Store(false)
	return Success
}

// DataSourceUninit unregisters ds. Callbacks are never invoked afterwards.
func DataSourceUninit(ds DataSource) {
	if ds == nil {
		return
	}
	baseOf(ds).vtable = nil
}

// DataSourceVTableOf returns the callback table ds was registered with, or nil
func DataSourceVTableOf(ds DataSource) *DataSourceVTable {
	if ds == nil {
		return nil
	}
	return baseOf(ds).vtable
}

// dataSourceFrameSize queries the format to compute the byte stride of one frame
func dataSourceFrameSize(ds DataSource) (int, Result) {
	var format audio.SampleFormat
	var channels uint32
	if r := DataSourceGetDataFormat(ds, &format, &channels, nil, nil, 0); r != Success {
		return 0, r
	}
	size := format.BytesPerFrame(int(channels))
	if size == 0 {
		return 0, InvalidData
	}
	return size, Success
}

func dataSourceReadWithinRange(ds DataSource, framesOut unsafe.Pointer, frameCount uint64, framesRead *uint64) Result {
	b := baseOf(ds)
	if b.vtable.OnRead == nil {
		return NotImplemented
	}

	var read uint64
	var result Result

	loopActive := b.looping.Load() && b.loopEnd != LoopPointEnd
	if b.rangeEnd == RangeEnd && !loopActive {
		result = b.vtable.OnRead(ds, framesOut, frameCount, &read)
	} else {
		var cursor uint64
		if b.vtable.OnGetCursor == nil || b.vtable.OnGetCursor(ds, &cursor) != Success {
			// Without a cursor the range cannot be enforced.
			result = b.vtable.OnRead(ds, framesOut, frameCount, &read)
		} else {
			end := b.rangeEnd
			if loopActive {
				end = min(b.rangeEnd, b.rangeBeg+b.loopEnd)
			}
			if cursor >= end {
				*framesRead = 0
				return AtEnd
			}
			frameCount = min(frameCount, end-cursor)
			result = b.vtable.OnRead(ds, framesOut, frameCount, &read)
		}
	}

	*framesRead = min(read, frameCount)
	if result == Success && read == 0 {
		return AtEnd
	}
	return result
}

// DataSourceReadPCMFrames pulls up to frameCount frames into framesOut,
// honouring the range and the loop region. A nil framesOut advances the
// source without producing output. Reading nothing reports AtEnd.
func DataSourceReadPCMFrames(ds DataSource, framesOut unsafe.Pointer, frameCount uint64, framesRead *uint64) Result {
	var total uint64
	if framesRead == nil {
		framesRead = new(uint64)
	}
	*framesRead = 0

	if ds == nil || frameCount == 0 {
		return InvalidArgs
	}
	b := baseOf(ds)
	if b.vtable == nil {
		return InvalidOperation
	}

	if !b.looping.Load() {
		r := dataSourceReadWithinRange(ds, framesOut, frameCount, framesRead)
		if r == AtEnd && *framesRead > 0 {
			return Success
		}
		return r
	}

	frameSize := 0
	if framesOut != nil {
		size, r := dataSourceFrameSize(ds)
		if r != Success {
			return r
		}
		frameSize = size
	}

	result := Success
	emptyLoops := 0
	for total < frameCount {
		var out unsafe.Pointer
		if framesOut != nil {
			out = unsafe.Add(framesOut, uintptr(total)*uintptr(frameSize))
		}

		var read uint64
		result = dataSourceReadWithinRange(ds, out, frameCount-total, &read)
		total += read

		if result != Success && result != AtEnd {
			break
		}

		if read > 0 {
			emptyLoops = 0
		}
		if result == AtEnd {
			// An empty loop region would spin forever.
			if read == 0 {
				emptyLoops++
				if emptyLoops > 1 {
					break
				}
			}

			if result = DataSourceSeekToPCMFrame(ds, b.loopBeg); result != Success {
				break
			}
		}
	}

	*framesRead = total
	if result == Success && total == 0 {
		return AtEnd
	}
	if total > 0 && result == AtEnd {
		return Success
	}
	return result
}

// DataSourceSeekPCMFrames moves the cursor forward by frameCount frames.
// It is a read without a destination buffer.
func DataSourceSeekPCMFrames(ds DataSource, frameCount uint64, framesSeeked *uint64) Result {
	return DataSourceReadPCMFrames(ds, nil, frameCount, framesSeeked)
}

// DataSourceSeekToPCMFrame moves the cursor to frameIndex, relative to the range start
func DataSourceSeekToPCMFrame(ds DataSource, frameIndex uint64) Result {
	if ds == nil {
		return InvalidArgs
	}
	b := baseOf(ds)
	if b.vtable == nil {
		return InvalidOperation
	}
	if b.vtable.OnSeek == nil {
		return NotImplemented
	}

	if b.rangeEnd != RangeEnd && frameIndex > b.rangeEnd-b.rangeBeg {
		return InvalidOperation
	}
	return b.vtable.OnSeek(ds, b.rangeBeg+frameIndex)
}

func dataSourceSampleRate(ds DataSource) (uint32, Result) {
	var sampleRate uint32
	if r := DataSourceGetDataFormat(ds, nil, nil, &sampleRate, nil, 0); r != Success {
		return 0, r
	}
	if sampleRate == 0 {
		return 0, InvalidData
	}
	return sampleRate, Success
}

// DataSourceSeekSeconds moves the cursor forward by seconds
func DataSourceSeekSeconds(ds DataSource, seconds float64, secondsSeeked *float64) Result {
	if secondsSeeked != nil {
		*secondsSeeked = 0
	}
	sampleRate, r := dataSourceSampleRate(ds)
	if r != Success {
		return r
	}

	var frames uint64
	r = DataSourceSeekPCMFrames(ds, uint64(seconds*float64(sampleRate)), &frames)
	if secondsSeeked != nil {
		*secondsSeeked = float64(frames) / float64(sampleRate)
	}
	return r
}

// DataSourceSeekToSecond moves the cursor to an absolute time, relative to the range start
func DataSourceSeekToSecond(ds DataSource, seconds float64) Result {
	sampleRate, r := dataSourceSampleRate(ds)
	if r != Success {
		return r
	}
	return DataSourceSeekToPCMFrame(ds, uint64(seconds*float64(sampleRate)))
}

// DataSourceGetDataFormat queries the source format. Every output is optional.
// channelMap, when not nil, receives at most channelMapCap entries.
func DataSourceGetDataFormat(ds DataSource, format *audio.SampleFormat, channels, sampleRate *uint32, channelMap *audio.Channel, channelMapCap int) Result {
	if format != nil {
		*format = audio.FormatUnknown
	}
	if channels != nil {
		*channels = 0
	}
	if sampleRate != nil {
		*sampleRate = 0
	}

	if ds == nil {
		return InvalidArgs
	}
	b := baseOf(ds)
	if b.vtable == nil {
		return InvalidOperation
	}
	if b.vtable.OnGetDataFormat == nil {
		return NotImplemented
	}

	var f audio.SampleFormat
	var ch, sr uint32
	var scratch [audio.MaxChannels]audio.Channel
	if channelMap == nil || channelMapCap <= 0 {
		channelMap = &scratch[0]
		channelMapCap = len(scratch)
	}

	if r := b.vtable.OnGetDataFormat(ds, &f, &ch, &sr, channelMap, channelMapCap); r != Success {
		return r
	}

	if format != nil {
		*format = f
	}
	if channels != nil {
		*channels = ch
	}
	if sampleRate != nil {
		*sampleRate = sr
	}
	return Success
}

// DataSourceGetCursorInPCMFrames reports the cursor relative to the range start
func DataSourceGetCursorInPCMFrames(ds DataSource, cursor *uint64) Result {
	if cursor == nil {
		return InvalidArgs
	}
	*cursor = 0
	if ds == nil {
		return InvalidArgs
	}
	b := baseOf(ds)
	if b.vtable == nil {
		return InvalidOperation
	}
	if b.vtable.OnGetCursor == nil {
		return NotImplemented
	}

	var abs uint64
	if r := b.vtable.OnGetCursor(ds, &abs); r != Success {
		return r
	}
	if abs > b.rangeBeg {
		*cursor = abs - b.rangeBeg
	}
	return Success
}

// DataSourceGetLengthInPCMFrames reports the playable length. A bounded range
// answers without consulting the source.
func DataSourceGetLengthInPCMFrames(ds DataSource, length *uint64) Result {
	if length == nil {
		return InvalidArgs
	}
	*length = 0
	if ds == nil {
		return InvalidArgs
	}
	b := baseOf(ds)
	if b.vtable == nil {
		return InvalidOperation
	}

	if b.rangeEnd != RangeEnd {
		*length = b.rangeEnd - b.rangeBeg
		return Success
	}
	if b.vtable.OnGetLength == nil {
		return NotImplemented
	}

	var abs uint64
	if r := b.vtable.OnGetLength(ds, &abs); r != Success {
		return r
	}
	if abs > b.rangeBeg {
		*length = abs - b.rangeBeg
	}
	return Success
}

// DataSourceGetCursorInSeconds reports the cursor in seconds
func DataSourceGetCursorInSeconds(ds DataSource, cursor *float64) Result {
	if cursor == nil {
		return InvalidArgs
	}
	*cursor = 0

	var frames uint64
	if r := DataSourceGetCursorInPCMFrames(ds, &frames); r != Success {
		return r
	}
	sampleRate, r := dataSourceSampleRate(ds)
	if r != Success {
		return r
	}
	*cursor = float64(frames) / float64(sampleRate)
	return Success
}

// DataSourceGetLengthInSeconds reports the playable length in seconds
func DataSourceGetLengthInSeconds(ds DataSource, length *float64) Result {
	if length == nil {
		return InvalidArgs
	}
	*length = 0

	var frames uint64
	if r := DataSourceGetLengthInPCMFrames(ds, &frames); r != Success {
		return r
	}
	sampleRate, r := dataSourceSampleRate(ds)
	if r != Success {
		return r
	}
	*length = float64(frames) / float64(sampleRate)
	return Success
}

// DataSourceSetLooping stores the looping flag and notifies the source
func DataSourceSetLooping(ds DataSource, looping bool) Result {
	if ds == nil {
		return InvalidArgs
	}
	b := baseOf(ds)
	if b.vtable == nil {
		return InvalidOperation
	}

	b.looping.Store(looping)
	if b.vtable.OnSetLooping == nil {
		return Success
	}
	return b.vtable.OnSetLooping(ds, looping)
}

// DataSourceIsLooping reports the looping flag
func DataSourceIsLooping(ds DataSource) bool {
	if ds == nil {
		return false
	}
	return baseOf(ds).looping.Load()
}

// DataSourceSetRangeInPCMFrames restricts playback to [begin, end). The loop
// region is clamped to the new range and the cursor is moved inside it.
func DataSourceSetRangeInPCMFrames(ds DataSource, begin, end uint64) Result {
	if ds == nil || end < begin {
		return InvalidArgs
	}
	b := baseOf(ds)
	if b.vtable == nil {
		return InvalidOperation
	}

	b.rangeBeg = begin
	b.rangeEnd = end

	if b.loopEnd != LoopPointEnd && end != RangeEnd {
		b.loopEnd = min(b.loopEnd, end-begin)
	}
	if b.loopEnd != LoopPointEnd && b.loopBeg > b.loopEnd {
		b.loopBeg = b.loopEnd
	}

	// The cursor is best effort: sources without cursor or seek support keep theirs.
	if b.vtable.OnGetCursor != nil && b.vtable.OnSeek != nil {
		var cursor uint64
		if b.vtable.OnGetCursor(ds, &cursor) == Success {
			switch {
			case cursor < begin:
				b.vtable.OnSeek(ds, begin)
			case cursor > end:
				b.vtable.OnSeek(ds, end)
			}
		}
	}
	return Success
}

// DataSourceGetRangeInPCMFrames reports the playable range
func DataSourceGetRangeInPCMFrames(ds DataSource, begin, end *uint64) {
	var beg, en uint64 = 0, RangeEnd
	if ds != nil {
		b := baseOf(ds)
		beg, en = b.rangeBeg, b.rangeEnd
	}
	if begin != nil {
		*begin = beg
	}
	if end != nil {
		*end = en
	}
}

// DataSourceSetLoopPointInPCMFrames sets the loop region, relative to the range start
func DataSourceSetLoopPointInPCMFrames(ds DataSource, begin, end uint64) Result {
	if ds == nil || end < begin {
		return InvalidArgs
	}
	b := baseOf(ds)
	if b.vtable == nil {
		return InvalidOperation
	}
	if end != LoopPointEnd && b.rangeEnd != RangeEnd && end > b.rangeEnd-b.rangeBeg {
		return InvalidArgs
	}

	b.loopBeg = begin
	b.loopEnd = end
	return Success
}

// DataSourceGetLoopPointInPCMFrames reports the loop region, relative to the range start
func DataSourceGetLoopPointInPCMFrames(ds DataSource, begin, end *uint64) {
	var beg, en uint64 = 0, LoopPointEnd
	if ds != nil {
		b := baseOf(ds)
		beg, en = b.loopBeg, b.loopEnd
	}
	if begin != nil {
		*begin = beg
	}
	if end != nil {
		*end = en
	}
}
