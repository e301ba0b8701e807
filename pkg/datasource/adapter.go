// ABOUTME: Generic adapter turning a typed source into an engine data source
// ABOUTME: Registration plus typed wrappers over the engine's control primitives
package datasource

import (
	"fmt"
	"unsafe"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// Adapter must be the first field of T:
//
//	type Tone struct {
//		datasource.Adapter[Tone, *Tone]
//		...
//	}
//
// The engine handle is the adapter's address, which is therefore also the
// address of the enclosing T. Call Init once T is ready to be driven.
type Adapter[T any, P interface {
	*T
	Callbacks
}] struct {
	base engine.DataSourceBase
}

// Init registers self with the engine. self must be the value embedding a;
// anything else is a programming error and panics.
func (a *Adapter[T, P]) Init(self P) error {
	if unsafe.Pointer(self) != unsafe.Pointer(&a.base) {
		var zero T
		panic(fmt.Sprintf("datasource: Adapter must be the first field of %T", zero))
	}

	cfg := engine.NewDataSourceConfig(vtableFor[T, P]())
	if err := engine.DataSourceInit(&cfg, a.DataSource()).Err(); err != nil {
		return fmt.Errorf("failed to init data source: %w", err)
	}
	return nil
}

// Uninit unregisters the source. The engine stops calling it.
func (a *Adapter[T, P]) Uninit() {
	engine.DataSourceUninit(a.DataSource())
}

// DataSource returns the engine handle
func (a *Adapter[T, P]) DataSource() engine.DataSource {
	return engine.DataSource(unsafe.Pointer(&a.base))
}

// ReadPCMFrames pulls frames through the engine, honouring range and loop
// settings. out must match the source's sample format and channel count.
func (a *Adapter[T, P]) ReadPCMFrames(out audio.View) (uint64, error) {
	if out.Empty() {
		return 0, engine.InvalidArgs
	}

	var format audio.SampleFormat
	var channels uint32
	if err := engine.DataSourceGetDataFormat(a.DataSource(), &format, &channels, nil, nil, 0).Err(); err != nil {
		return 0, err
	}
	if format != out.Format() || int(channels) != out.Channels() {
		return 0, engine.InvalidArgs
	}

	var read uint64
	err := engine.DataSourceReadPCMFrames(a.DataSource(), out.Pointer(), uint64(out.Frames()), &read).Err()
	return read, err
}

// SeekFrames moves the cursor forward and returns how far it moved
func (a *Adapter[T, P]) SeekFrames(frameCount uint64) (uint64, error) {
	var seeked uint64
	if err := engine.DataSourceSeekPCMFrames(a.DataSource(), frameCount, &seeked).Err(); err != nil {
		return 0, err
	}
	return seeked, nil
}

// SeekSeconds moves the cursor forward and returns how far it moved
func (a *Adapter[T, P]) SeekSeconds(seconds float64) (float64, error) {
	var seeked float64
	if err := engine.DataSourceSeekSeconds(a.DataSource(), seconds, &seeked).Err(); err != nil {
		return 0, err
	}
	return seeked, nil
}

// SeekToFrame moves the cursor to frameIndex within the range
func (a *Adapter[T, P]) SeekToFrame(frameIndex uint64) error {
	return engine.DataSourceSeekToPCMFrame(a.DataSource(), frameIndex).Err()
}

// SeekToSeconds moves the cursor to a time within the range
func (a *Adapter[T, P]) SeekToSeconds(seconds float64) error {
	return engine.DataSourceSeekToSecond(a.DataSource(), seconds).Err()
}

// GetDataFormat queries the source format with a full-size channel map
func (a *Adapter[T, P]) GetDataFormat() (audio.Format, error) {
	var f audio.Format
	channelMap := make([]audio.Channel, audio.MaxChannels)

	r := engine.DataSourceGetDataFormat(a.DataSource(), &f.SampleFormat, &f.Channels, &f.SampleRate, &channelMap[0], len(channelMap))
	if err := r.Err(); err != nil {
		return audio.Format{}, err
	}
	f.ChannelMap = channelMap[:min(int(f.Channels), len(channelMap))]
	return f, nil
}

// GetCursorFrames returns the cursor relative to the range start
func (a *Adapter[T, P]) GetCursorFrames() (uint64, error) {
	var cursor uint64
	if err := engine.DataSourceGetCursorInPCMFrames(a.DataSource(), &cursor).Err(); err != nil {
		return 0, err
	}
	return cursor, nil
}

// GetLengthFrames returns the playable length
func (a *Adapter[T, P]) GetLengthFrames() (uint64, error) {
	var length uint64
	if err := engine.DataSourceGetLengthInPCMFrames(a.DataSource(), &length).Err(); err != nil {
		return 0, err
	}
	return length, nil
}

// GetCursorSeconds returns the cursor in seconds
func (a *Adapter[T, P]) GetCursorSeconds() (float64, error) {
	var cursor float64
	if err := engine.DataSourceGetCursorInSeconds(a.DataSource(), &cursor).Err(); err != nil {
		return 0, err
	}
	return cursor, nil
}

// GetLengthSeconds returns the playable length in seconds
func (a *Adapter[T, P]) GetLengthSeconds() (float64, error) {
	var length float64
	if err := engine.DataSourceGetLengthInSeconds(a.DataSource(), &length).Err(); err != nil {
		return 0, err
	}
	return length, nil
}

func (a *Adapter[T, P]) SetLooping(looping bool) error {
	return engine.DataSourceSetLooping(a.DataSource(), looping).Err()
}

func (a *Adapter[T, P]) IsLooping() bool {
	return engine.DataSourceIsLooping(a.DataSource())
}

// SetPCMRange restricts playback to [start, end)
func (a *Adapter[T, P]) SetPCMRange(start, end uint64) error {
	return engine.DataSourceSetRangeInPCMFrames(a.DataSource(), start, end).Err()
}

func (a *Adapter[T, P]) SetPCMRangeOf(r audio.FrameRange) error {
	return a.SetPCMRange(r.Start, r.End)
}

func (a *Adapter[T, P]) GetPCMRange() audio.FrameRange {
	var r audio.FrameRange
	engine.DataSourceGetRangeInPCMFrames(a.DataSource(), &r.Start, &r.End)
	return r
}

// SetLoopPoint sets the loop region relative to the range start
func (a *Adapter[T, P]) SetLoopPoint(start, end uint64) error {
	return engine.DataSourceSetLoopPointInPCMFrames(a.DataSource(), start, end).Err()
}

func (a *Adapter[T, P]) SetLoopPointOf(r audio.FrameRange) error {
	return a.SetLoopPoint(r.Start, r.End)
}

func (a *Adapter[T, P]) GetLoopPoint() audio.FrameRange {
	var r audio.FrameRange
	engine.DataSourceGetLoopPointInPCMFrames(a.DataSource(), &r.Start, &r.End)
	return r
}
