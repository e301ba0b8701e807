// ABOUTME: Typed callback contract implemented by concrete data sources
// ABOUTME: Also provides the Unimplemented defaults and the Controller view of an adapter
package datasource

import (
	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// Callbacks is the method set the engine drives on a concrete source.
// A failing callback returns an engine.Result (optionally wrapped); any
// other error is reported to the engine as engine.Error.
type Callbacks interface {
	// OnRead fills out, which is in the source's format and channel count,
	// and returns the number of frames written.
	OnRead(out audio.View) (uint64, error)
	// OnSkip advances the cursor by up to frameCount frames without
	// producing output and returns the number of frames skipped.
	OnSkip(frameCount uint64) (uint64, error)
	// OnSeek moves the cursor to an absolute frame.
	OnSeek(frameIndex uint64) error
	// OnGetDataFormat describes the source. The channel map may be longer
	// than channelMapCap; only the first channelMapCap entries are used.
	OnGetDataFormat(channelMapCap int) (audio.Format, error)
	OnGetCursor() (uint64, error)
	OnGetLength() (uint64, error)
	OnSetLooping(looping bool) error
}

// Unimplemented answers every callback with engine.NotImplemented.
// Embed it to implement only part of Callbacks.
type Unimplemented struct{}

func (Unimplemented) OnRead(audio.View) (uint64, error) { return 0, engine.NotImplemented }

func (Unimplemented) OnSkip(uint64) (uint64, error) { return 0, engine.NotImplemented }

func (Unimplemented) OnSeek(uint64) error { return engine.NotImplemented }

func (Unimplemented) OnGetDataFormat(int) (audio.Format, error) {
	return audio.Format{}, engine.NotImplemented
}

func (Unimplemented) OnGetCursor() (uint64, error) { return 0, engine.NotImplemented }

func (Unimplemented) OnGetLength() (uint64, error) { return 0, engine.NotImplemented }

func (Unimplemented) OnSetLooping(bool) error { return engine.NotImplemented }

// Controller is the control surface of any adapted source
type Controller interface {
	DataSource() engine.DataSource
	ReadPCMFrames(out audio.View) (uint64, error)

	SeekFrames(frameCount uint64) (uint64, error)
	SeekSeconds(seconds float64) (float64, error)
	SeekToFrame(frameIndex uint64) error
	SeekToSeconds(seconds float64) error

	GetDataFormat() (audio.Format, error)
	GetCursorFrames() (uint64, error)
	GetLengthFrames() (uint64, error)
	GetCursorSeconds() (float64, error)
	GetLengthSeconds() (float64, error)

	SetLooping(looping bool) error
	IsLooping() bool

	SetPCMRange(start, end uint64) error
	SetPCMRangeOf(r audio.FrameRange) error
	GetPCMRange() audio.FrameRange
	SetLoopPoint(start, end uint64) error
	SetLoopPointOf(r audio.FrameRange) error
	GetLoopPoint() audio.FrameRange

	Uninit()
}
