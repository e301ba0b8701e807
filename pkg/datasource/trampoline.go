// ABOUTME: Untyped vtable entry points generated per concrete source type
// ABOUTME: The only code in this package that turns engine handles back into typed values
package datasource

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// vtables holds one *engine.DataSourceVTable per concrete type, never freed
var vtables sync.Map

func vtableFor[T any, P interface {
	*T
	Callbacks
}]() *engine.DataSourceVTable {
	key := reflect.TypeOf((*T)(nil)).Elem()
	if vt, ok := vtables.Load(key); ok {
		return vt.(*engine.DataSourceVTable)
	}

	vt, _ := vtables.LoadOrStore(key, &engine.DataSourceVTable{
		OnRead:          onRead[T, P],
		OnSeek:          onSeek[T, P],
		OnGetDataFormat: onGetDataFormat[T, P],
		OnGetCursor:     onGetCursor[T, P],
		OnGetLength:     onGetLength[T, P],
		OnSetLooping:    onSetLooping[T, P],
	})
	return vt.(*engine.DataSourceVTable)
}

// FromHandle recovers the concrete source behind ds. It returns nil when ds
// is nil or was not registered by an Adapter for T.
func FromHandle[T any, P interface {
	*T
	Callbacks
}](ds engine.DataSource) P {
	if ds == nil || engine.DataSourceVTableOf(ds) != vtableFor[T, P]() {
		return nil
	}
	return self[T, P](ds)
}

// self is valid because the Adapter, and with it the DataSourceBase, sits at
// offset zero of T. Init enforces that.
func self[T any, P interface {
	*T
	Callbacks
}](ds engine.DataSource) P {
	return P((*T)(unsafe.Pointer(ds)))
}

func onRead[T any, P interface {
	*T
	Callbacks
}](ds engine.DataSource, framesOut unsafe.Pointer, frameCount uint64, framesRead *uint64) engine.Result {
	if ds == nil || framesRead == nil {
		return engine.InvalidArgs
	}
	*framesRead = 0
	s := self[T, P](ds)

	if framesOut == nil {
		n, err := s.OnSkip(frameCount)
		*framesRead = min(n, frameCount)
		return engine.ResultOf(err)
	}

	format, err := s.OnGetDataFormat(audio.MaxChannels)
	if err != nil {
		return engine.ResultOf(err)
	}
	if format.Channels < audio.MinChannels || format.Channels > audio.MaxChannels || format.SampleFormat.BytesPerSample() == 0 {
		return engine.InvalidData
	}

	view := audio.ViewAt(format.SampleFormat, framesOut, int(frameCount), int(format.Channels))
	n, err := s.OnRead(view)
	*framesRead = min(n, frameCount)
	return engine.ResultOf(err)
}

func onSeek[T any, P interface {
	*T
	Callbacks
}](ds engine.DataSource, frameIndex uint64) engine.Result {
	if ds == nil {
		return engine.InvalidArgs
	}
	return engine.ResultOf(self[T, P](ds).OnSeek(frameIndex))
}

func onGetDataFormat[T any, P interface {
	*T
	Callbacks
}](ds engine.DataSource, format *audio.SampleFormat, channels, sampleRate *uint32, channelMap *audio.Channel, channelMapCap int) engine.Result {
	if ds == nil || format == nil || channels == nil || sampleRate == nil || channelMap == nil {
		return engine.InvalidArgs
	}
	if channelMapCap < audio.MinChannels || channelMapCap > audio.MaxChannels {
		return engine.InvalidArgs
	}

	f, err := self[T, P](ds).OnGetDataFormat(channelMapCap)
	if err != nil {
		return engine.ResultOf(err)
	}

	*format = f.SampleFormat
	*channels = f.Channels
	*sampleRate = f.SampleRate
	copy(unsafe.Slice(channelMap, channelMapCap), f.ChannelMap)
	return engine.Success
}

func onGetCursor[T any, P interface {
	*T
	Callbacks
}](ds engine.DataSource, cursor *uint64) engine.Result {
	if ds == nil || cursor == nil {
		return engine.InvalidArgs
	}
	c, err := self[T, P](ds).OnGetCursor()
	if err != nil {
		return engine.ResultOf(err)
	}
	*cursor = c
	return engine.Success
}

func onGetLength[T any, P interface {
	*T
	Callbacks
}](ds engine.DataSource, length *uint64) engine.Result {
	if ds == nil || length == nil {
		return engine.InvalidArgs
	}
	l, err := self[T, P](ds).OnGetLength()
	if err != nil {
		return engine.ResultOf(err)
	}
	*length = l
	return engine.Success
}

func onSetLooping[T any, P interface {
	*T
	Callbacks
}](ds engine.DataSource, looping bool) engine.Result {
	if ds == nil {
		return engine.InvalidArgs
	}
	return engine.ResultOf(self[T, P](ds).OnSetLooping(looping))
}
