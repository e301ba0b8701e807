// ABOUTME: Raw vtable data source used by engine tests
// ABOUTME: Mono float32 frames held in memory with a plain cursor
package engine

import (
	"unsafe"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
)

type rawSource struct {
	base DataSourceBase

	samples   []float32
	cursor    uint64
	looping   bool
	formatErr Result
	reads     int
}

func (s *rawSource) handle() DataSource {
	return DataSource(unsafe.Pointer(s))
}

func rawSourceOf(ds DataSource) *rawSource {
	return (*rawSource)(unsafe.Pointer(ds))
}

var rawSourceVTable = DataSourceVTable{
	OnRead: func(ds DataSource, framesOut unsafe.Pointer, frameCount uint64, framesRead *uint64) Result {
		s := rawSourceOf(ds)
		s.reads++
		n := min(frameCount, uint64(len(s.samples))-s.cursor)
		if framesOut != nil && n > 0 {
			copy(unsafe.Slice((*float32)(framesOut), n), s.samples[s.cursor:])
		}
		s.cursor += n
		*framesRead = n
		if n == 0 {
			return AtEnd
		}
		return Success
	},
	OnSeek: func(ds DataSource, frameIndex uint64) Result {
		s := rawSourceOf(ds)
		if frameIndex > uint64(len(s.samples)) {
			return BadSeek
		}
		s.cursor = frameIndex
		return Success
	},
	OnGetDataFormat: func(ds DataSource, format *audio.SampleFormat, channels, sampleRate *uint32, channelMap *audio.Channel, channelMapCap int) Result {
		s := rawSourceOf(ds)
		if s.formatErr != Success {
			return s.formatErr
		}
		*format = audio.FormatF32
		*channels = 1
		*sampleRate = 10
		if channelMapCap > 0 {
			unsafe.Slice(channelMap, channelMapCap)[0] = audio.ChannelMono
		}
		return Success
	},
	OnGetCursor: func(ds DataSource, cursor *uint64) Result {
		*cursor = rawSourceOf(ds).cursor
		return Success
	},
	OnGetLength: func(ds DataSource, length *uint64) Result {
		*length = uint64(len(rawSourceOf(ds).samples))
		return Success
	},
	OnSetLooping: func(ds DataSource, looping bool) Result {
		rawSourceOf(ds).looping = looping
		return Success
	},
}

// newRawSource returns a registered source holding frames 0, 1, ..., n-1
func newRawSource(n int) *rawSource {
	s := &rawSource{samples: make([]float32, n)}
	for i := range s.samples {
		s.samples[i] = float32(i)
	}
	cfg := NewDataSourceConfig(&rawSourceVTable)
	if r := DataSourceInit(&cfg, s.handle()); r != Success {
		panic(r)
	}
	return s
}
