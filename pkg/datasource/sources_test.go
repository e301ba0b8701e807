// ABOUTME: Concrete sources used by the adapter tests
// ABOUTME: An in-memory spy source, a canary source and an always-failing source
package datasource_test

import (
	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/datasource"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// spySource holds mono float32 frames 0, 1, 2, ... and counts every callback
type spySource struct {
	datasource.Adapter[spySource, *spySource]

	samples    []float32
	cursor     uint64
	looping    bool
	channelMap []audio.Channel
	formatErrs []error

	calls     int
	reads     int
	skips     int
	lastCap   int
	loopCalls []bool
}

func newSpySource(frames int) *spySource {
	s := &spySource{
		samples:    make([]float32, frames),
		channelMap: []audio.Channel{audio.ChannelMono},
	}
	for i := range s.samples {
		s.samples[i] = float32(i)
	}
	if err := s.Init(s); err != nil {
		panic(err)
	}
	return s
}

func (s *spySource) OnRead(out audio.View) (uint64, error) {
	s.calls++
	s.reads++
	n := min(uint64(out.Frames()), uint64(len(s.samples))-s.cursor)
	copy(out.Float32(), s.samples[s.cursor:s.cursor+n])
	s.cursor += n
	return n, nil
}

func (s *spySource) OnSkip(frameCount uint64) (uint64, error) {
	s.calls++
	s.skips++
	n := min(frameCount, uint64(len(s.samples))-s.cursor)
	s.cursor += n
	return n, nil
}

func (s *spySource) OnSeek(frameIndex uint64) error {
	s.calls++
	if frameIndex > uint64(len(s.samples)) {
		return engine.BadSeek
	}
	s.cursor = frameIndex
	return nil
}

func (s *spySource) OnGetDataFormat(channelMapCap int) (audio.Format, error) {
	s.calls++
	s.lastCap = channelMapCap
	if len(s.formatErrs) > 0 {
		err := s.formatErrs[0]
		s.formatErrs = s.formatErrs[1:]
		return audio.Format{}, err
	}
	return audio.Format{
		SampleFormat: audio.FormatF32,
		Channels:     1,
		SampleRate:   10,
		ChannelMap:   s.channelMap,
	}, nil
}

func (s *spySource) OnGetCursor() (uint64, error) {
	s.calls++
	return s.cursor, nil
}

func (s *spySource) OnGetLength() (uint64, error) {
	s.calls++
	return uint64(len(s.samples)), nil
}

func (s *spySource) OnSetLooping(looping bool) error {
	s.calls++
	s.looping = looping
	s.loopCalls = append(s.loopCalls, looping)
	return nil
}

// canarySource trashes its canary on any write path
type canarySource struct {
	datasource.Adapter[canarySource, *canarySource]
	datasource.Unimplemented

	canary  []byte
	cursor  uint64
	skipped uint64
}

func (c *canarySource) OnRead(audio.View) (uint64, error) {
	for i := range c.canary {
		c.canary[i] = 0xDE
	}
	return 0, nil
}

func (c *canarySource) OnSkip(frameCount uint64) (uint64, error) {
	c.cursor += frameCount
	c.skipped += frameCount
	return frameCount, nil
}

func (c *canarySource) OnGetDataFormat(int) (audio.Format, error) {
	for i := range c.canary {
		c.canary[i] = 0xAD
	}
	return audio.Format{SampleFormat: audio.FormatS16, Channels: 2, SampleRate: 48000}, nil
}

// failSource returns err from every callback
type failSource struct {
	datasource.Adapter[failSource, *failSource]
	err error
}

func (f *failSource) OnRead(audio.View) (uint64, error)         { return 0, f.err }
func (f *failSource) OnSkip(uint64) (uint64, error)             { return 0, f.err }
func (f *failSource) OnSeek(uint64) error                       { return f.err }
func (f *failSource) OnGetCursor() (uint64, error)              { return 0, f.err }
func (f *failSource) OnGetLength() (uint64, error)              { return 0, f.err }
func (f *failSource) OnSetLooping(bool) error                   { return f.err }
func (f *failSource) OnGetDataFormat(int) (audio.Format, error) { return audio.Format{}, f.err }

// partialSource only knows its format
type partialSource struct {
	datasource.Adapter[partialSource, *partialSource]
	datasource.Unimplemented
}

func (p *partialSource) OnGetDataFormat(int) (audio.Format, error) {
	return audio.Format{SampleFormat: audio.FormatF32, Channels: 2, SampleRate: 48000}, nil
}

// misplacedSource does not embed its Adapter first
type misplacedSource struct {
	tag int
	datasource.Adapter[misplacedSource, *misplacedSource]
	datasource.Unimplemented
}
