// ABOUTME: Data source over an in-memory PCM buffer
// ABOUTME: Backs decoded WAV files and any caller-provided samples
package sources

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/datasource"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// Memory serves frames from a buffer it does not copy. The caller must not
// modify the buffer while the source is in use.
type Memory struct {
	datasource.Adapter[Memory, *Memory]
	info

	data       audio.View
	sampleRate uint32
	channelMap []audio.Channel

	cursor  atomic.Uint64
	looping atomic.Bool
}

// NewMemory wraps data, interleaved at sampleRate, as a source
func NewMemory(data audio.View, sampleRate uint32) (*Memory, error) {
	return newMemory("memory", "memory", data, sampleRate)
}

// NewMemoryFloat32 wraps interleaved float32 samples as a source
func NewMemoryFloat32(samples []float32, channels int, sampleRate uint32) (*Memory, error) {
	return NewMemory(audio.NewFloat32View(samples, channels), sampleRate)
}

func newMemory(kind, name string, data audio.View, sampleRate uint32) (*Memory, error) {
	if data.Channels() < audio.MinChannels || data.Channels() > audio.MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidFormat, data.Channels())
	}
	if data.Format().BytesPerSample() == 0 || sampleRate == 0 {
		return nil, fmt.Errorf("%w: %s at %d Hz", ErrInvalidFormat, data.Format(), sampleRate)
	}

	m := &Memory{
		info:       newInfo(kind, name),
		data:       data,
		sampleRate: sampleRate,
		channelMap: audio.DefaultChannelMap(data.Channels()),
	}
	if err := m.Init(m); err != nil {
		return nil, fmt.Errorf("failed to init memory source: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"format":   data.Format().String(),
		"channels": data.Channels(),
		"rate":     sampleRate,
		"frames":   data.Frames(),
	}).Debug("Memory source ready")
	return m, nil
}

func (m *Memory) remaining() uint64 {
	return uint64(m.data.Frames()) - min(m.cursor.Load(), uint64(m.data.Frames()))
}

func (m *Memory) OnRead(out audio.View) (uint64, error) {
	n := min(uint64(out.Frames()), m.remaining())
	if n == 0 {
		return 0, nil
	}
	cur := int(m.cursor.Load())
	out.Slice(0, int(n)).CopyFrom(m.data.Slice(cur, cur+int(n)))
	m.cursor.Add(n)
	return n, nil
}

func (m *Memory) OnSkip(frameCount uint64) (uint64, error) {
	n := min(frameCount, m.remaining())
	m.cursor.Add(n)
	return n, nil
}

func (m *Memory) OnSeek(frameIndex uint64) error {
	if frameIndex > uint64(m.data.Frames()) {
		return engine.InvalidArgs
	}
	m.cursor.Store(frameIndex)
	return nil
}

func (m *Memory) OnGetDataFormat(int) (audio.Format, error) {
	return audio.Format{
		SampleFormat: m.data.Format(),
		Channels:     uint32(m.data.Channels()),
		SampleRate:   m.sampleRate,
		ChannelMap:   m.channelMap,
	}, nil
}

func (m *Memory) OnGetCursor() (uint64, error) {
	return m.cursor.Load(), nil
}

func (m *Memory) OnGetLength() (uint64, error) {
	return uint64(m.data.Frames()), nil
}

// OnSetLooping records the flag; the engine performs the wrap
func (m *Memory) OnSetLooping(looping bool) error {
	m.looping.Store(looping)
	return nil
}

// Close unregisters the source
func (m *Memory) Close() error {
	m.Uninit()
	return nil
}
