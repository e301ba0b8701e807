// ABOUTME: Waveform generator data source
// ABOUTME: Sine, square, triangle and sawtooth tones of unbounded length
package sources

import (
	"fmt"
	"math"
	"sync"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/datasource"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// Waveform selects the shape a Tone generates
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveTriangle
	WaveSawtooth
)

func (w Waveform) String() string {
	switch w {
	case WaveSine:
		return "sine"
	case WaveSquare:
		return "square"
	case WaveTriangle:
		return "triangle"
	case WaveSawtooth:
		return "sawtooth"
	default:
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
}

// ParseWaveform maps a waveform name to its value
func ParseWaveform(name string) (Waveform, error) {
	for w := WaveSine; w <= WaveSawtooth; w++ {
		if w.String() == name {
			return w, nil
		}
	}
	return 0, fmt.Errorf("unknown waveform: %q", name)
}

// ToneConfig configures NewTone
type ToneConfig struct {
	Waveform   Waveform
	Frequency  float64
	Amplitude  float64
	SampleRate uint32
	Channels   uint32
	Format     audio.SampleFormat
}

// DefaultToneConfig is a 440Hz stereo sine at half amplitude
func DefaultToneConfig() ToneConfig {
	return ToneConfig{
		Waveform:   WaveSine,
		Frequency:  440, // A4 note
		Amplitude:  0.5,
		SampleRate: 48000,
		Channels:   2,
		Format:     audio.FormatF32,
	}
}

// Tone generates a periodic waveform. It has no length; seeking sets the
// phase as if the tone had played from frame zero.
type Tone struct {
	datasource.Adapter[Tone, *Tone]
	info

	mu         sync.Mutex
	config     ToneConfig
	channelMap []audio.Channel
	phase      float64 // cycles, in [0, 1)
	cursor     uint64
}

// NewTone creates a tone source
func NewTone(config ToneConfig) (*Tone, error) {
	if config.Channels < audio.MinChannels || config.Channels > audio.MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidFormat, config.Channels)
	}
	if config.SampleRate == 0 || config.Format.BytesPerSample() == 0 {
		return nil, fmt.Errorf("%w: %s at %d Hz", ErrInvalidFormat, config.Format, config.SampleRate)
	}

	t := &Tone{
		info:       newInfo("tone", fmt.Sprintf("%s %.0fHz", config.Waveform, config.Frequency)),
		config:     config,
		channelMap: audio.DefaultChannelMap(int(config.Channels)),
	}
	if err := t.Init(t); err != nil {
		return nil, fmt.Errorf("failed to init tone source: %w", err)
	}
	return t, nil
}

// SetFrequency changes the pitch without resetting the phase
func (t *Tone) SetFrequency(hz float64) {
	t.mu.Lock()
	t.config.Frequency = hz
	t.mu.Unlock()
}

// SetAmplitude changes the peak level
func (t *Tone) SetAmplitude(amplitude float64) {
	t.mu.Lock()
	t.config.Amplitude = amplitude
	t.mu.Unlock()
}

// SetWaveform changes the shape without resetting the phase
func (t *Tone) SetWaveform(w Waveform) {
	t.mu.Lock()
	t.config.Waveform = w
	t.mu.Unlock()
}

func (t *Tone) sample() float64 {
	p := t.phase
	switch t.config.Waveform {
	case WaveSquare:
		if p < 0.5 {
			return t.config.Amplitude
		}
		return -t.config.Amplitude
	case WaveTriangle:
		return (2*math.Abs(2*(p-0.5)) - 1) * t.config.Amplitude
	case WaveSawtooth:
		return 2 * (p - 0.5) * t.config.Amplitude
	default:
		return math.Sin(2*math.Pi*p) * t.config.Amplitude
	}
}

func (t *Tone) advance(frames uint64) {
	step := t.config.Frequency / float64(t.config.SampleRate)
	t.phase += step * float64(frames)
	t.phase -= math.Floor(t.phase)
	t.cursor += frames
}

func (t *Tone) OnRead(out audio.View) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for f := 0; f < out.Frames(); f++ {
		s := float32(t.sample())
		for ch := 0; ch < out.Channels(); ch++ {
			out.SetSample(f, ch, s)
		}
		t.advance(1)
	}
	return uint64(out.Frames()), nil
}

func (t *Tone) OnSkip(frameCount uint64) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advance(frameCount)
	return frameCount, nil
}

func (t *Tone) OnSeek(frameIndex uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase, t.cursor = 0, 0
	t.advance(frameIndex)
	return nil
}

func (t *Tone) OnGetDataFormat(int) (audio.Format, error) {
	return audio.Format{
		SampleFormat: t.config.Format,
		Channels:     t.config.Channels,
		SampleRate:   t.config.SampleRate,
		ChannelMap:   t.channelMap,
	}, nil
}

func (t *Tone) OnGetCursor() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor, nil
}

// OnGetLength reports NotImplemented: a tone never ends
func (t *Tone) OnGetLength() (uint64, error) {
	return 0, engine.NotImplemented
}

func (t *Tone) OnSetLooping(bool) error {
	return nil
}

// Close unregisters the source
func (t *Tone) Close() error {
	t.Uninit()
	return nil
}
