// ABOUTME: Oto-based audio output implementation
// ABOUTME: Feeds the oto player a 16-bit PCM reader that renders on demand
package output

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/pkg/audio/encode"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// maxReadFrames bounds one render call made on behalf of the oto player
const maxReadFrames = 4096

// Oto output implementation using oto library. Oto allows one context per
// process, so the first Open fixes the rate and channel count.
type Oto struct {
	otoCtx *oto.Context
	player *oto.Player
	reader *PCMReader
	format Format
	logger *logrus.Entry

	mu sync.Mutex
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{
		logger: logrus.WithField("output", "oto"),
	}
}

// Open starts playing r. Oto only plays 16-bit audio; other depths are
// rendered at 16 bits.
func (o *Oto) Open(r Renderer, format Format) error {
	if format.BitDepth != 16 {
		o.logger.WithField("bit_depth", format.BitDepth).Warn("oto only supports 16-bit output, using 16")
		format.BitDepth = 16
	}
	if err := format.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil && (o.format.SampleRate != format.SampleRate || o.format.Channels != format.Channels) {
		return fmt.Errorf("oto context already running at %s, cannot switch to %s", o.format, format)
	}

	if o.otoCtx == nil {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			return fmt.Errorf("failed to create oto context: %w", err)
		}
		<-ready
		o.otoCtx = ctx
	}

	if o.player != nil {
		o.player.Close()
	}

	o.format = format
	o.reader = NewPCMReader(r, format)
	o.player = o.otoCtx.NewPlayer(o.reader)
	o.player.Play()

	o.logger.WithField("format", format.String()).Info("Audio output initialized")
	return nil
}

// Done is closed once the player has consumed the renderer's last frame
func (o *Oto) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.reader == nil {
		return nil
	}
	return o.reader.Done()
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			o.logger.WithError(err).Warn("oto suspend error")
		}
	}
	return nil
}

// PCMReader renders little-endian PCM bytes from a Renderer on each Read.
// It returns io.EOF once the renderer reports engine.AtEnd.
type PCMReader struct {
	renderer Renderer
	encoder  *encode.PCMEncoder
	channels int
	frameLen int

	buf     []float32
	store   []byte
	pending []byte

	done     chan struct{}
	doneOnce sync.Once
}

// NewPCMReader wraps r. format must pass Validate.
func NewPCMReader(r Renderer, format Format) *PCMReader {
	return &PCMReader{
		renderer: r,
		encoder:  format.pcmEncoder(),
		channels: format.Channels,
		frameLen: format.Channels * format.BitDepth / 8,
		buf:      make([]float32, maxReadFrames*format.Channels),
		done:     make(chan struct{}),
	}
}

func (p *PCMReader) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		frames := min(max(1, len(b)/p.frameLen), maxReadFrames)
		buf := p.buf[:frames*p.channels]

		n, err := p.renderer.Read(buf)
		if errors.Is(err, engine.AtEnd) {
			p.doneOnce.Do(func() { close(p.done) })
			return 0, io.EOF
		}
		if err != nil {
			return 0, err
		}

		p.store = p.encoder.AppendEncoded(p.store[:0], buf[:n*p.channels])
		p.pending = p.store
	}

	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

// Done is closed when the reader has returned io.EOF
func (p *PCMReader) Done() <-chan struct{} {
	return p.done
}
