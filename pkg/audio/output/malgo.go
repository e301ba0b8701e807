// ABOUTME: Malgo-based audio output implementation with 24-bit support
// ABOUTME: The miniaudio device callback renders each period straight from the graph
package output

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/pkg/audio/encode"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   Format
	logger   *logrus.Entry

	period *period
	mu     sync.Mutex
}

// NewMalgo creates a new Malgo output
func NewMalgo() *Malgo {
	return &Malgo{
		logger: logrus.WithField("output", "malgo"),
	}
}

// Open initializes the playback device and starts rendering
func (m *Malgo) Open(r Renderer, format Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		m.logger.WithFields(logrus.Fields{"from": m.format, "to": format}).Info("Reopening playback device")
		m.closeDevice()
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	var deviceFormat malgo.FormatType
	switch format.BitDepth {
	case 16:
		deviceFormat = malgo.FormatS16
	case 24:
		deviceFormat = malgo.FormatS24
	case 32:
		deviceFormat = malgo.FormatS32
	}

	p := newPeriod(r, format)
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = deviceFormat
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			p.fill(pOutput, frameCount)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.format = format
	m.period = p

	m.logger.WithFields(logrus.Fields{
		"format":       format.String(),
		"device_codec": formatName(deviceFormat),
	}).Info("Audio output initialized")
	return nil
}

// Done is closed when the renderer runs out
func (m *Malgo) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.period == nil {
		return nil
	}
	return m.period.done
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.logger.WithError(err).Warn("malgo context uninit error")
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.device == nil {
		return
	}
	if err := m.device.Stop(); err != nil {
		m.logger.WithError(err).Warn("device stop error")
	}
	m.device.Uninit()
	m.device = nil
}

// period renders one device period at a time into the device's buffer
type period struct {
	renderer Renderer
	encoder  *encode.PCMEncoder
	channels int
	scratch  []float32

	done     chan struct{}
	doneOnce sync.Once
}

func newPeriod(r Renderer, format Format) *period {
	return &period{
		renderer: r,
		encoder:  format.pcmEncoder(),
		channels: format.Channels,
		done:     make(chan struct{}),
	}
}

// fill renders frameCount frames into out. Frames the renderer cannot
// produce are played as silence.
func (p *period) fill(out []byte, frameCount uint32) {
	n := int(frameCount) * p.channels
	if cap(p.scratch) < n {
		p.scratch = make([]float32, n)
	}
	buf := p.scratch[:n]

	if _, err := p.renderer.Read(buf); err != nil {
		clear(buf)
		if errors.Is(err, engine.AtEnd) {
			p.doneOnce.Do(func() { close(p.done) })
		}
	}

	// out is exactly one period long, so the encoder writes in place
	p.encoder.AppendEncoded(out[:0], buf)
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
