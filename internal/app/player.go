// ABOUTME: Main player application orchestration
// ABOUTME: Coordinates the source, the playback chain, the output and the TUI
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/internal/config"
	"github.com/Resonate-Protocol/mabridge/internal/discovery"
	"github.com/Resonate-Protocol/mabridge/internal/player"
	"github.com/Resonate-Protocol/mabridge/internal/ui"
	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/audio/output"
	"github.com/Resonate-Protocol/mabridge/pkg/sources"
)

const statusInterval = 250 * time.Millisecond

var ErrEndless = errors.New("endless source needs a duration")

// Config holds player configuration
type Config struct {
	// Source is a file path or stream URL. Empty plays the configured tone.
	Source   string
	Settings config.Config
	UseTUI   bool
	// Advertise is the mDNS service name for Serve. Empty disables advertisement.
	Advertise string
}

// Player represents the main player application
type Player struct {
	config Config

	source   sources.Source
	chain    *player.Chain
	output   output.Output
	wav      *output.WAVFile
	controls *ui.Controls
	tuiProg  *tea.Program

	playerState string
	logger      *logrus.Entry
}

// New creates a new player
func New(cfg Config) *Player {
	return &Player{
		config:      cfg,
		controls:    ui.NewControls(),
		playerState: "idle",
		logger:      logrus.WithField("component", "player"),
	}
}

// openSource opens the configured source and applies the duration limit
func (p *Player) openSource() (sources.Source, error) {
	s := p.config.Settings
	var src sources.Source
	if p.config.Source == "" {
		wave, err := sources.ParseWaveform(s.Waveform)
		if err != nil {
			return nil, err
		}
		tone := sources.DefaultToneConfig()
		tone.Waveform = wave
		tone.Frequency = s.Frequency
		tone.SampleRate = uint32(s.SampleRate)
		tone.Channels = uint32(s.Channels)
		if src, err = sources.NewTone(tone); err != nil {
			return nil, err
		}
	} else {
		var err error
		if src, err = sources.Open(p.config.Source); err != nil {
			return nil, err
		}
	}

	if s.Duration > 0 {
		format, err := src.GetDataFormat()
		if err != nil {
			_ = src.Close()
			return nil, err
		}
		end := uint64(s.Duration * float64(format.SampleRate))
		if err := src.SetPCMRange(0, end); err != nil {
			_ = src.Close()
			return nil, fmt.Errorf("failed to limit duration: %w", err)
		}
	}
	return src, nil
}

// prepare opens the source and builds the chain without starting output
func (p *Player) prepare() error {
	s := p.config.Settings
	src, err := p.openSource()
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	p.source = src

	chain, err := player.NewChain(src, player.Config{
		SampleRate:  s.SampleRate,
		Channels:    uint32(s.Channels),
		BlockFrames: uint32(s.BufferFrames),
		Volume:      s.Volume,
	})
	if err != nil {
		return err
	}
	p.chain = chain

	if s.Loop {
		if err := chain.SetLooping(true); err != nil {
			return fmt.Errorf("failed to enable looping: %w", err)
		}
	}

	p.logger = p.logger.WithFields(logrus.Fields{
		"source": src.Name(),
		"id":     src.ID().String(),
	})
	p.logger.WithField("format", chain.SourceFormat().String()).Info("Source opened")
	return nil
}

// Start opens the source, builds the chain, starts the output and the TUI
func (p *Player) Start() error {
	if err := p.prepare(); err != nil {
		return err
	}

	s := p.config.Settings
	format := output.Format{SampleRate: s.SampleRate, Channels: s.Channels, BitDepth: s.BitDepth}

	if s.Output == "wav" {
		// Tones never end and looping sources only end at the duration
		if s.Duration <= 0 && (s.Loop || p.config.Source == "") {
			return fmt.Errorf("%w: set a duration to render to WAV", ErrEndless)
		}
		var maxFrames uint64
		if s.Duration > 0 {
			maxFrames = uint64(s.Duration * float64(s.SampleRate))
		}
		p.wav = output.NewWAVFile(s.OutFile, maxFrames)
		p.output = p.wav
	} else {
		out, err := output.New(s.Output)
		if err != nil {
			return err
		}
		p.output = out
	}

	if err := p.output.Open(p.chain, format); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	p.playerState = "playing"

	if p.config.UseTUI {
		p.tuiProg = ui.Run(p.controls)
		go func() {
			if _, err := p.tuiProg.Run(); err != nil {
				p.logger.WithError(err).Error("TUI failed")
			}
		}()
		backend := s.Output
		if backend == "wav" {
			backend = "wav: " + s.OutFile
		}
		p.updateTUI(ui.StatusMsg{
			Source: p.source.Name(),
			Format: p.chain.SourceFormat().String(),
			Output: fmt.Sprintf("%s %s", backend, format),
			State:  p.playerState,
		})
	}
	return nil
}

// Run plays until the source ends, the user quits or ctx is cancelled
func (p *Player) Run(ctx context.Context) error {
	if err := p.Start(); err != nil {
		p.Stop()
		return err
	}
	defer p.Stop()

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutdown requested")
			return nil

		case <-p.output.Done():
			p.playerState = "finished"
			p.publishStatus()
			if p.wav != nil {
				frames, err := p.wav.Result()
				if err != nil {
					return err
				}
				p.logger.WithField("frames", frames).Info("Render complete")
			}
			p.logger.Info("Playback finished")
			return nil

		case vol := <-p.controls.Volume:
			p.logger.Debugf("Volume change: %d%%, muted=%v", vol.Volume, vol.Muted)
			p.chain.SetVolume(vol.Volume, vol.Muted)

		case seek := <-p.controls.Seek:
			if err := p.chain.Seek(seek.Seconds); err != nil {
				p.logger.WithError(err).Warn("Seek failed")
			}

		case looping := <-p.controls.Loop:
			if err := p.chain.SetLooping(looping); err != nil {
				p.logger.WithError(err).Warn("Failed to change looping")
			}

		case paused := <-p.controls.Pause:
			p.chain.SetPaused(paused)
			p.playerState = "playing"
			if paused {
				p.playerState = "paused"
			}

		case <-p.controls.Quit:
			p.logger.Info("Received quit signal from TUI")
			return nil

		case <-ticker.C:
			p.publishStatus()
		}
	}
}

// Serve streams the rendered chain to websocket clients on addr until ctx is
// cancelled. codec is pcm or opus.
func (p *Player) Serve(ctx context.Context, addr, codec string) error {
	if err := p.prepare(); err != nil {
		p.Stop()
		return err
	}
	defer p.Stop()

	s := p.config.Settings
	srv, err := sources.NewStreamServer(p.chain, sources.StreamServerConfig{
		Format: audio.StreamFormat{
			Codec:      codec,
			SampleRate: s.SampleRate,
			Channels:   s.Channels,
			BitDepth:   s.BitDepth,
		},
		Realtime: true,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/stream", srv)
	httpServer := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Serve(ln) }()
	p.playerState = "serving"
	p.logger.Infof("Serving %s stream on ws://%s/stream", codec, ln.Addr())

	if p.config.Advertise != "" {
		mgr := discovery.NewManager(discovery.Config{
			ServiceName: p.config.Advertise,
			Port:        ln.Addr().(*net.TCPAddr).Port,
			Path:        "/stream",
			Codec:       codec,
		})
		defer mgr.Stop()
		if err := mgr.Advertise(); err != nil {
			p.logger.WithError(err).Warn("mDNS advertisement failed")
		}
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// publishStatus sends a snapshot of playback to the TUI
func (p *Player) publishStatus() {
	if p.chain == nil || p.tuiProg == nil {
		return
	}
	st := p.chain.Status()
	p.updateTUI(ui.StatusMsg{
		State:    p.playerState,
		Position: &st.Position,
		Length:   st.Length,
		Looping:  &st.Looping,
		Peak:     &st.Peak,
		RMS:      &st.RMS,
	})
}

func (p *Player) updateTUI(msg ui.StatusMsg) {
	if p.tuiProg != nil {
		p.tuiProg.Send(msg)
	}
}

// Stop releases the output, chain and source
func (p *Player) Stop() {
	if p.tuiProg != nil {
		p.tuiProg.Quit()
		p.tuiProg.Wait()
		p.tuiProg = nil
	}
	if p.output != nil {
		if err := p.output.Close(); err != nil {
			p.logger.WithError(err).Warn("Error closing output")
		}
		p.output = nil
	}
	if p.chain != nil {
		p.chain.Close()
		p.chain = nil
	}
	if p.source != nil {
		if err := p.source.Close(); err != nil {
			p.logger.WithError(err).Warn("Error closing source")
		}
		p.source = nil
	}
	p.playerState = "stopped"
}
