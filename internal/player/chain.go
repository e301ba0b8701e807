// ABOUTME: Playback chain from a data source to the graph endpoint
// ABOUTME: Source node, optional resampler, gain and meter, with locked transport controls
package player

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
	"github.com/Resonate-Protocol/mabridge/pkg/nodes"
	"github.com/Resonate-Protocol/mabridge/pkg/sources"
)

// Config describes the graph a Chain renders
type Config struct {
	SampleRate  int
	Channels    uint32
	BlockFrames uint32
	Volume      int
}

// Status is a snapshot of playback
type Status struct {
	Position float64
	Length   float64 // 0 when the source has no known length
	Looping  bool
	Paused   bool
	AtEnd    bool
	Peak     float64 // dBFS
	RMS      float64 // dBFS
}

// Chain renders a source through the node graph. Read is safe to call from
// an audio callback while the transport methods run on other goroutines.
type Chain struct {
	mu      sync.Mutex
	graph   engine.NodeGraph
	srcNode engine.DataSourceNode

	source    sources.Source
	format    audio.Format
	resampler *nodes.Resampler
	gain      *nodes.Gain
	meter     *nodes.Meter
	paused    atomic.Bool

	logger *logrus.Entry
}

// NewChain builds the graph for src. A resampler is inserted when the source
// rate differs from cfg.SampleRate.
func NewChain(src sources.Source, cfg Config) (*Chain, error) {
	format, err := src.GetDataFormat()
	if err != nil {
		return nil, fmt.Errorf("failed to query source format: %w", err)
	}

	c := &Chain{
		source: src,
		format: format,
		logger: logrus.WithFields(logrus.Fields{"component": "chain", "source": src.Name()}),
	}

	graphCfg := engine.NewNodeGraphConfig(cfg.Channels)
	if cfg.BlockFrames > 0 {
		graphCfg.ProcessingSizeInFrames = cfg.BlockFrames
	}
	if err := engine.NodeGraphInit(&graphCfg, &c.graph).Err(); err != nil {
		return nil, fmt.Errorf("failed to init graph: %w", err)
	}
	if err := engine.DataSourceNodeInit(&c.graph, src.DataSource(), &c.srcNode).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to init source node: %w", err)
	}

	upstream := c.srcNode.Node()
	if int(format.SampleRate) != cfg.SampleRate {
		c.resampler, err = nodes.NewResampler(&c.graph, format.Channels, int(format.SampleRate), cfg.SampleRate)
		if err != nil {
			c.Close()
			return nil, err
		}
		if err := engine.NodeAttachOutputBus(upstream, 0, c.resampler.Node(), 0).Err(); err != nil {
			c.Close()
			return nil, err
		}
		upstream = c.resampler.Node()
		c.logger.Infof("Resampling %d Hz to %d Hz", format.SampleRate, cfg.SampleRate)
	}

	if c.gain, err = nodes.NewGain(&c.graph, format.Channels); err != nil {
		c.Close()
		return nil, err
	}
	c.gain.SetVolume(cfg.Volume)
	if c.meter, err = nodes.NewMeter(&c.graph, 0); err != nil {
		c.Close()
		return nil, err
	}

	for _, link := range [][2]engine.Node{
		{upstream, c.gain.Node()},
		{c.gain.Node(), c.meter.Node()},
		{c.meter.Node(), c.graph.Endpoint()},
	} {
		if err := engine.NodeAttachOutputBus(link[0], 0, link[1], 0).Err(); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to link chain: %w", err)
		}
	}

	c.logger.Debugf("Chain ready: source %s, graph %dch %d Hz", format, cfg.Channels, cfg.SampleRate)
	return c, nil
}

// Read renders interleaved frames. While paused it returns silence.
func (c *Chain) Read(out []float32) (int, error) {
	if c.paused.Load() {
		clear(out)
		return len(out) / int(c.graph.Channels()), nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graph.Read(out)
}

// SourceFormat returns the format the source produces
func (c *Chain) SourceFormat() audio.Format {
	return c.format
}

// Seek moves the source by delta seconds, clamped to the start
func (c *Chain) Seek(delta float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cursor, err := c.source.GetCursorSeconds()
	if err != nil {
		return fmt.Errorf("failed to get cursor: %w", err)
	}
	target := max(0, cursor+delta)
	if length, err := c.source.GetLengthSeconds(); err == nil && target > length {
		target = length
	}
	if err := c.source.SeekToSeconds(target); err != nil {
		return fmt.Errorf("failed to seek to %.2fs: %w", target, err)
	}
	if c.resampler != nil {
		c.resampler.Reset()
	}
	return nil
}

// SetLooping restarts the source at its loop point when it ends
func (c *Chain) SetLooping(looping bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source.SetLooping(looping)
}

func (c *Chain) SetVolume(volume int, muted bool) {
	c.gain.SetVolume(volume)
	c.gain.SetMuted(muted)
}

func (c *Chain) SetPaused(paused bool) {
	c.paused.Store(paused)
}

// Status reports playback state and the levels metered since the last call
func (c *Chain) Status() Status {
	levels := c.meter.Levels()
	c.meter.Reset()

	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		Looping: c.source.IsLooping(),
		Paused:  c.paused.Load(),
		AtEnd:   c.srcNode.AtEnd(),
		Peak:    nodes.DBFS(levels.Peak),
		RMS:     nodes.DBFS(levels.RMS),
	}
	if pos, err := c.source.GetCursorSeconds(); err == nil {
		s.Position = pos
	}
	if length, err := c.source.GetLengthSeconds(); err == nil {
		s.Length = length
	}
	return s
}

// Close detaches every node. The source stays open.
func (c *Chain) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.meter != nil {
		c.meter.Uninit()
	}
	if c.gain != nil {
		c.gain.Uninit()
	}
	if c.resampler != nil {
		c.resampler.Uninit()
	}
	engine.DataSourceNodeUninit(&c.srcNode)
	engine.NodeGraphUninit(&c.graph)
}
