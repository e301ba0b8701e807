// ABOUTME: Level metering node
// ABOUTME: Passes audio through unchanged while tracking peak and RMS levels
package nodes

import (
	"math"
	"sync/atomic"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
	"github.com/Resonate-Protocol/mabridge/pkg/node"
)

// Levels is a snapshot of a Meter
type Levels struct {
	// Peak is the largest absolute sample since the last Reset
	Peak float32
	// RMS is the root mean square of the most recent block
	RMS float32
	// Frames counts frames metered since the last Reset
	Frames uint64
}

// Meter measures the signal passing through it
type Meter struct {
	node.Adapter[Meter, *Meter, node.OneInOneOut]
	node.OneToOne

	peak   atomic.Uint32
	rms    atomic.Uint32
	frames atomic.Uint64
}

// NewMeter creates a meter node
func NewMeter(graph *engine.NodeGraph, channels uint32) (*Meter, error) {
	m := &Meter{}
	if err := m.Init(graph, m, node.WithInputChannels(channels), node.WithOutputChannels(channels)); err != nil {
		return nil, err
	}
	return m, nil
}

// Levels returns the current readings
func (m *Meter) Levels() Levels {
	return Levels{
		Peak:   math.Float32frombits(m.peak.Load()),
		RMS:    math.Float32frombits(m.rms.Load()),
		Frames: m.frames.Load(),
	}
}

// Reset clears the readings
func (m *Meter) Reset() {
	m.peak.Store(0)
	m.rms.Store(0)
	m.frames.Store(0)
}

// DBFS converts a linear level to decibels relative to full scale
func DBFS(level float32) float64 {
	if level <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(float64(level))
}

func (m *Meter) OnProcess(in, out []audio.View, frames *node.Frames) error {
	n := min(frames.In, frames.Out)
	src := in[0].Float32()[:int(n)*in[0].Channels()]
	copy(out[0].Float32(), src)

	if len(src) > 0 {
		peak := math.Float32frombits(m.peak.Load())
		var sum float64
		for _, s := range src {
			a := float32(math.Abs(float64(s)))
			peak = max(peak, a)
			sum += float64(s) * float64(s)
		}
		m.peak.Store(math.Float32bits(peak))
		m.rms.Store(math.Float32bits(float32(math.Sqrt(sum / float64(len(src))))))
		m.frames.Add(uint64(n))
	}

	frames.In, frames.Out = n, n
	return nil
}
