// ABOUTME: Node summing several input buses into one output
// ABOUTME: Each input has its own gain; the sum can be hard clipped
package nodes

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
	"github.com/Resonate-Protocol/mabridge/pkg/node"
)

// Mixer adds its input buses. Unlike several outputs attached to one input
// bus, each Mixer input keeps an independent gain.
type Mixer struct {
	node.Adapter[Mixer, *Mixer, node.ManyInOneOut]
	node.OneToOne

	gains []atomic.Uint32
	clip  atomic.Bool
}

// NewMixer creates a mixer with inputs input buses
func NewMixer(graph *engine.NodeGraph, inputs int, channels uint32) (*Mixer, error) {
	if inputs < 1 || inputs > engine.MaxNodeBusCount {
		return nil, fmt.Errorf("%w: %d mixer inputs", engine.InvalidArgs, inputs)
	}

	m := &Mixer{gains: make([]atomic.Uint32, inputs)}
	for i := range m.gains {
		m.gains[i].Store(math.Float32bits(1))
	}

	in := make([]uint32, inputs)
	for i := range in {
		in[i] = channels
	}
	err := m.Init(graph, m,
		node.WithInputBusCount(uint32(inputs)),
		node.WithInputChannels(in...),
		node.WithOutputChannels(channels),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SetInputGain sets the linear gain of one input bus
func (m *Mixer) SetInputGain(inputBus int, gain float32) error {
	if inputBus < 0 || inputBus >= len(m.gains) {
		return engine.InvalidArgs
	}
	m.gains[inputBus].Store(math.Float32bits(gain))
	return nil
}

func (m *Mixer) InputGain(inputBus int) float32 {
	if inputBus < 0 || inputBus >= len(m.gains) {
		return 0
	}
	return math.Float32frombits(m.gains[inputBus].Load())
}

// SetClipping limits the sum to [-1, 1] when enabled
func (m *Mixer) SetClipping(enabled bool) {
	m.clip.Store(enabled)
}

func (m *Mixer) OnProcess(in, out []audio.View, frames *node.Frames) error {
	n := min(frames.In, frames.Out)
	dst := out[0].Float32()[:int(n)*out[0].Channels()]
	clear(dst)

	for i, bus := range in {
		gain := math.Float32frombits(m.gains[i].Load())
		if gain == 0 {
			continue
		}
		for j, s := range bus.Float32()[:len(dst)] {
			dst[j] += s * gain
		}
	}

	if m.clip.Load() {
		for i, s := range dst {
			dst[i] = max(-1, min(1, s))
		}
	}

	frames.In, frames.Out = n, n
	return nil
}
