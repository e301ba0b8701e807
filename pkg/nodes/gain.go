// ABOUTME: Volume and mute node
// ABOUTME: Scales its input by a 0-100 volume, with mute forcing silence
package nodes

import (
	"sync/atomic"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
	"github.com/Resonate-Protocol/mabridge/pkg/node"
)

const (
	MinVolume = 0
	MaxVolume = 100
)

// Gain applies a volume between MinVolume and MaxVolume to its input
type Gain struct {
	node.Adapter[Gain, *Gain, node.OneInOneOut]
	node.OneToOne

	volume atomic.Int32
	muted  atomic.Bool
}

// NewGain creates a gain node at full volume
func NewGain(graph *engine.NodeGraph, channels uint32) (*Gain, error) {
	g := &Gain{}
	g.volume.Store(MaxVolume)
	if err := g.Init(graph, g, node.WithInputChannels(channels), node.WithOutputChannels(channels)); err != nil {
		return nil, err
	}
	return g, nil
}

// SetVolume sets the volume, clamped to [MinVolume, MaxVolume]
func (g *Gain) SetVolume(volume int) {
	g.volume.Store(int32(max(MinVolume, min(MaxVolume, volume))))
}

func (g *Gain) Volume() int {
	return int(g.volume.Load())
}

func (g *Gain) SetMuted(muted bool) {
	g.muted.Store(muted)
}

func (g *Gain) Muted() bool {
	return g.muted.Load()
}

// multiplier returns the factor applied to samples
func (g *Gain) multiplier() float32 {
	if g.muted.Load() {
		return 0
	}
	return float32(g.volume.Load()) / MaxVolume
}

func (g *Gain) OnProcess(in, out []audio.View, frames *node.Frames) error {
	n := min(frames.In, frames.Out)
	m := g.multiplier()

	src := in[0].Float32()[:int(n)*in[0].Channels()]
	dst := out[0].Float32()
	for i, s := range src {
		dst[i] = s * m
	}

	frames.In, frames.Out = n, n
	return nil
}
