// ABOUTME: Sample rate conversion node
// ABOUTME: Pulls exactly the input its linear resampler needs for each output block
package nodes

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/audio/resample"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
	"github.com/Resonate-Protocol/mabridge/pkg/node"
)

type resamplerShape struct{ node.OneInOneOut }

func (resamplerShape) Flags() engine.NodeFlags { return engine.NodeFlagDifferentProcessingRates }

// Resampler converts its input from one sample rate to another
type Resampler struct {
	node.Adapter[Resampler, *Resampler, resamplerShape]

	mu sync.Mutex
	r  *resample.Resampler
}

// NewResampler creates a node converting inputRate to outputRate
func NewResampler(graph *engine.NodeGraph, channels uint32, inputRate, outputRate int) (*Resampler, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("%w: resample %d Hz to %d Hz", engine.InvalidArgs, inputRate, outputRate)
	}
	if channels == 0 {
		channels = graph.Channels()
	}

	n := &Resampler{r: resample.New(inputRate, outputRate, int(channels))}
	if err := n.Init(graph, n, node.WithInputChannels(channels), node.WithOutputChannels(channels)); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Resampler) InputRate() int  { return n.r.InputRate() }
func (n *Resampler) OutputRate() int { return n.r.OutputRate() }

// Reset drops interpolation state, for use after the upstream source seeks
func (n *Resampler) Reset() {
	n.mu.Lock()
	n.r.Reset()
	n.mu.Unlock()
}

func (n *Resampler) OnGetRequiredInputFrames(outputFrames uint32) (uint32, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return uint32(n.r.InputFramesNeeded(int(outputFrames))), nil
}

func (n *Resampler) OnProcess(in, out []audio.View, frames *node.Frames) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := n.r.Channels()
	consumed, produced := n.r.Process(
		in[0].Float32()[:int(frames.In)*ch],
		out[0].Float32()[:int(frames.Out)*ch],
	)
	frames.In, frames.Out = uint32(consumed), uint32(produced)
	return nil
}
