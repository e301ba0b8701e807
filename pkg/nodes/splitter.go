// ABOUTME: Node copying one input to several output buses
// ABOUTME: Lets one signal feed independent chains, each with its own bus volume
package nodes

import (
	"fmt"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
	"github.com/Resonate-Protocol/mabridge/pkg/node"
)

// Splitter duplicates its input onto every output bus
type Splitter struct {
	node.Adapter[Splitter, *Splitter, node.OneInManyOut]
	node.OneToOne
}

// NewSplitter creates a splitter with outputs output buses
func NewSplitter(graph *engine.NodeGraph, outputs int, channels uint32) (*Splitter, error) {
	if outputs < 1 || outputs > engine.MaxNodeBusCount {
		return nil, fmt.Errorf("%w: %d splitter outputs", engine.InvalidArgs, outputs)
	}

	outCh := make([]uint32, outputs)
	for i := range outCh {
		outCh[i] = channels
	}

	s := &Splitter{}
	err := s.Init(graph, s,
		node.WithOutputBusCount(uint32(outputs)),
		node.WithInputChannels(channels),
		node.WithOutputChannels(outCh...),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Splitter) OnProcess(in, out []audio.View, frames *node.Frames) error {
	n := int(min(frames.In, frames.Out))
	src := in[0].Slice(0, n)
	for _, bus := range out {
		bus.Slice(0, n).CopyFrom(src)
	}
	frames.In, frames.Out = uint32(n), uint32(n)
	return nil
}
