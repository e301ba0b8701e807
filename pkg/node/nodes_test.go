// ABOUTME: Concrete nodes used by the adapter tests
// ABOUTME: Generators, effects, mixers and a decimating node with recorded calls
package node_test

import (
	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
	"github.com/Resonate-Protocol/mabridge/pkg/node"
)

// ramp writes 0, 1, 2, ... to every channel, stopping after limit frames when limit > 0
type ramp struct {
	node.Adapter[ramp, *ramp, node.NoInputOneOut]
	node.OneToOne

	next  float32
	limit int
}

func (r *ramp) OnProcess(_, out []audio.View, frames *node.Frames) error {
	n := int(frames.Out)
	if r.limit > 0 {
		n = min(n, r.limit-int(r.next))
	}
	samples, channels := out[0].Float32(), out[0].Channels()
	for f := 0; f < n; f++ {
		for ch := 0; ch < channels; ch++ {
			samples[f*channels+ch] = r.next
		}
		r.next++
	}
	frames.Out = uint32(n)
	return nil
}

// doubler multiplies its input by two
type doubler struct {
	node.Adapter[doubler, *doubler, node.OneInOneOut]
	node.OneToOne

	calls      int
	lastFrames node.Frames
	lastInCh   int
	lastOutCh  int
}

func (d *doubler) OnProcess(in, out []audio.View, frames *node.Frames) error {
	d.calls++
	d.lastFrames = *frames
	d.lastInCh = in[0].Channels()
	d.lastOutCh = out[0].Channels()

	n := min(frames.In, frames.Out)
	src := in[0].Float32()
	dst := out[0].Float32()
	for i := 0; i < int(n)*in[0].Channels(); i++ {
		dst[i] = src[i] * 2
	}
	frames.In, frames.Out = n, n
	return nil
}

// summer adds all of its input buses
type summer struct {
	node.Adapter[summer, *summer, node.ManyInOneOut]
	node.OneToOne
}

func (s *summer) OnProcess(in, out []audio.View, frames *node.Frames) error {
	n := min(frames.In, frames.Out)
	dst := out[0].Float32()[:int(n)*out[0].Channels()]
	clear(dst)
	for _, bus := range in {
		for i, v := range bus.Float32()[:len(dst)] {
			dst[i] += v
		}
	}
	frames.In, frames.Out = n, n
	return nil
}

// fanout copies its input to every output bus
type fanout struct {
	node.Adapter[fanout, *fanout, node.OneInManyOut]
	node.OneToOne
}

func (f *fanout) OnProcess(in, out []audio.View, frames *node.Frames) error {
	n := min(frames.In, frames.Out)
	for _, bus := range out {
		bus.Slice(0, int(n)).CopyFrom(in[0].Slice(0, int(n)))
	}
	frames.In, frames.Out = n, n
	return nil
}

type decimateShape struct{ node.OneInOneOut }

func (decimateShape) Flags() engine.NodeFlags { return engine.NodeFlagDifferentProcessingRates }

// decimator keeps every other input frame
type decimator struct {
	node.Adapter[decimator, *decimator, decimateShape]
}

func (d *decimator) OnGetRequiredInputFrames(outputFrames uint32) (uint32, error) {
	return outputFrames * 2, nil
}

func (d *decimator) OnProcess(in, out []audio.View, frames *node.Frames) error {
	n := min(frames.In/2, frames.Out)
	src, dst := in[0].Float32(), out[0].Float32()
	channels := out[0].Channels()
	for f := 0; f < int(n); f++ {
		dst[f*channels] = src[f*2*channels]
	}
	frames.In, frames.Out = n*2, n
	return nil
}

// failing returns err from every callback and counts calls
type failing struct {
	node.Adapter[failing, *failing, node.OneInOneOut]

	err   error
	calls int
}

func (f *failing) OnProcess(_, _ []audio.View, _ *node.Frames) error {
	f.calls++
	return f.err
}

func (f *failing) OnGetRequiredInputFrames(uint32) (uint32, error) {
	f.calls++
	return 0, f.err
}

// greedy claims more frames than it was given
type greedy struct {
	node.Adapter[greedy, *greedy, node.OneInOneOut]
	node.OneToOne
}

func (g *greedy) OnProcess(_, _ []audio.View, frames *node.Frames) error {
	frames.In, frames.Out = 100, 100
	return nil
}

// misplaced does not embed its Adapter first
type misplaced struct {
	tag int
	node.Adapter[misplaced, *misplaced, node.OneInOneOut]
	node.OneToOne
}

func (m *misplaced) OnProcess(_, _ []audio.View, _ *node.Frames) error { return nil }

// recorder keeps what the graph handed a node on its last block
type recorder struct {
	calls    int
	frames   node.Frames
	inFrames int
}

// constant writes 0.25 to every output frame and consumes all its input
func (r *recorder) constant(in, out []audio.View, frames *node.Frames) {
	r.calls++
	r.frames = *frames
	r.inFrames = in[0].Frames()
	for i := range out[0].Float32()[:int(frames.Out)*out[0].Channels()] {
		out[0].Float32()[i] = 0.25
	}
}

type continuousShape struct{ node.OneInOneOut }

func (continuousShape) Flags() engine.NodeFlags { return engine.NodeFlagContinuousProcessing }

// sustain keeps producing output after its input runs dry
type sustain struct {
	node.Adapter[sustain, *sustain, continuousShape]
	node.OneToOne
	recorder
}

func (s *sustain) OnProcess(in, out []audio.View, frames *node.Frames) error {
	s.constant(in, out, frames)
	return nil
}

type nullInputShape struct{ node.OneInOneOut }

func (nullInputShape) Flags() engine.NodeFlags {
	return engine.NodeFlagContinuousProcessing | engine.NodeFlagAllowNullInput
}

// freewheel is a continuous node that accepts a missing input
type freewheel struct {
	node.Adapter[freewheel, *freewheel, nullInputShape]
	node.OneToOne
	recorder
}

func (f *freewheel) OnProcess(in, out []audio.View, frames *node.Frames) error {
	f.constant(in, out, frames)
	return nil
}

type silentShape struct{ node.OneInOneOut }

func (silentShape) Flags() engine.NodeFlags { return engine.NodeFlagSilentOutput }

// analyser is processed for its side effects only
type analyser struct {
	node.Adapter[analyser, *analyser, silentShape]
	node.OneToOne
	recorder
}

func (a *analyser) OnProcess(in, out []audio.View, frames *node.Frames) error {
	a.constant(in, out, frames)
	return nil
}
