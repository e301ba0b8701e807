// ABOUTME: Typed graph node adapter over the engine's node callback table
// ABOUTME: Concrete nodes implement Processor and embed Adapter as their first field
// Package node lets a Go type act as a processing node in an engine graph.
//
// Bus topology is part of the node's type through a Shape. Shapes that leave
// a bus count open (engine.NodeBusCountUnknown) take it per instance with
// WithInputBusCount or WithOutputBusCount.
//
//	type Gain struct {
//		node.Adapter[Gain, *Gain, node.OneInOneOut]
//		node.OneToOne
//		level float32
//	}
//
//	func (g *Gain) OnProcess(in, out []audio.View, frames *node.Frames) error {
//		n := min(frames.In, frames.Out)
//		for i, s := range in[0].Float32()[:int(n)*in[0].Channels()] {
//			out[0].Float32()[i] = s * g.level
//		}
//		frames.In, frames.Out = n, n
//		return nil
//	}
//
//	g := &Gain{level: 0.5}
//	err := g.Init(graph, g)
//
// Every block the graph calls OnProcess with one float32 view per bus. Frames
// holds the shared input and output frame counts, which the node overwrites
// with what it consumed and produced.
package node
