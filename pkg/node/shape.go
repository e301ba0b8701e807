// ABOUTME: Type-level bus topology and processing contract for graph nodes
// ABOUTME: Shapes fix bus counts and flags per node type; Processor is what a node implements
package node

import (
	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// Shape declares a node type's bus counts and flags. A count of
// engine.NodeBusCountUnknown means each instance supplies it at Init.
type Shape interface {
	InputBuses() uint8
	OutputBuses() uint8
	Flags() engine.NodeFlags
}

// OneInOneOut is a plain effect
type OneInOneOut struct{}

func (OneInOneOut) InputBuses() uint8       { return 1 }
func (OneInOneOut) OutputBuses() uint8      { return 1 }
func (OneInOneOut) Flags() engine.NodeFlags { return 0 }

// NoInputOneOut is a generator
type NoInputOneOut struct{}

func (NoInputOneOut) InputBuses() uint8       { return 0 }
func (NoInputOneOut) OutputBuses() uint8      { return 1 }
func (NoInputOneOut) Flags() engine.NodeFlags { return 0 }

// ManyInOneOut takes its input bus count per instance
type ManyInOneOut struct{}

func (ManyInOneOut) InputBuses() uint8       { return engine.NodeBusCountUnknown }
func (ManyInOneOut) OutputBuses() uint8      { return 1 }
func (ManyInOneOut) Flags() engine.NodeFlags { return 0 }

// OneInManyOut takes its output bus count per instance
type OneInManyOut struct{}

func (OneInManyOut) InputBuses() uint8       { return 1 }
func (OneInManyOut) OutputBuses() uint8      { return engine.NodeBusCountUnknown }
func (OneInManyOut) Flags() engine.NodeFlags { return 0 }

// ManyInManyOut takes both bus counts per instance
type ManyInManyOut struct{}

func (ManyInManyOut) InputBuses() uint8       { return engine.NodeBusCountUnknown }
func (ManyInManyOut) OutputBuses() uint8      { return engine.NodeBusCountUnknown }
func (ManyInManyOut) Flags() engine.NodeFlags { return 0 }

// Frames carries the per-block frame counts shared by every bus.
// On entry In is the input available and Out the output capacity;
// OnProcess sets them to the frames consumed and produced. A node with
// engine.NodeFlagAllowNullInput sees In == 0 and empty input views when
// the graph has nothing to feed it.
type Frames struct {
	In  uint32
	Out uint32
}

// Processor is the method set the graph drives on a concrete node.
// Views are interleaved float32, one per bus, valid only during the call.
type Processor interface {
	OnProcess(in, out []audio.View, frames *Frames) error
	// OnGetRequiredInputFrames reports the input needed to produce
	// outputFrames. Only consulted for engine.NodeFlagDifferentProcessingRates.
	OnGetRequiredInputFrames(outputFrames uint32) (uint32, error)
}

// OneToOne answers OnGetRequiredInputFrames for nodes that consume one input
// frame per output frame. Embed it alongside the Adapter.
type OneToOne struct{}

func (OneToOne) OnGetRequiredInputFrames(outputFrames uint32) (uint32, error) {
	return outputFrames, nil
}
