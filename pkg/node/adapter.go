// ABOUTME: Generic adapter turning a typed processor into an engine graph node
// ABOUTME: Handles registration, bus topology options and the node control primitives
package node

import (
	"fmt"
	"unsafe"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// Adapter must be the first field of T:
//
//	type Gain struct {
//		node.Adapter[Gain, *Gain, node.OneInOneOut]
//		node.OneToOne
//		...
//	}
type Adapter[T any, P interface {
	*T
	Processor
}, S Shape] struct {
	base engine.NodeBase

	inChannels  []int
	outChannels []int
	inViews     []audio.View
	outViews    []audio.View
}

type options struct {
	inputBuses     *uint32
	outputBuses    *uint32
	inputChannels  []uint32
	outputChannels []uint32
	state          engine.NodeState
}

// Option configures Adapter.Init
type Option func(*options)

// WithInputBusCount sets the input bus count of a shape that leaves it open
func WithInputBusCount(n uint32) Option {
	return func(o *options) { o.inputBuses = &n }
}

// WithOutputBusCount sets the output bus count of a shape that leaves it open
func WithOutputBusCount(n uint32) Option {
	return func(o *options) { o.outputBuses = &n }
}

// WithInputChannels sets per-bus input channel counts. Missing buses use the graph's.
func WithInputChannels(channels ...uint32) Option {
	return func(o *options) { o.inputChannels = channels }
}

// WithOutputChannels sets per-bus output channel counts. Missing buses use the graph's.
func WithOutputChannels(channels ...uint32) Option {
	return func(o *options) { o.outputChannels = channels }
}

// WithInitialState starts the node stopped or started
func WithInitialState(state engine.NodeState) Option {
	return func(o *options) { o.state = state }
}

// Init registers self with graph. Passing a self that does not embed a as its
// first field, or omitting a bus count the shape leaves open, panics.
func (a *Adapter[T, P, S]) Init(graph *engine.NodeGraph, self P, opts ...Option) error {
	if unsafe.Pointer(self) != unsafe.Pointer(&a.base) {
		var zero T
		panic(fmt.Sprintf("node: Adapter must be the first field of %T", zero))
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var shape S
	cfg := engine.NodeConfig{
		VTable:         vtableFor[T, P, S](),
		InitialState:   o.state,
		InputChannels:  o.inputChannels,
		OutputChannels: o.outputChannels,
	}
	if shape.InputBuses() == engine.NodeBusCountUnknown {
		if o.inputBuses == nil {
			panic(fmt.Sprintf("node: %T has a per-instance input bus count; use WithInputBusCount", shape))
		}
		cfg.InputBusCount = *o.inputBuses
	}
	if shape.OutputBuses() == engine.NodeBusCountUnknown {
		if o.outputBuses == nil {
			panic(fmt.Sprintf("node: %T has a per-instance output bus count; use WithOutputBusCount", shape))
		}
		cfg.OutputBusCount = *o.outputBuses
	}

	if err := engine.NodeInit(graph, &cfg, a.Node()).Err(); err != nil {
		return fmt.Errorf("failed to init node: %w", err)
	}

	h := a.Node()
	a.inChannels = make([]int, engine.NodeGetInputBusCount(h))
	a.outChannels = make([]int, engine.NodeGetOutputBusCount(h))
	for i := range a.inChannels {
		a.inChannels[i] = int(engine.NodeGetInputChannels(h, uint32(i)))
	}
	for i := range a.outChannels {
		a.outChannels[i] = int(engine.NodeGetOutputChannels(h, uint32(i)))
	}
	a.inViews = make([]audio.View, len(a.inChannels))
	a.outViews = make([]audio.View, len(a.outChannels))
	return nil
}

// Uninit detaches the node from the graph
func (a *Adapter[T, P, S]) Uninit() {
	engine.NodeUninit(a.Node())
}

// Node returns the engine handle
func (a *Adapter[T, P, S]) Node() engine.Node {
	return engine.Node(unsafe.Pointer(&a.base))
}

// Graph returns the graph the node was registered with
func (a *Adapter[T, P, S]) Graph() *engine.NodeGraph {
	return engine.NodeGetNodeGraph(a.Node())
}

// AttachOutputBus feeds outputBus into an input bus of other
func (a *Adapter[T, P, S]) AttachOutputBus(outputBus uint32, other engine.Node, otherInputBus uint32) error {
	return engine.NodeAttachOutputBus(a.Node(), outputBus, other, otherInputBus).Err()
}

func (a *Adapter[T, P, S]) DetachOutputBus(outputBus uint32) error {
	return engine.NodeDetachOutputBus(a.Node(), outputBus).Err()
}

func (a *Adapter[T, P, S]) DetachAllOutputBuses() error {
	return engine.NodeDetachAllOutputBuses(a.Node()).Err()
}

// SetOutputBusVolume sets the gain applied where outputBus is mixed
func (a *Adapter[T, P, S]) SetOutputBusVolume(outputBus uint32, volume float32) error {
	return engine.NodeSetOutputBusVolume(a.Node(), outputBus, volume).Err()
}

func (a *Adapter[T, P, S]) GetOutputBusVolume(outputBus uint32) float32 {
	return engine.NodeGetOutputBusVolume(a.Node(), outputBus)
}

func (a *Adapter[T, P, S]) SetState(state engine.NodeState) error {
	return engine.NodeSetState(a.Node(), state).Err()
}

func (a *Adapter[T, P, S]) GetState() engine.NodeState {
	return engine.NodeGetState(a.Node())
}

func (a *Adapter[T, P, S]) InputBusCount() uint32 {
	return engine.NodeGetInputBusCount(a.Node())
}

func (a *Adapter[T, P, S]) OutputBusCount() uint32 {
	return engine.NodeGetOutputBusCount(a.Node())
}

func (a *Adapter[T, P, S]) InputChannels(inputBus uint32) uint32 {
	return engine.NodeGetInputChannels(a.Node(), inputBus)
}

func (a *Adapter[T, P, S]) OutputChannels(outputBus uint32) uint32 {
	return engine.NodeGetOutputChannels(a.Node(), outputBus)
}
