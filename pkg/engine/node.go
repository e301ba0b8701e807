// ABOUTME: Node ABI: handle header, callback table, bus topology and state
// ABOUTME: Nodes are attached output bus to input bus and pulled by the graph
package engine

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
)

// Node is the opaque handle the graph passes to callbacks. It points at a NodeBase.
type Node unsafe.Pointer

// NodeFlags describe how the graph drives a node
type NodeFlags uint32

const (
	// NodeFlagPassthrough nodes have one input and one output of equal width.
	// Without a process callback the input is copied to the output.
	NodeFlagPassthrough NodeFlags = 1 << iota
	// NodeFlagContinuousProcessing nodes are processed even when no input is available
	NodeFlagContinuousProcessing
	// NodeFlagAllowNullInput passes nil input pointers to a continuously processed node with no input
	NodeFlagAllowNullInput
	// NodeFlagDifferentProcessingRates nodes consume a different number of frames than they produce
	NodeFlagDifferentProcessingRates
	// NodeFlagSilentOutput nodes are processed but their output is discarded
	NodeFlagSilentOutput
)

const (
	// NodeBusCountUnknown in a vtable means the bus count is given per instance
	NodeBusCountUnknown = 255
	// MaxNodeBusCount bounds input and output bus counts
	MaxNodeBusCount = 254
)

// NodeState controls whether the graph processes a node
type NodeState int32

const (
	NodeStateStarted NodeState = 0
	NodeStateStopped NodeState = 1
)

func (s NodeState) String() string {
	if s == NodeStateStopped {
		return "stopped"
	}
	return "started"
}

// NodeVTable is the callback table and static topology of a node type.
//
// OnProcess receives one interleaved float32 buffer pointer per bus. On entry
// frameCountIn holds the frames available on every input bus and frameCountOut
// the capacity of every output bus. On return they hold frames consumed and
// frames produced. Unconsumed input is not retained.
type NodeVTable struct {
	OnProcess                    func(node Node, framesIn *unsafe.Pointer, frameCountIn *uint32, framesOut *unsafe.Pointer, frameCountOut *uint32) Result
	OnGetRequiredInputFrameCount func(node Node, outputFrameCount uint32, inputFrameCount *uint32) Result
	InputBusCount                uint8
	OutputBusCount               uint8
	Flags                        NodeFlags
}

// NodeConfig configures NodeInit
type NodeConfig struct {
	VTable       *NodeVTable
	InitialState NodeState

	// Bus counts are read when the vtable declares NodeBusCountUnknown
	InputBusCount  uint32
	OutputBusCount uint32

	// Per-bus channel counts. Missing or zero entries use the graph channel count.
	InputChannels  []uint32
	OutputChannels []uint32
}

// NewNodeConfig returns a config for the given callback table
func NewNodeConfig(vtable *NodeVTable, inputBusCount, outputBusCount uint32) NodeConfig {
	return NodeConfig{
		VTable:         vtable,
		InputBusCount:  inputBusCount,
		OutputBusCount: outputBusCount,
	}
}

type nodeInputBus struct {
	channels uint32
	sources  []*nodeOutputBus
	buf      []float32
}

type nodeOutputBus struct {
	owner    *NodeBase
	channels uint32
	volume   atomic.Uint32 // float32 bits

	target    *NodeBase
	targetBus uint32

	buf    []float32
	frames uint32 // valid frames in buf for the current block
}

// NodeBase is the control block every node begins with.
// A Node handle is the address of this struct.
type NodeBase struct {
	graph  *NodeGraph
	vtable *NodeVTable

	inputs  []nodeInputBus
	outputs []nodeOutputBus
	inPtrs  []unsafe.Pointer
	outPtrs []unsafe.Pointer

	state      atomic.Int32
	epoch      uint64
	processing bool
}

func nodeOf(node Node) *NodeBase {
	return (*NodeBase)(node)
}

func (b *NodeBase) handle() Node {
	return Node(unsafe.Pointer(b))
}

func busChannels(list []uint32, i int, fallback uint32) uint32 {
	if i < len(list) && list[i] != 0 {
		return list[i]
	}
	return fallback
}

func resolveBusCount(declared uint8, configured uint32) (uint32, Result) {
	if declared == NodeBusCountUnknown {
		return configured, Success
	}
	if configured != 0 && configured != uint32(declared) {
		return 0, InvalidArgs
	}
	return uint32(declared), Success
}

// NodeInit registers node with graph. The handle must point at a NodeBase
// embedded at offset zero of the caller's struct.
func NodeInit(graph *NodeGraph, config *NodeConfig, node Node) Result {
	if graph == nil || config == nil || config.VTable == nil || node == nil {
		return InvalidArgs
	}
	vt := config.VTable

	inCount, r := resolveBusCount(vt.InputBusCount, config.InputBusCount)
	if r != Success {
		return r
	}
	outCount, r := resolveBusCount(vt.OutputBusCount, config.OutputBusCount)
	if r != Success {
		return r
	}
	if inCount > MaxNodeBusCount || outCount > MaxNodeBusCount {
		return InvalidArgs
	}

	passthrough := vt.Flags&NodeFlagPassthrough != 0
	if passthrough && (inCount != 1 || outCount != 1) {
		return InvalidArgs
	}
	if vt.OnProcess == nil && !passthrough {
		return InvalidArgs
	}

	b := nodeOf(node)
	b.graph = graph
	b.vtable = nil
	b.inputs = make([]nodeInputBus, inCount)
	b.outputs = make([]nodeOutputBus, outCount)
	b.inPtrs = make([]unsafe.Pointer, inCount)
	b.outPtrs = make([]unsafe.Pointer, outCount)
	b.epoch = 0
	b.processing = false

	for i := range b.inputs {
		ch := busChannels(config.InputChannels, i, graph.channels)
		if ch > audio.MaxChannels {
			return InvalidArgs
		}
		b.inputs[i] = nodeInputBus{
			channels: ch,
			buf:      make([]float32, int(graph.processingSize)*int(ch)),
		}
	}
	for i := range b.outputs {
		ch := busChannels(config.OutputChannels, i, graph.channels)
		if ch > audio.MaxChannels {
			return InvalidArgs
		}
		ob := &b.outputs[i]
		ob.owner = b
		ob.channels = ch
		ob.buf = make([]float32, int(graph.processingSize)*int(ch))
		ob.volume.Store(math.Float32bits(1))
	}
	if passthrough && b.inputs[0].channels != b.outputs[0].channels {
		return InvalidArgs
	}

	b.state.Store(int32(config.InitialState))
	b.vtable = vt
	return Success
}

// NodeUninit detaches every connection to and from node and unregisters it
func NodeUninit(node Node) {
	if node == nil {
		return
	}
	b := nodeOf(node)
	if b.graph == nil {
		return
	}

	g := b.graph
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := range b.outputs {
		detachLocked(&b.outputs[i])
	}
	for i := range b.inputs {
		for _, src := range b.inputs[i].sources {
			src.target = nil
		}
		b.inputs[i].sources = nil
	}
	b.vtable = nil
	b.graph = nil
}

func detachLocked(ob *nodeOutputBus) {
	if ob.target == nil {
		return
	}
	in := &ob.target.inputs[ob.targetBus]
	for i, src := range in.sources {
		if src == ob {
			in.sources = append(in.sources[:i], in.sources[i+1:]...)
			break
		}
	}
	ob.target = nil
	ob.targetBus = 0
}

// NodeAttachOutputBus connects an output bus of node to an input bus of other.
// An output bus feeds at most one input bus; attaching again moves it.
func NodeAttachOutputBus(node Node, outputBus uint32, other Node, otherInputBus uint32) Result {
	if node == nil || other == nil || node == other {
		return InvalidArgs
	}
	b, o := nodeOf(node), nodeOf(other)
	if b.vtable == nil || o.vtable == nil {
		return InvalidOperation
	}
	if b.graph != o.graph {
		return InvalidArgs
	}
	if outputBus >= uint32(len(b.outputs)) || otherInputBus >= uint32(len(o.inputs)) {
		return InvalidArgs
	}

	b.graph.mu.Lock()
	defer b.graph.mu.Unlock()

	ob := &b.outputs[outputBus]
	detachLocked(ob)
	ob.target = o
	ob.targetBus = otherInputBus
	o.inputs[otherInputBus].sources = append(o.inputs[otherInputBus].sources, ob)
	return Success
}

// NodeDetachOutputBus disconnects one output bus
func NodeDetachOutputBus(node Node, outputBus uint32) Result {
	if node == nil {
		return InvalidArgs
	}
	b := nodeOf(node)
	if b.vtable == nil {
		return InvalidOperation
	}
	if outputBus >= uint32(len(b.outputs)) {
		return InvalidArgs
	}

	b.graph.mu.Lock()
	defer b.graph.mu.Unlock()
	detachLocked(&b.outputs[outputBus])
	return Success
}

// NodeDetachAllOutputBuses disconnects every output bus of node
func NodeDetachAllOutputBuses(node Node) Result {
	if node == nil {
		return InvalidArgs
	}
	b := nodeOf(node)
	if b.vtable == nil {
		return InvalidOperation
	}

	b.graph.mu.Lock()
	defer b.graph.mu.Unlock()
	for i := range b.outputs {
		detachLocked(&b.outputs[i])
	}
	return Success
}

// NodeVTableOf returns the callback table node was registered with, or nil
func NodeVTableOf(node Node) *NodeVTable {
	if node == nil {
		return nil
	}
	return nodeOf(node).vtable
}

// NodeGetNodeGraph returns the graph node belongs to
func NodeGetNodeGraph(node Node) *NodeGraph {
	if node == nil {
		return nil
	}
	return nodeOf(node).graph
}

// NodeGetInputBusCount returns the number of input buses
func NodeGetInputBusCount(node Node) uint32 {
	if node == nil {
		return 0
	}
	return uint32(len(nodeOf(node).inputs))
}

// NodeGetOutputBusCount returns the number of output buses
func NodeGetOutputBusCount(node Node) uint32 {
	if node == nil {
		return 0
	}
	return uint32(len(nodeOf(node).outputs))
}

// NodeGetInputChannels returns the channel count of an input bus, or 0 when out of range
func NodeGetInputChannels(node Node, inputBus uint32) uint32 {
	if node == nil || inputBus >= NodeGetInputBusCount(node) {
		return 0
	}
	return nodeOf(node).inputs[inputBus].channels
}

// NodeGetOutputChannels returns the channel count of an output bus, or 0 when out of range
func NodeGetOutputChannels(node Node, outputBus uint32) uint32 {
	if node == nil || outputBus >= NodeGetOutputBusCount(node) {
		return 0
	}
	return nodeOf(node).outputs[outputBus].channels
}

// NodeSetOutputBusVolume sets the gain applied where an output bus is mixed
func NodeSetOutputBusVolume(node Node, outputBus uint32, volume float32) Result {
	if node == nil || outputBus >= NodeGetOutputBusCount(node) {
		return InvalidArgs
	}
	nodeOf(node).outputs[outputBus].volume.Store(math.Float32bits(volume))
	return Success
}

// NodeGetOutputBusVolume returns the gain of an output bus, or 0 when out of range
func NodeGetOutputBusVolume(node Node, outputBus uint32) float32 {
	if node == nil || outputBus >= NodeGetOutputBusCount(node) {
		return 0
	}
	return nodeOf(node).outputs[outputBus].gain()
}

// NodeSetState starts or stops node. Stopped nodes produce nothing.
func NodeSetState(node Node, state NodeState) Result {
	if node == nil {
		return InvalidArgs
	}
	if state != NodeStateStarted && state != NodeStateStopped {
		return InvalidArgs
	}
	nodeOf(node).state.Store(int32(state))
	return Success
}

// NodeGetState returns the state of node
func NodeGetState(node Node) NodeState {
	if node == nil {
		return NodeStateStopped
	}
	return NodeState(nodeOf(node).state.Load())
}

func (ob *nodeOutputBus) gain() float32 {
	return math.Float32frombits(ob.volume.Load())
}
