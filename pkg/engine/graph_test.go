// ABOUTME: Tests for the node graph
// ABOUTME: Covers bus validation, attachment, mixing, node state and data source nodes
package engine

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
)

// scaleNode multiplies its single input by factor
type scaleNode struct {
	base   NodeBase
	factor float32
	fail   Result
	calls  int
}

func (n *scaleNode) handle() Node {
	return Node(unsafe.Pointer(n))
}

var scaleNodeVTable = NodeVTable{
	OnProcess: func(node Node, framesIn *unsafe.Pointer, frameCountIn *uint32, framesOut *unsafe.Pointer, frameCountOut *uint32) Result {
		n := (*scaleNode)(unsafe.Pointer(node))
		n.calls++
		if n.fail != Success {
			return n.fail
		}

		ch := NodeGetInputChannels(node, 0)
		frames := min(*frameCountIn, *frameCountOut)
		in := unsafe.Slice((*float32)(*framesIn), frames*ch)
		out := unsafe.Slice((*float32)(*framesOut), frames*ch)
		for i := range in {
			out[i] = in[i] * n.factor
		}
		*frameCountIn = frames
		*frameCountOut = frames
		return Success
	},
	InputBusCount:  1,
	OutputBusCount: 1,
}

func newGraph(t *testing.T, channels uint32) *NodeGraph {
	t.Helper()
	g := &NodeGraph{}
	cfg := NewNodeGraphConfig(channels)
	cfg.ProcessingSizeInFrames = 4
	require.Equal(t, Success, NodeGraphInit(&cfg, g))
	return g
}

func newSourceNode(t *testing.T, g *NodeGraph, frames int) (*rawSource, *DataSourceNode) {
	t.Helper()
	s := newRawSource(frames)
	n := &DataSourceNode{}
	require.Equal(t, Success, DataSourceNodeInit(g, s.handle(), n))
	return s, n
}

func TestNodeGraphInit(t *testing.T) {
	g := &NodeGraph{}
	cfg := NewNodeGraphConfig(0)
	assert.Equal(t, InvalidArgs, NodeGraphInit(&cfg, g))

	cfg = NodeGraphConfig{Channels: 2}
	require.Equal(t, Success, NodeGraphInit(&cfg, g))
	assert.Equal(t, uint32(DefaultProcessingSize), g.ProcessingSize())
	assert.Equal(t, uint32(2), g.Channels())
	assert.Equal(t, uint32(1), NodeGetInputBusCount(g.Endpoint()))
	assert.Equal(t, uint32(2), NodeGetOutputChannels(g.Endpoint(), 0))
}

func TestNodeInitBusCounts(t *testing.T) {
	g := newGraph(t, 2)

	dynamic := NodeVTable{
		OnProcess:      scaleNodeVTable.OnProcess,
		InputBusCount:  NodeBusCountUnknown,
		OutputBusCount: 1,
	}

	n := &scaleNode{}
	cfg := NewNodeConfig(&dynamic, 3, 0)
	require.Equal(t, Success, NodeInit(g, &cfg, n.handle()))
	assert.Equal(t, uint32(3), NodeGetInputBusCount(n.handle()))
	assert.Equal(t, uint32(1), NodeGetOutputBusCount(n.handle()))

	cfg = NewNodeConfig(&scaleNodeVTable, 2, 1)
	assert.Equal(t, InvalidArgs, NodeInit(g, &cfg, (&scaleNode{}).handle()), "fixed count mismatch")

	cfg = NewNodeConfig(&dynamic, MaxNodeBusCount+1, 0)
	assert.Equal(t, InvalidArgs, NodeInit(g, &cfg, (&scaleNode{}).handle()))

	wide := NodeVTable{InputBusCount: 2, OutputBusCount: 1, Flags: NodeFlagPassthrough}
	cfg = NewNodeConfig(&wide, 0, 0)
	assert.Equal(t, InvalidArgs, NodeInit(g, &cfg, (&scaleNode{}).handle()), "passthrough needs one bus each way")

	noProcess := NodeVTable{InputBusCount: 1, OutputBusCount: 1}
	cfg = NewNodeConfig(&noProcess, 0, 0)
	assert.Equal(t, InvalidArgs, NodeInit(g, &cfg, (&scaleNode{}).handle()))

	cfg = NewNodeConfig(&scaleNodeVTable, 0, 0)
	cfg.InputChannels = []uint32{audio.MaxChannels + 1}
	assert.Equal(t, InvalidArgs, NodeInit(g, &cfg, (&scaleNode{}).handle()))
}

func TestNodeAttachValidation(t *testing.T) {
	g := newGraph(t, 1)
	n := &scaleNode{factor: 1}
	cfg := NewNodeConfig(&scaleNodeVTable, 0, 0)
	require.Equal(t, Success, NodeInit(g, &cfg, n.handle()))

	assert.Equal(t, InvalidArgs, NodeAttachOutputBus(n.handle(), 0, n.handle(), 0))
	assert.Equal(t, InvalidArgs, NodeAttachOutputBus(n.handle(), 1, g.Endpoint(), 0))
	assert.Equal(t, InvalidArgs, NodeAttachOutputBus(n.handle(), 0, g.Endpoint(), 1))

	other := newGraph(t, 1)
	assert.Equal(t, InvalidArgs, NodeAttachOutputBus(n.handle(), 0, other.Endpoint(), 0))

	assert.Equal(t, Success, NodeAttachOutputBus(n.handle(), 0, g.Endpoint(), 0))
	assert.Equal(t, Success, NodeDetachOutputBus(n.handle(), 0))
	assert.Equal(t, InvalidArgs, NodeDetachOutputBus(n.handle(), 3))
}

func TestNodeGraphReadFromSource(t *testing.T) {
	g := newGraph(t, 1)
	_, src := newSourceNode(t, g, 6)
	require.Equal(t, Success, NodeAttachOutputBus(src.Node(), 0, g.Endpoint(), 0))

	out := make([]float32, 8)
	n, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5, 0, 0}, out)
	assert.True(t, src.AtEnd(), "the short final block marks the end")

	n, err = g.Read(out)
	assert.ErrorIs(t, err, AtEnd)
	assert.Equal(t, 0, n)
	assert.True(t, src.AtEnd())
}

func TestNodeGraphSourceEndOnBlockBoundary(t *testing.T) {
	g := newGraph(t, 1)
	_, src := newSourceNode(t, g, 8)
	require.Equal(t, Success, NodeAttachOutputBus(src.Node(), 0, g.Endpoint(), 0))

	out := make([]float32, 8)
	n, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.False(t, src.AtEnd(), "a full block cannot tell the end yet")

	_, err = g.Read(out)
	assert.ErrorIs(t, err, AtEnd)
	assert.True(t, src.AtEnd())
}

func TestNodeGraphUpmixAndVolume(t *testing.T) {
	g := newGraph(t, 2)
	_, src := newSourceNode(t, g, 4)
	require.Equal(t, Success, NodeAttachOutputBus(src.Node(), 0, g.Endpoint(), 0))
	require.Equal(t, Success, NodeSetOutputBusVolume(src.Node(), 0, 0.5))
	assert.Equal(t, float32(0.5), NodeGetOutputBusVolume(src.Node(), 0))

	out := make([]float32, 8)
	n, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []float32{0, 0, 0.5, 0.5, 1, 1, 1.5, 1.5}, out)
}

func TestNodeGraphMixesBusInputs(t *testing.T) {
	g := newGraph(t, 1)
	_, a := newSourceNode(t, g, 4)
	_, b := newSourceNode(t, g, 4)
	require.Equal(t, Success, NodeAttachOutputBus(a.Node(), 0, g.Endpoint(), 0))
	require.Equal(t, Success, NodeAttachOutputBus(b.Node(), 0, g.Endpoint(), 0))

	out := make([]float32, 4)
	_, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 2, 4, 6}, out)
}

func TestNodeGraphProcessChain(t *testing.T) {
	g := newGraph(t, 1)
	_, src := newSourceNode(t, g, 8)

	scale := &scaleNode{factor: 10}
	cfg := NewNodeConfig(&scaleNodeVTable, 0, 0)
	require.Equal(t, Success, NodeInit(g, &cfg, scale.handle()))
	require.Equal(t, Success, NodeAttachOutputBus(src.Node(), 0, scale.handle(), 0))
	require.Equal(t, Success, NodeAttachOutputBus(scale.handle(), 0, g.Endpoint(), 0))

	out := make([]float32, 8)
	n, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []float32{0, 10, 20, 30, 40, 50, 60, 70}, out)
	assert.Equal(t, 2, scale.calls, "one call per block")
}

func TestNodeGraphFailedProcessIsSilent(t *testing.T) {
	g := newGraph(t, 1)
	_, src := newSourceNode(t, g, 8)

	scale := &scaleNode{factor: 10, fail: InvalidData}
	cfg := NewNodeConfig(&scaleNodeVTable, 0, 0)
	require.Equal(t, Success, NodeInit(g, &cfg, scale.handle()))
	require.Equal(t, Success, NodeAttachOutputBus(src.Node(), 0, scale.handle(), 0))
	require.Equal(t, Success, NodeAttachOutputBus(scale.handle(), 0, g.Endpoint(), 0))

	out := []float32{9, 9, 9, 9}
	n, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
}

func TestNodeState(t *testing.T) {
	g := newGraph(t, 1)
	_, src := newSourceNode(t, g, 4)
	require.Equal(t, Success, NodeAttachOutputBus(src.Node(), 0, g.Endpoint(), 0))

	require.Equal(t, Success, NodeSetState(src.Node(), NodeStateStopped))
	assert.Equal(t, NodeStateStopped, NodeGetState(src.Node()))
	assert.Equal(t, InvalidArgs, NodeSetState(src.Node(), NodeState(7)))

	out := make([]float32, 4)
	_, err := g.Read(out)
	assert.ErrorIs(t, err, AtEnd)

	require.Equal(t, Success, NodeSetState(src.Node(), NodeStateStarted))
	n, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestNodeGraphCycleTerminates(t *testing.T) {
	g := newGraph(t, 1)
	dual := NodeVTable{OnProcess: scaleNodeVTable.OnProcess, InputBusCount: 1, OutputBusCount: 2}

	a, b := &scaleNode{factor: 1}, &scaleNode{factor: 1}
	cfg := NewNodeConfig(&dual, 0, 0)
	require.Equal(t, Success, NodeInit(g, &cfg, a.handle()))
	require.Equal(t, Success, NodeInit(g, &cfg, b.handle()))
	require.Equal(t, Success, NodeAttachOutputBus(a.handle(), 0, b.handle(), 0))
	require.Equal(t, Success, NodeAttachOutputBus(b.handle(), 0, a.handle(), 0))
	require.Equal(t, Success, NodeAttachOutputBus(a.handle(), 1, g.Endpoint(), 0))

	_, err := g.Read(make([]float32, 4))
	assert.ErrorIs(t, err, AtEnd)
}

func TestNodeUninitDetaches(t *testing.T) {
	g := newGraph(t, 1)
	_, src := newSourceNode(t, g, 4)
	require.Equal(t, Success, NodeAttachOutputBus(src.Node(), 0, g.Endpoint(), 0))

	DataSourceNodeUninit(src)
	assert.Empty(t, g.endpoint.inputs[0].sources)

	_, err := g.Read(make([]float32, 4))
	assert.ErrorIs(t, err, AtEnd)
}

func TestNodeGraphReadPCMFrames(t *testing.T) {
	g := newGraph(t, 1)
	_, src := newSourceNode(t, g, 2)
	require.Equal(t, Success, NodeAttachOutputBus(src.Node(), 0, g.Endpoint(), 0))

	out := make([]float32, 4)
	var read uint64
	require.Equal(t, Success, NodeGraphReadPCMFrames(g, unsafe.Pointer(&out[0]), 4, &read))
	assert.Equal(t, uint64(2), read)
	assert.Equal(t, InvalidArgs, NodeGraphReadPCMFrames(g, nil, 4, &read))
}
