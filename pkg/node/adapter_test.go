// ABOUTME: Tests for the generic node adapter and its vtable trampolines
// ABOUTME: Covers handle identity, bus options, frame reporting and status fidelity
package node_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/mabridge/pkg/engine"
	"github.com/Resonate-Protocol/mabridge/pkg/node"
)

func newGraph(t *testing.T, channels, blockSize uint32) *engine.NodeGraph {
	t.Helper()
	g := &engine.NodeGraph{}
	cfg := engine.NewNodeGraphConfig(channels)
	cfg.ProcessingSizeInFrames = blockSize
	require.NoError(t, engine.NodeGraphInit(&cfg, g).Err())
	t.Cleanup(func() { engine.NodeGraphUninit(g) })
	return g
}

func TestHandleIdentity(t *testing.T) {
	g := newGraph(t, 1, 4)
	d := &doubler{}
	require.NoError(t, d.Init(g, d))

	assert.Equal(t, unsafe.Pointer(d), unsafe.Pointer(d.Node()))
	assert.Same(t, d, node.FromHandle[doubler, *doubler, node.OneInOneOut](d.Node()))
	assert.Same(t, g, d.Graph())

	// another type's handle is not a doubler
	r := &ramp{}
	require.NoError(t, r.Init(g, r))
	assert.Nil(t, node.FromHandle[doubler, *doubler, node.OneInOneOut](r.Node()))
	assert.Nil(t, node.FromHandle[doubler, *doubler, node.OneInOneOut](nil))
}

func TestVTableSharedPerType(t *testing.T) {
	g := newGraph(t, 1, 4)
	a, b := &doubler{}, &doubler{}
	require.NoError(t, a.Init(g, a))
	require.NoError(t, b.Init(g, b))

	vt := engine.NodeVTableOf(a.Node())
	require.NotNil(t, vt)
	assert.Same(t, vt, engine.NodeVTableOf(b.Node()))
	assert.Equal(t, uint8(1), vt.InputBusCount)
	assert.Equal(t, uint8(1), vt.OutputBusCount)

	dec := &decimator{}
	require.NoError(t, dec.Init(g, dec))
	assert.Equal(t, engine.NodeFlagDifferentProcessingRates, engine.NodeVTableOf(dec.Node()).Flags)
}

func TestInitPanicsWhenAdapterNotFirst(t *testing.T) {
	g := newGraph(t, 1, 4)
	m := &misplaced{}
	assert.Panics(t, func() { _ = m.Init(g, m) })
}

func TestInitRequiresOpenBusCounts(t *testing.T) {
	g := newGraph(t, 2, 4)

	s := &summer{}
	assert.Panics(t, func() { _ = s.Init(g, s) })

	f := &fanout{}
	assert.Panics(t, func() { _ = f.Init(g, f) })

	s = &summer{}
	require.NoError(t, s.Init(g, s, node.WithInputBusCount(3)))
	assert.Equal(t, uint32(3), s.InputBusCount())
	assert.Equal(t, uint32(1), s.OutputBusCount())
	assert.Equal(t, uint32(2), s.InputChannels(2))
}

func TestInitOptions(t *testing.T) {
	g := newGraph(t, 1, 4)

	d := &doubler{}
	require.NoError(t, d.Init(g, d,
		node.WithInputChannels(2),
		node.WithOutputChannels(2),
		node.WithInitialState(engine.NodeStateStopped),
	))
	assert.Equal(t, uint32(2), d.InputChannels(0))
	assert.Equal(t, uint32(2), d.OutputChannels(0))
	assert.Equal(t, engine.NodeStateStopped, d.GetState())

	require.NoError(t, d.SetState(engine.NodeStateStarted))
	assert.Equal(t, engine.NodeStateStarted, d.GetState())
}

func TestInitRejectsBadChannels(t *testing.T) {
	g := newGraph(t, 1, 4)
	d := &doubler{}
	err := d.Init(g, d, node.WithInputChannels(300))
	assert.ErrorIs(t, err, engine.InvalidArgs)
}

func TestProcessChain(t *testing.T) {
	g := newGraph(t, 1, 4)
	r, d := &ramp{}, &doubler{}
	require.NoError(t, r.Init(g, r))
	require.NoError(t, d.Init(g, d))
	require.NoError(t, r.AttachOutputBus(0, d.Node(), 0))
	require.NoError(t, d.AttachOutputBus(0, g.Endpoint(), 0))

	out := make([]float32, 8)
	n, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []float32{0, 2, 4, 6, 8, 10, 12, 14}, out)

	assert.Equal(t, 2, d.calls)
	assert.Equal(t, node.Frames{In: 4, Out: 4}, d.lastFrames)
	assert.Equal(t, 1, d.lastInCh)
	assert.Equal(t, 1, d.lastOutCh)
}

func TestProcessPartialBlock(t *testing.T) {
	g := newGraph(t, 1, 4)
	r, d := &ramp{limit: 6}, &doubler{}
	require.NoError(t, r.Init(g, r))
	require.NoError(t, d.Init(g, d))
	require.NoError(t, r.AttachOutputBus(0, d.Node(), 0))
	require.NoError(t, d.AttachOutputBus(0, g.Endpoint(), 0))

	out := make([]float32, 8)
	n, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []float32{0, 2, 4, 6, 8, 10, 0, 0}, out)
	assert.Equal(t, node.Frames{In: 2, Out: 4}, d.lastFrames)

	_, err = g.Read(out)
	assert.ErrorIs(t, err, engine.AtEnd)
}

func TestManyInputs(t *testing.T) {
	g := newGraph(t, 1, 4)
	a, b, s := &ramp{}, &ramp{next: 10}, &summer{}
	require.NoError(t, a.Init(g, a))
	require.NoError(t, b.Init(g, b))
	require.NoError(t, s.Init(g, s, node.WithInputBusCount(2)))
	require.NoError(t, a.AttachOutputBus(0, s.Node(), 0))
	require.NoError(t, b.AttachOutputBus(0, s.Node(), 1))
	require.NoError(t, s.AttachOutputBus(0, g.Endpoint(), 0))

	out := make([]float32, 4)
	_, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 12, 14, 16}, out)
}

func TestManyOutputs(t *testing.T) {
	g := newGraph(t, 1, 4)
	r, f := &ramp{}, &fanout{}
	require.NoError(t, r.Init(g, r))
	require.NoError(t, f.Init(g, f, node.WithOutputBusCount(2)))
	require.NoError(t, r.AttachOutputBus(0, f.Node(), 0))
	require.NoError(t, f.AttachOutputBus(0, g.Endpoint(), 0))
	require.NoError(t, f.AttachOutputBus(1, g.Endpoint(), 0))
	require.NoError(t, f.SetOutputBusVolume(1, 0.5))
	assert.InDelta(t, 0.5, f.GetOutputBusVolume(1), 1e-6)

	out := make([]float32, 4)
	_, err := g.Read(out)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0, 1.5, 3, 4.5}, out, 1e-6)

	require.NoError(t, f.DetachOutputBus(1))
	_, err = g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 6, 7}, out)

	require.NoError(t, f.DetachAllOutputBuses())
	_, err = g.Read(out)
	assert.ErrorIs(t, err, engine.AtEnd)
}

func TestAttachValidation(t *testing.T) {
	g := newGraph(t, 1, 4)
	d := &doubler{}
	require.NoError(t, d.Init(g, d))

	assert.ErrorIs(t, d.AttachOutputBus(5, g.Endpoint(), 0), engine.InvalidArgs)
	assert.ErrorIs(t, d.AttachOutputBus(0, g.Endpoint(), 5), engine.InvalidArgs)
	assert.ErrorIs(t, d.AttachOutputBus(0, d.Node(), 0), engine.InvalidArgs)
	assert.ErrorIs(t, d.SetOutputBusVolume(3, 1), engine.InvalidArgs)
}

func TestRequiredInputFrames(t *testing.T) {
	g := newGraph(t, 1, 4)
	r, dec := &ramp{}, &decimator{}
	require.NoError(t, r.Init(g, r))
	require.NoError(t, dec.Init(g, dec))
	require.NoError(t, r.AttachOutputBus(0, dec.Node(), 0))
	require.NoError(t, dec.AttachOutputBus(0, g.Endpoint(), 0))

	out := make([]float32, 4)
	_, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 2, 4, 6}, out)

	_, err = g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []float32{8, 10, 12, 14}, out)

	vt := engine.NodeVTableOf(dec.Node())
	var required uint32
	assert.Equal(t, engine.Success, vt.OnGetRequiredInputFrameCount(dec.Node(), 5, &required))
	assert.Equal(t, uint32(10), required)
}

func TestOneToOneRequiredInput(t *testing.T) {
	g := newGraph(t, 1, 4)
	d := &doubler{}
	require.NoError(t, d.Init(g, d))

	var required uint32
	vt := engine.NodeVTableOf(d.Node())
	assert.Equal(t, engine.Success, vt.OnGetRequiredInputFrameCount(d.Node(), 7, &required))
	assert.Equal(t, uint32(7), required)
}

// process calls the node's vtable directly with mono buffers of frames length
func process(n engine.Node, in, out []float32, frameCountIn, frameCountOut *uint32) engine.Result {
	inPtrs := []unsafe.Pointer{unsafe.Pointer(&in[0])}
	outPtrs := []unsafe.Pointer{unsafe.Pointer(&out[0])}
	return engine.NodeVTableOf(n).OnProcess(n, &inPtrs[0], frameCountIn, &outPtrs[0], frameCountOut)
}

func TestReportedFramesAreClamped(t *testing.T) {
	g := newGraph(t, 1, 4)
	gr := &greedy{}
	require.NoError(t, gr.Init(g, gr))

	in, out := make([]float32, 4), make([]float32, 4)
	frameCountIn, frameCountOut := uint32(3), uint32(4)
	require.Equal(t, engine.Success, process(gr.Node(), in, out, &frameCountIn, &frameCountOut))
	assert.Equal(t, uint32(3), frameCountIn)
	assert.Equal(t, uint32(4), frameCountOut)
}

func TestDirectProcessReportsConsumption(t *testing.T) {
	g := newGraph(t, 1, 4)
	d := &doubler{}
	require.NoError(t, d.Init(g, d))

	in := []float32{1, 2, 3, 4}
	out := make([]float32, 4)
	frameCountIn, frameCountOut := uint32(4), uint32(2)
	require.Equal(t, engine.Success, process(d.Node(), in, out, &frameCountIn, &frameCountOut))
	assert.Equal(t, uint32(2), frameCountIn)
	assert.Equal(t, uint32(2), frameCountOut)
	assert.Equal(t, []float32{2, 4, 0, 0}, out)
}

func TestStatusFidelity(t *testing.T) {
	g := newGraph(t, 1, 4)

	tests := []struct {
		name string
		err  error
		want engine.Result
	}{
		{"io error", engine.IOError, engine.IOError},
		{"invalid data", engine.InvalidData, engine.InvalidData},
		{"at end", engine.AtEnd, engine.AtEnd},
		{"foreign error", assert.AnError, engine.Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &failing{err: tt.err}
			require.NoError(t, f.Init(g, f))
			defer f.Uninit()

			in, out := make([]float32, 4), make([]float32, 4)
			frameCountIn, frameCountOut := uint32(4), uint32(4)
			assert.Equal(t, tt.want, process(f.Node(), in, out, &frameCountIn, &frameCountOut))

			var required uint32
			assert.Equal(t, tt.want, engine.NodeVTableOf(f.Node()).OnGetRequiredInputFrameCount(f.Node(), 4, &required))
		})
	}
}

func TestFailedProcessIsSilent(t *testing.T) {
	g := newGraph(t, 1, 4)
	r, f := &ramp{next: 1}, &failing{err: engine.IOError}
	require.NoError(t, r.Init(g, r))
	require.NoError(t, f.Init(g, f))
	require.NoError(t, r.AttachOutputBus(0, f.Node(), 0))
	require.NoError(t, f.AttachOutputBus(0, g.Endpoint(), 0))

	out := []float32{9, 9, 9, 9}
	n, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
	assert.Equal(t, 1, f.calls)
}

func TestNullArguments(t *testing.T) {
	g := newGraph(t, 1, 4)
	f := &failing{err: engine.IOError}
	require.NoError(t, f.Init(g, f))
	vt := engine.NodeVTableOf(f.Node())

	in, out := make([]float32, 4), make([]float32, 4)
	inPtrs := []unsafe.Pointer{unsafe.Pointer(&in[0])}
	outPtrs := []unsafe.Pointer{unsafe.Pointer(&out[0])}
	frameCountIn, frameCountOut := uint32(4), uint32(4)

	assert.Equal(t, engine.InvalidArgs, vt.OnProcess(nil, &inPtrs[0], &frameCountIn, &outPtrs[0], &frameCountOut))
	assert.Equal(t, engine.InvalidArgs, vt.OnProcess(f.Node(), &inPtrs[0], nil, &outPtrs[0], &frameCountOut))
	assert.Equal(t, engine.InvalidArgs, vt.OnProcess(f.Node(), &inPtrs[0], &frameCountIn, &outPtrs[0], nil))
	assert.Equal(t, engine.InvalidArgs, vt.OnProcess(f.Node(), nil, &frameCountIn, &outPtrs[0], &frameCountOut))
	assert.Equal(t, engine.InvalidArgs, vt.OnProcess(f.Node(), &inPtrs[0], &frameCountIn, nil, &frameCountOut))

	var required uint32
	assert.Equal(t, engine.InvalidArgs, vt.OnGetRequiredInputFrameCount(nil, 4, &required))
	assert.Equal(t, engine.InvalidArgs, vt.OnGetRequiredInputFrameCount(f.Node(), 4, nil))

	assert.Zero(t, f.calls)
}

func TestGeneratorAcceptsNilInputs(t *testing.T) {
	g := newGraph(t, 1, 4)
	r := &ramp{}
	require.NoError(t, r.Init(g, r))

	out := make([]float32, 4)
	outPtrs := []unsafe.Pointer{unsafe.Pointer(&out[0])}
	frameCountIn, frameCountOut := uint32(0), uint32(4)
	vt := engine.NodeVTableOf(r.Node())
	require.Equal(t, engine.Success, vt.OnProcess(r.Node(), nil, &frameCountIn, &outPtrs[0], &frameCountOut))
	assert.Equal(t, uint32(4), frameCountOut)
	assert.Equal(t, []float32{0, 1, 2, 3}, out)
}

func TestUninitDetaches(t *testing.T) {
	g := newGraph(t, 1, 4)
	r := &ramp{}
	require.NoError(t, r.Init(g, r))
	require.NoError(t, r.AttachOutputBus(0, g.Endpoint(), 0))

	out := make([]float32, 4)
	_, err := g.Read(out)
	require.NoError(t, err)

	r.Uninit()
	_, err = g.Read(out)
	assert.ErrorIs(t, err, engine.AtEnd)
	assert.Nil(t, node.FromHandle[ramp, *ramp, node.NoInputOneOut](r.Node()))
}

func TestContinuousProcessingWithoutInput(t *testing.T) {
	g := newGraph(t, 1, 4)
	s := &sustain{}
	require.NoError(t, s.Init(g, s))
	require.NoError(t, s.AttachOutputBus(0, g.Endpoint(), 0))

	out := make([]float32, 4)
	n, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, out)

	assert.Equal(t, 1, s.calls)
	assert.Equal(t, node.Frames{In: 4, Out: 4}, s.frames)
	assert.Equal(t, 4, s.inFrames, "the input view is a silent block")
}

func TestNullInputReportsNoFrames(t *testing.T) {
	g := newGraph(t, 1, 4)
	f := &freewheel{}
	require.NoError(t, f.Init(g, f))
	require.NoError(t, f.AttachOutputBus(0, g.Endpoint(), 0))

	out := make([]float32, 4)
	n, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, out)

	assert.Equal(t, 1, f.calls)
	assert.Equal(t, node.Frames{In: 0, Out: 4}, f.frames)
	assert.Zero(t, f.inFrames)

	// fed input is passed through as usual
	r := &ramp{}
	require.NoError(t, r.Init(g, r))
	require.NoError(t, r.AttachOutputBus(0, f.Node(), 0))
	_, err = g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, node.Frames{In: 4, Out: 4}, f.frames)
	assert.Equal(t, 4, f.inFrames)
}

func TestNullInputPointersAreEmptyViews(t *testing.T) {
	g := newGraph(t, 1, 4)
	f := &freewheel{}
	require.NoError(t, f.Init(g, f))

	out := make([]float32, 4)
	inPtrs := []unsafe.Pointer{nil}
	outPtrs := []unsafe.Pointer{unsafe.Pointer(&out[0])}
	frameCountIn, frameCountOut := uint32(4), uint32(4)
	vt := engine.NodeVTableOf(f.Node())
	require.Equal(t, engine.Success, vt.OnProcess(f.Node(), &inPtrs[0], &frameCountIn, &outPtrs[0], &frameCountOut))

	assert.Zero(t, frameCountIn)
	assert.Equal(t, uint32(4), frameCountOut)
	assert.Zero(t, f.inFrames)
}

func TestSilentOutputStillProcesses(t *testing.T) {
	g := newGraph(t, 1, 4)
	r, a := &ramp{}, &analyser{}
	require.NoError(t, r.Init(g, r))
	require.NoError(t, a.Init(g, a))
	require.NoError(t, r.AttachOutputBus(0, a.Node(), 0))
	require.NoError(t, a.AttachOutputBus(0, g.Endpoint(), 0))

	out := []float32{9, 9, 9, 9}
	n, err := g.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []float32{0, 0, 0, 0}, out)

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, node.Frames{In: 4, Out: 4}, a.frames)
	assert.Equal(t, float32(4), r.next, "the input was pulled")
}
