// ABOUTME: Node graph: endpoint node, block scheduling and bus mixing
// ABOUTME: Reads pull the endpoint, which pulls every attached node once per block
package engine

import (
	"sync"
	"unsafe"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
)

// DefaultProcessingSize is the block size used when the config leaves it zero
const DefaultProcessingSize = 512

// NodeGraphConfig configures NodeGraphInit
type NodeGraphConfig struct {
	Channels               uint32
	ProcessingSizeInFrames uint32
}

// NewNodeGraphConfig returns a config with the default block size
func NewNodeGraphConfig(channels uint32) NodeGraphConfig {
	return NodeGraphConfig{
		Channels:               channels,
		ProcessingSizeInFrames: DefaultProcessingSize,
	}
}

// NodeGraph owns the endpoint node and drives block processing.
// Topology changes and reads are serialized by the graph.
type NodeGraph struct {
	endpoint NodeBase

	channels       uint32
	processingSize uint32
	epoch          uint64

	mu sync.Mutex
}

var endpointVTable = NodeVTable{
	InputBusCount:  1,
	OutputBusCount: 1,
	Flags:          NodeFlagPassthrough,
}

// NodeGraphInit prepares graph and its endpoint
func NodeGraphInit(config *NodeGraphConfig, graph *NodeGraph) Result {
	if config == nil || graph == nil {
		return InvalidArgs
	}
	if config.Channels < audio.MinChannels || config.Channels > audio.MaxChannels {
		return InvalidArgs
	}

	graph.channels = config.Channels
	graph.processingSize = config.ProcessingSizeInFrames
	if graph.processingSize == 0 {
		graph.processingSize = DefaultProcessingSize
	}
	graph.epoch = 0

	cfg := NewNodeConfig(&endpointVTable, 1, 1)
	return NodeInit(graph, &cfg, graph.Endpoint())
}

// NodeGraphUninit detaches the endpoint
func NodeGraphUninit(graph *NodeGraph) {
	if graph == nil {
		return
	}
	NodeUninit(graph.Endpoint())
}

// Endpoint returns the node whose output is the graph output
func (g *NodeGraph) Endpoint() Node {
	return g.endpoint.handle()
}

// Channels returns the channel count of the graph output
func (g *NodeGraph) Channels() uint32 {
	return g.channels
}

// ProcessingSize returns the block size in frames
func (g *NodeGraph) ProcessingSize() uint32 {
	return g.processingSize
}

// Read fills out with interleaved float32 frames from the endpoint. Frames the
// graph could not produce are silenced. Returns AtEnd when nothing was produced.
func (g *NodeGraph) Read(out []float32) (int, error) {
	ch := int(g.channels)
	if ch == 0 {
		return 0, InvalidOperation
	}
	frames := len(out) / ch
	if frames == 0 {
		return 0, InvalidArgs
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ep := &g.endpoint.outputs[0]
	total := 0
	for total < frames {
		n := uint32(min(frames-total, int(g.processingSize)))
		g.epoch++

		got := g.pull(ep, n)
		dst := out[total*ch : (total+int(got))*ch]
		copy(dst, ep.buf[:int(got)*ch])
		if vol := ep.gain(); vol != 1 {
			for i := range dst {
				dst[i] *= vol
			}
		}

		total += int(got)
		if got < n {
			break
		}
	}
	clear(out[total*ch : frames*ch])

	if total == 0 {
		return 0, AtEnd
	}
	return total, nil
}

// NodeGraphReadPCMFrames reads frameCount interleaved float32 frames into framesOut
func NodeGraphReadPCMFrames(graph *NodeGraph, framesOut unsafe.Pointer, frameCount uint64, framesRead *uint64) Result {
	if framesRead != nil {
		*framesRead = 0
	}
	if graph == nil || framesOut == nil || frameCount == 0 {
		return InvalidArgs
	}

	out := unsafe.Slice((*float32)(framesOut), frameCount*uint64(graph.channels))
	n, err := graph.Read(out)
	if framesRead != nil {
		*framesRead = uint64(n)
	}
	return ResultOf(err)
}

// pull returns the number of valid frames in ob.buf for the current block,
// processing the owning node on first use in the block
func (g *NodeGraph) pull(ob *nodeOutputBus, n uint32) uint32 {
	b := ob.owner
	if b.vtable == nil || NodeState(b.state.Load()) == NodeStateStopped {
		return 0
	}

	if b.epoch != g.epoch {
		if b.processing {
			// cycle
			return 0
		}
		b.processing = true
		g.process(b, n)
		b.processing = false
		b.epoch = g.epoch
	}
	return min(ob.frames, n)
}

func (g *NodeGraph) process(b *NodeBase, n uint32) {
	vt := b.vtable

	want := n
	if vt.Flags&NodeFlagDifferentProcessingRates != 0 && vt.OnGetRequiredInputFrameCount != nil && len(b.inputs) > 0 {
		var required uint32
		if vt.OnGetRequiredInputFrameCount(b.handle(), n, &required) == Success {
			want = required
		}
	}

	var available uint32
	for i := range b.inputs {
		in := &b.inputs[i]
		in.buf = growFloats(in.buf, int(want)*int(in.channels))
		clear(in.buf)

		for _, src := range in.sources {
			got := g.pull(src, want)
			if got == 0 {
				continue
			}
			mixFrames(in.buf, in.channels, src.buf, src.channels, got, src.gain())
			available = max(available, got)
		}
	}

	for i := range b.outputs {
		ob := &b.outputs[i]
		ob.buf = growFloats(ob.buf, int(n)*int(ob.channels))
		ob.frames = 0
	}

	nullInput := false
	if len(b.inputs) > 0 && available == 0 {
		if vt.Flags&NodeFlagContinuousProcessing == 0 {
			return
		}
		available = want
		nullInput = vt.Flags&NodeFlagAllowNullInput != 0
	}

	for i := range b.inputs {
		if nullInput {
			b.inPtrs[i] = nil
		} else {
			b.inPtrs[i] = floatsPtr(b.inputs[i].buf)
		}
	}
	for i := range b.outputs {
		b.outPtrs[i] = floatsPtr(b.outputs[i].buf)
	}

	frameCountIn := available
	frameCountOut := n

	if vt.OnProcess == nil {
		// passthrough
		in, out := &b.inputs[0], &b.outputs[0]
		frameCountOut = min(frameCountIn, n)
		copy(out.buf, in.buf[:int(frameCountOut)*int(in.channels)])
	} else {
		var inPtr, outPtr *unsafe.Pointer
		if len(b.inPtrs) > 0 {
			inPtr = &b.inPtrs[0]
		}
		if len(b.outPtrs) > 0 {
			outPtr = &b.outPtrs[0]
		}

		if vt.OnProcess(b.handle(), inPtr, &frameCountIn, outPtr, &frameCountOut) != Success {
			// a failed block is heard as silence
			for i := range b.outputs {
				clear(b.outputs[i].buf)
			}
			frameCountOut = n
		}
		frameCountOut = min(frameCountOut, n)
	}

	silent := vt.Flags&NodeFlagSilentOutput != 0
	for i := range b.outputs {
		ob := &b.outputs[i]
		if silent {
			clear(ob.buf[:int(frameCountOut)*int(ob.channels)])
		}
		ob.frames = frameCountOut
	}
}

// mixFrames accumulates frames of src into dst with gain, up or down mixing
// when the channel counts differ
func mixFrames(dst []float32, dstCh uint32, src []float32, srcCh uint32, frames uint32, gain float32) {
	dc, sc, n := int(dstCh), int(srcCh), int(frames)

	switch {
	case dc == sc:
		for i := 0; i < n*dc; i++ {
			dst[i] += src[i] * gain
		}
	case sc == 1:
		for f := 0; f < n; f++ {
			s := src[f] * gain
			for c := 0; c < dc; c++ {
				dst[f*dc+c] += s
			}
		}
	case dc == 1:
		scale := gain / float32(sc)
		for f := 0; f < n; f++ {
			var sum float32
			for c := 0; c < sc; c++ {
				sum += src[f*sc+c]
			}
			dst[f] += sum * scale
		}
	default:
		shared := min(dc, sc)
		for f := 0; f < n; f++ {
			for c := 0; c < shared; c++ {
				dst[f*dc+c] += src[f*sc+c] * gain
			}
		}
	}
}

func growFloats(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}

func floatsPtr(buf []float32) unsafe.Pointer {
	if len(buf) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(buf))
}
