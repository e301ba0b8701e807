// ABOUTME: Built-in node that reads a data source into the graph
// ABOUTME: Converts non-float source formats to the graph's float32 buses
package engine

import (
	"sync/atomic"
	"unsafe"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
)

// DataSourceNode has no inputs and one output carrying the source's frames.
// The output bus has the source's channel count.
type DataSourceNode struct {
	base NodeBase

	ds       DataSource
	format   audio.SampleFormat
	channels uint32
	scratch  []byte
	atEnd    atomic.Bool
}

var dataSourceNodeVTable = NodeVTable{
	OnProcess:      dataSourceNodeProcess,
	InputBusCount:  0,
	OutputBusCount: 1,
}

// DataSourceNodeInit attaches ds to graph through n
func DataSourceNodeInit(graph *NodeGraph, ds DataSource, n *DataSourceNode) Result {
	if graph == nil || ds == nil || n == nil {
		return InvalidArgs
	}

	var format audio.SampleFormat
	var channels uint32
	if r := DataSourceGetDataFormat(ds, &format, &channels, nil, nil, 0); r != Success {
		return r
	}
	if channels < audio.MinChannels || channels > audio.MaxChannels || format.BytesPerSample() == 0 {
		return InvalidData
	}

	n.ds = ds
	n.format = format
	n.channels = channels
	n.scratch = nil
	n.atEnd.Store(false)
	if format != audio.FormatF32 {
		n.scratch = make([]byte, int(graph.processingSize)*format.BytesPerFrame(int(channels)))
	}

	cfg := NewNodeConfig(&dataSourceNodeVTable, 0, 1)
	cfg.OutputChannels = []uint32{channels}
	return NodeInit(graph, &cfg, n.Node())
}

// DataSourceNodeUninit detaches n from its graph
func DataSourceNodeUninit(n *DataSourceNode) {
	if n == nil {
		return
	}
	NodeUninit(n.Node())
}

// Node returns the graph handle of n
func (n *DataSourceNode) Node() Node {
	return n.base.handle()
}

// DataSource returns the source n reads from
func (n *DataSourceNode) DataSource() DataSource {
	return n.ds
}

// AtEnd reports whether the last block hit the end of the source
func (n *DataSourceNode) AtEnd() bool {
	return n.atEnd.Load()
}

// SetLooping forwards to the source's looping flag
func (n *DataSourceNode) SetLooping(looping bool) Result {
	return DataSourceSetLooping(n.ds, looping)
}

func dataSourceNodeProcess(node Node, _ *unsafe.Pointer, _ *uint32, framesOut *unsafe.Pointer, frameCountOut *uint32) Result {
	n := (*DataSourceNode)(unsafe.Pointer(node))
	capacity := *frameCountOut
	*frameCountOut = 0
	out := *framesOut

	var read uint64
	var r Result
	if n.format == audio.FormatF32 {
		r = DataSourceReadPCMFrames(n.ds, out, uint64(capacity), &read)
	} else {
		need := int(capacity) * n.format.BytesPerFrame(int(n.channels))
		if len(n.scratch) < need {
			n.scratch = make([]byte, need)
		}
		scratch := unsafe.Pointer(unsafe.SliceData(n.scratch))
		r = DataSourceReadPCMFrames(n.ds, scratch, uint64(capacity), &read)
		if read > 0 {
			src := audio.ViewAt(n.format, scratch, int(read), int(n.channels))
			dst := audio.ViewAt(audio.FormatF32, out, int(read), int(n.channels))
			dst.CopyFrom(src)
		}
	}

	*frameCountOut = uint32(read)
	switch {
	case r == AtEnd:
		n.atEnd.Store(true)
		return Success
	case r == Success:
		// a short block is the last one
		n.atEnd.Store(read < uint64(capacity))
		return Success
	default:
		return r
	}
}
