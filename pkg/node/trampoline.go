// ABOUTME: Untyped vtable entry points generated per concrete node type
// ABOUTME: The only code in this package that turns engine handles back into typed values
package node

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// vtables holds one *engine.NodeVTable per adapter instantiation, never freed
var vtables sync.Map

func vtableFor[T any, P interface {
	*T
	Processor
}, S Shape]() *engine.NodeVTable {
	key := reflect.TypeOf((*Adapter[T, P, S])(nil)).Elem()
	if vt, ok := vtables.Load(key); ok {
		return vt.(*engine.NodeVTable)
	}

	var shape S
	vt, _ := vtables.LoadOrStore(key, &engine.NodeVTable{
		OnProcess:                    onProcess[T, P, S],
		OnGetRequiredInputFrameCount: onGetRequiredInputFrameCount[T, P, S],
		InputBusCount:                shape.InputBuses(),
		OutputBusCount:               shape.OutputBuses(),
		Flags:                        shape.Flags(),
	})
	return vt.(*engine.NodeVTable)
}

// FromHandle recovers the concrete node behind n. It returns nil when n is
// nil or was not registered by an Adapter for T and S.
func FromHandle[T any, P interface {
	*T
	Processor
}, S Shape](n engine.Node) P {
	if n == nil || engine.NodeVTableOf(n) != vtableFor[T, P, S]() {
		return nil
	}
	return selfOf[T, P, S](n)
}

// The Adapter, and with it the NodeBase, sits at offset zero of T. Init enforces that.
func adapterOf[T any, P interface {
	*T
	Processor
}, S Shape](n engine.Node) *Adapter[T, P, S] {
	return (*Adapter[T, P, S])(unsafe.Pointer(n))
}

func selfOf[T any, P interface {
	*T
	Processor
}, S Shape](n engine.Node) P {
	return P((*T)(unsafe.Pointer(n)))
}

func onProcess[T any, P interface {
	*T
	Processor
}, S Shape](n engine.Node, framesIn *unsafe.Pointer, frameCountIn *uint32, framesOut *unsafe.Pointer, frameCountOut *uint32) engine.Result {
	if n == nil || frameCountIn == nil || frameCountOut == nil {
		return engine.InvalidArgs
	}
	a := adapterOf[T, P, S](n)
	if (len(a.inViews) > 0 && framesIn == nil) || (len(a.outViews) > 0 && framesOut == nil) {
		return engine.InvalidArgs
	}

	available, capacity := *frameCountIn, *frameCountOut
	if len(a.inViews) > 0 {
		ptrs := unsafe.Slice(framesIn, len(a.inViews))
		for _, p := range ptrs {
			if p == nil {
				// null input: every view is empty and nothing is consumed
				available = 0
				break
			}
		}
		for i := range a.inViews {
			a.inViews[i] = audio.ViewAt(audio.FormatF32, ptrs[i], int(available), a.inChannels[i])
		}
	}
	if len(a.outViews) > 0 {
		ptrs := unsafe.Slice(framesOut, len(a.outViews))
		for i := range a.outViews {
			a.outViews[i] = audio.ViewAt(audio.FormatF32, ptrs[i], int(capacity), a.outChannels[i])
		}
	}

	frames := Frames{In: available, Out: capacity}
	if err := selfOf[T, P, S](n).OnProcess(a.inViews, a.outViews, &frames); err != nil {
		return engine.ResultOf(err)
	}

	*frameCountIn = min(frames.In, available)
	*frameCountOut = min(frames.Out, capacity)
	return engine.Success
}

func onGetRequiredInputFrameCount[T any, P interface {
	*T
	Processor
}, S Shape](n engine.Node, outputFrameCount uint32, inputFrameCount *uint32) engine.Result {
	if n == nil || inputFrameCount == nil {
		return engine.InvalidArgs
	}
	required, err := selfOf[T, P, S](n).OnGetRequiredInputFrames(outputFrameCount)
	if err != nil {
		return engine.ResultOf(err)
	}
	*inputFrameCount = required
	return engine.Success
}
