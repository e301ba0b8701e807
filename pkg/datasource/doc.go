// ABOUTME: Typed data source adapter over the engine's callback table
// ABOUTME: Concrete sources implement Callbacks and embed Adapter as their first field
// Package datasource lets a Go type act as an engine data source.
//
// A concrete source embeds Adapter as its first field, implements Callbacks
// on its pointer type and calls Init:
//
//	type Tone struct {
//		datasource.Adapter[Tone, *Tone]
//		freq   float64
//		cursor uint64
//	}
//
//	t := &Tone{freq: 440}
//	if err := t.Init(t); err != nil { ... }
//
// The engine then pulls the source through a vtable built once per type. The
// vtable entries validate their arguments, recover the *Tone from the handle
// and call its methods; status codes returned as errors reach the engine
// unchanged. The Adapter also exposes the engine's seek, range, loop and
// format queries as ordinary methods, collected in the Controller interface.
package datasource
