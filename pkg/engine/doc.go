// ABOUTME: In-process audio engine exposing a callback-table ABI
// ABOUTME: Data sources and graph nodes register vtables and are driven through opaque handles
// Package engine is a pull-based audio engine with an untyped callback ABI.
//
// Data sources and graph nodes are identified by opaque handles (DataSource,
// Node) that point at a control block (DataSourceBase, NodeBase) embedded at
// the start of the implementing struct. Each registers a vtable of functions
// taking the handle plus raw buffer pointers and out-parameters, and reports
// a Result status code.
//
// The engine implements the behaviour around those callbacks:
//   - playable ranges, loop regions and looping for data sources
//   - relative and absolute seeking in frames and seconds
//   - a node graph pulled block by block from its endpoint, with per-bus
//     mixing, output volume and start/stop state
//   - DataSourceNode, which feeds any data source into a graph
//
// Typed Go code should not implement vtables by hand; see the datasource
// and node packages for adapters that generate them from methods.
package engine
