// Package nodes provides ready-made graph nodes built on the node adapter.
//
// Every constructor registers the node with a graph and takes a channel
// count; zero means the graph's channel count. Control methods are safe to
// call while the graph is reading.
//
//	var graph engine.NodeGraph
//	cfg := engine.NewNodeGraphConfig(2)
//	engine.NodeGraphInit(&cfg, &graph)
//
//	gain, _ := nodes.NewGain(&graph, 0)
//	gain.AttachOutputBus(0, graph.Endpoint(), 0)
//	gain.SetVolume(80)
package nodes
