// ABOUTME: Audio output package for playing rendered audio
// ABOUTME: Provides the Output interface with malgo, oto and WAV file backends
// Package output plays or stores what a node graph renders.
//
// Every backend pulls from a Renderer, normally an *engine.NodeGraph, on its
// own schedule: malgo and oto from the audio device callback, WAVFile as fast
// as it can write.
//
// Example:
//
//	out, err := output.New("malgo")
//	err = out.Open(&graph, output.Format{SampleRate: 48000, Channels: 2, BitDepth: 16})
//	<-out.Done()
//	out.Close()
package output
