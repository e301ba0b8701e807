// ABOUTME: Concrete data sources built on the datasource adapter
// ABOUTME: In-memory buffers, waveform generators, file decoders and network streams
// Package sources provides ready-made data sources for the engine.
//
// Every source embeds datasource.Adapter as its first field, so each one is
// both a typed Go value and an engine.DataSource handle:
//
//	src, err := sources.Open("song.flac")
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//
//	var node engine.DataSourceNode
//	engine.DataSourceNodeInit(graph, src.DataSource(), &node)
//
// Supported: raw buffers (Memory), waveforms (Tone), WAV, MP3, FLAC,
// Ogg Vorbis, and live PCM or Opus over WebSocket (Stream).
package sources
