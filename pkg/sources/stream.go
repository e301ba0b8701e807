// ABOUTME: Live data source fed by a websocket audio stream
// ABOUTME: Receives a JSON stream format, then decodes binary PCM or Opus packets into a ring
package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/audio/decode"
	"github.com/Resonate-Protocol/mabridge/pkg/datasource"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// StreamConfig tunes DialStream
type StreamConfig struct {
	// BufferFrames is the ring capacity in frames
	BufferFrames int
	// HandshakeTimeout bounds the websocket handshake and the wait for the format message
	HandshakeTimeout time.Duration
}

// DefaultStreamConfig buffers half a second at 48kHz
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		BufferFrames:     24000,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Stream plays audio received from a websocket. While connected, an empty
// ring produces silence; once the peer goes away and the ring drains the
// source reports its end.
type Stream struct {
	datasource.Adapter[Stream, *Stream]
	info

	conn       *websocket.Conn
	decoder    decode.Decoder
	format     audio.StreamFormat
	channelMap []audio.Channel
	ring       *ring
	cursor     atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
	err       error
}

// DialStream connects to url and waits for the stream format
func DialStream(url string, cfg StreamConfig) (*Stream, error) {
	if cfg.BufferFrames <= 0 {
		cfg.BufferFrames = DefaultStreamConfig().BufferFrames
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream: %w", err)
	}

	s, err := newStream(conn, url, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func newStream(conn *websocket.Conn, name string, cfg StreamConfig) (*Stream, error) {
	if cfg.HandshakeTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(cfg.HandshakeTimeout))
	}
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream format: %w", err)
	}
	if messageType != websocket.TextMessage {
		return nil, fmt.Errorf("%w: expected stream format, got binary message", ErrInvalidFormat)
	}
	conn.SetReadDeadline(time.Time{})

	var format audio.StreamFormat
	if err := json.Unmarshal(data, &format); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, format.SampleRate)
	}
	decoder, err := decode.New(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	s := &Stream{
		info:       newInfo("stream", name),
		conn:       conn,
		decoder:    decoder,
		format:     format,
		channelMap: audio.DefaultChannelMap(format.Channels),
		ring:       newRing(cfg.BufferFrames * format.Channels),
		done:       make(chan struct{}),
	}
	if err := s.Init(s); err != nil {
		decoder.Close()
		return nil, fmt.Errorf("failed to init stream source: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"codec":     format.Codec,
		"rate":      format.SampleRate,
		"channels":  format.Channels,
		"bit_depth": format.BitDepth,
	}).Info("Stream connected")

	go s.receive()
	return s, nil
}

func (s *Stream) receive() {
	defer close(s.done)
	defer s.ring.Close()

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				s.err = err
				s.logger.WithError(err).Debug("Stream receive ended")
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		samples, err := s.decoder.Decode(data)
		if err != nil {
			s.logger.WithError(err).Warn("Dropping undecodable packet")
			continue
		}
		if s.ring.Write(samples) < len(samples) {
			return
		}
	}
}

// Err returns the receive error that ended the stream, if any. Valid once
// the source has reported its end.
func (s *Stream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Buffered returns the number of frames waiting in the ring
func (s *Stream) Buffered() int {
	return s.ring.Available() / s.format.Channels
}

func (s *Stream) OnRead(out audio.View) (uint64, error) {
	ch := s.format.Channels
	dst := out.Float32()[:out.Frames()*ch]

	closed := s.ring.Drained()
	n := s.ring.Read(dst[:min(s.ring.Available()/ch*ch, len(dst))])
	frames := n / ch
	if frames < out.Frames() && !closed && !s.ring.Drained() {
		// underrun while connected
		clear(dst[n:])
		frames = out.Frames()
	}
	s.cursor.Add(uint64(frames))
	return uint64(frames), nil
}

func (s *Stream) OnSkip(frameCount uint64) (uint64, error) {
	ch := s.format.Channels
	want := min(frameCount, uint64(s.ring.Available()/ch))
	n := uint64(s.ring.Discard(int(want)*ch) / ch)
	s.cursor.Add(n)
	return n, nil
}

func (s *Stream) OnSeek(uint64) error {
	return engine.NotImplemented
}

func (s *Stream) OnGetDataFormat(int) (audio.Format, error) {
	return audio.Format{
		SampleFormat: audio.FormatF32,
		Channels:     uint32(s.format.Channels),
		SampleRate:   uint32(s.format.SampleRate),
		ChannelMap:   s.channelMap,
	}, nil
}

func (s *Stream) OnGetCursor() (uint64, error) {
	return s.cursor.Load(), nil
}

func (s *Stream) OnGetLength() (uint64, error) {
	return 0, engine.NotImplemented
}

func (s *Stream) OnSetLooping(bool) error {
	return nil
}

// Close unregisters the source, hangs up and waits for the receiver to exit
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.Uninit()
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.ring.Close()
		err = s.conn.Close()
		<-s.done
		s.decoder.Close()
		s.logger.Info("Stream closed")
	})
	return err
}
