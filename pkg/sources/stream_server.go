// ABOUTME: Websocket handler that streams rendered audio to Stream sources
// ABOUTME: Sends the stream format as JSON, then one encoded packet per message
package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/audio/encode"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// FrameReader produces interleaved float32 frames. *engine.NodeGraph is one.
type FrameReader interface {
	Read(out []float32) (int, error)
}

// StreamServerConfig describes what StreamServer sends
type StreamServerConfig struct {
	Format audio.StreamFormat
	// FramesPerPacket is ignored for Opus, which always sends 20ms packets
	FramesPerPacket int
	// Realtime paces packets at the stream's sample rate
	Realtime bool
}

// StreamServer serves one FrameReader to websocket clients, one client at a time
type StreamServer struct {
	config   StreamServerConfig
	reader   FrameReader
	upgrader websocket.Upgrader
	logger   *logrus.Entry

	mu sync.Mutex
}

// NewStreamServer validates the stream format against the available encoders
func NewStreamServer(reader FrameReader, cfg StreamServerConfig) (*StreamServer, error) {
	enc, err := encode.New(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if opus, ok := enc.(*encode.OpusEncoder); ok {
		cfg.FramesPerPacket = opus.FrameSize()
	}
	enc.Close()

	if cfg.FramesPerPacket <= 0 {
		cfg.FramesPerPacket = cfg.Format.SampleRate / 50
	}

	return &StreamServer{
		config: cfg,
		reader: reader,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logrus.WithField("component", "stream-server"),
	}, nil
}

func (s *StreamServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.logger.WithField("remote", r.RemoteAddr)
	log.Info("Stream client connected")

	if err := s.serve(conn); err != nil {
		log.WithError(err).Warn("Stream client dropped")
		return
	}
	log.Info("Stream finished")
}

func (s *StreamServer) serve(conn *websocket.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc, err := encode.New(s.config.Format)
	if err != nil {
		return err
	}
	defer enc.Close()

	header, err := json.Marshal(s.config.Format)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, header); err != nil {
		return err
	}

	// drain control frames so a client hangup is noticed
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var ticker *time.Ticker
	if s.config.Realtime {
		ticker = time.NewTicker(time.Duration(s.config.FramesPerPacket) * time.Second / time.Duration(s.config.Format.SampleRate))
		defer ticker.Stop()
	}

	ch := s.config.Format.Channels
	buf := make([]float32, s.config.FramesPerPacket*ch)
	for {
		n, err := s.reader.Read(buf)
		if errors.Is(err, engine.AtEnd) {
			break
		}
		if err != nil {
			return err
		}
		if _, ok := enc.(*encode.OpusEncoder); ok {
			// Opus needs whole packets
			clear(buf[n*ch:])
			n = s.config.FramesPerPacket
		}

		packet, err := enc.Encode(buf[:n*ch])
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, packet); err != nil {
			return err
		}

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-gone:
				return nil
			}
		} else {
			select {
			case <-gone:
				return nil
			default:
			}
		}
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of stream"),
		time.Now().Add(time.Second))
	select {
	case <-gone:
	case <-time.After(time.Second):
	}
	return nil
}
