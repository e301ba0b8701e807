// ABOUTME: Seekable Ogg Vorbis data source
// ABOUTME: Decodes float32 frames on demand with jfreymuth/oggvorbis
package sources

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/jfreymuth/oggvorbis"
	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/datasource"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// Vorbis decodes an Ogg Vorbis stream. Seeking and length require the
// underlying reader to be an io.Seeker.
type Vorbis struct {
	datasource.Adapter[Vorbis, *Vorbis]
	info

	mu         sync.Mutex
	closer     io.Closer
	reader     *oggvorbis.Reader
	channels   int
	sampleRate uint32
	channelMap []audio.Channel
	eof        bool
	scratch    []float32
}

// OpenVorbis opens an Ogg Vorbis file
func OpenVorbis(path string) (*Vorbis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Vorbis file: %w", err)
	}

	s, err := NewVorbis(f, baseName(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// NewVorbis decodes r
func NewVorbis(r io.Reader, name string) (*Vorbis, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Vorbis: %w", err)
	}
	if reader.Channels() < audio.MinChannels || reader.Channels() > audio.MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidFormat, reader.Channels())
	}

	s := &Vorbis{
		info:       newInfo("vorbis", name),
		reader:     reader,
		channels:   reader.Channels(),
		sampleRate: uint32(reader.SampleRate()),
		channelMap: audio.DefaultChannelMap(reader.Channels()),
	}
	if err := s.Init(s); err != nil {
		return nil, fmt.Errorf("failed to init Vorbis source: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"rate":     reader.SampleRate(),
		"channels": reader.Channels(),
		"frames":   reader.Length(),
	}).Info("Loaded Vorbis")
	return s, nil
}

func (s *Vorbis) OnRead(out audio.View) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := out.Float32()[:out.Frames()*s.channels]
	total := 0
	for total < len(buf) && !s.eof {
		n, err := s.reader.Read(buf[total:])
		total += n
		if errors.Is(err, io.EOF) {
			s.eof = true
			break
		}
		if err != nil {
			return uint64(total / s.channels), fmt.Errorf("%w: vorbis decode: %v", engine.InvalidData, err)
		}
		if n == 0 {
			break
		}
	}
	return uint64(total / s.channels), nil
}

func (s *Vorbis) OnSkip(frameCount uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if length := s.reader.Length(); length > 0 {
		pos := s.reader.Position()
		n := min(frameCount, uint64(length-pos))
		if err := s.reader.SetPosition(pos + int64(n)); err != nil {
			return 0, fmt.Errorf("%w: %v", engine.IOError, err)
		}
		s.eof = false
		return n, nil
	}

	if len(s.scratch) == 0 {
		s.scratch = make([]float32, 1024*s.channels)
	}
	var done uint64
	for done < frameCount && !s.eof {
		want := min(frameCount-done, uint64(len(s.scratch)/s.channels))
		n, err := s.reader.Read(s.scratch[:want*uint64(s.channels)])
		done += uint64(n / s.channels)
		if errors.Is(err, io.EOF) {
			s.eof = true
		} else if err != nil {
			return done, fmt.Errorf("%w: vorbis decode: %v", engine.InvalidData, err)
		} else if n == 0 {
			break
		}
	}
	return done, nil
}

func (s *Vorbis) OnSeek(frameIndex uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	length := s.reader.Length()
	if length == 0 {
		return engine.BadSeek
	}
	if frameIndex > uint64(length) {
		return engine.BadSeek
	}
	if err := s.reader.SetPosition(int64(frameIndex)); err != nil {
		return fmt.Errorf("%w: %v", engine.BadSeek, err)
	}
	s.eof = false
	return nil
}

func (s *Vorbis) OnGetDataFormat(int) (audio.Format, error) {
	return audio.Format{
		SampleFormat: audio.FormatF32,
		Channels:     uint32(s.channels),
		SampleRate:   s.sampleRate,
		ChannelMap:   s.channelMap,
	}, nil
}

func (s *Vorbis) OnGetCursor() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(s.reader.Position()), nil
}

func (s *Vorbis) OnGetLength() (uint64, error) {
	if length := s.reader.Length(); length > 0 {
		return uint64(length), nil
	}
	return 0, engine.NotImplemented
}

func (s *Vorbis) OnSetLooping(bool) error {
	return nil
}

// Close unregisters the source and closes the file it was opened from
func (s *Vorbis) Close() error {
	s.Uninit()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
