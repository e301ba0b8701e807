// ABOUTME: Seekable MP3 data source
// ABOUTME: Streams 16-bit stereo frames decoded on demand by go-mp3
package sources

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hajimehoshi/go-mp3"
	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/datasource"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// go-mp3 always decodes to 16-bit little-endian stereo
const (
	mp3Channels   = 2
	mp3FrameBytes = 4
)

// MP3 decodes an MP3 stream as it is read
type MP3 struct {
	datasource.Adapter[MP3, *MP3]
	info

	mu         sync.Mutex
	closer     io.Closer
	decoder    *mp3.Decoder
	sampleRate uint32
	channelMap []audio.Channel
	cursor     uint64
	length     uint64 // 0 when the stream is not seekable
	scratch    []byte
}

// OpenMP3 opens an MP3 file
func OpenMP3(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	s, err := NewMP3(f, baseName(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// NewMP3 decodes r. Seeking and length need r to be an io.Seeker.
func NewMP3(r io.Reader, name string) (*MP3, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	s := &MP3{
		info:       newInfo("mp3", name),
		decoder:    decoder,
		sampleRate: uint32(decoder.SampleRate()),
		channelMap: audio.DefaultChannelMap(mp3Channels),
	}
	if n := decoder.Length(); n > 0 {
		s.length = uint64(n) / mp3FrameBytes
	}
	if err := s.Init(s); err != nil {
		return nil, fmt.Errorf("failed to init MP3 source: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"rate":   s.sampleRate,
		"frames": s.length,
	}).Info("Loaded MP3")
	return s, nil
}

func (s *MP3) OnRead(out audio.View) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	need := out.Frames() * mp3FrameBytes
	if cap(s.scratch) < need {
		s.scratch = make([]byte, need)
	}
	buf := s.scratch[:need]

	n, err := io.ReadFull(s.decoder, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("%w: mp3 decode: %v", engine.IOError, err)
	}

	frames := n / mp3FrameBytes
	dst := out.Int16()
	for i := 0; i < frames*mp3Channels; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	s.cursor += uint64(frames)
	return uint64(frames), nil
}

func (s *MP3) OnSkip(frameCount uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.length > 0 {
		n := min(frameCount, s.length-min(s.cursor, s.length))
		if _, err := s.decoder.Seek(int64(s.cursor+n)*mp3FrameBytes, io.SeekStart); err != nil {
			return 0, fmt.Errorf("%w: %v", engine.BadSeek, err)
		}
		s.cursor += n
		return n, nil
	}

	n, err := io.CopyN(io.Discard, s.decoder, int64(frameCount)*mp3FrameBytes)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: mp3 decode: %v", engine.IOError, err)
	}
	frames := uint64(n) / mp3FrameBytes
	s.cursor += frames
	return frames, nil
}

func (s *MP3) OnSeek(frameIndex uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.length > 0 && frameIndex > s.length {
		return engine.BadSeek
	}
	if _, err := s.decoder.Seek(int64(frameIndex)*mp3FrameBytes, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", engine.BadSeek, err)
	}
	s.cursor = frameIndex
	return nil
}

func (s *MP3) OnGetDataFormat(int) (audio.Format, error) {
	return audio.Format{
		SampleFormat: audio.FormatS16,
		Channels:     mp3Channels,
		SampleRate:   s.sampleRate,
		ChannelMap:   s.channelMap,
	}, nil
}

func (s *MP3) OnGetCursor() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, nil
}

func (s *MP3) OnGetLength() (uint64, error) {
	if s.length == 0 {
		return 0, engine.NotImplemented
	}
	return s.length, nil
}

func (s *MP3) OnSetLooping(bool) error {
	return nil
}

// Close unregisters the source and closes the file it was opened from
func (s *MP3) Close() error {
	s.Uninit()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
