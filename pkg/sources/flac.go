// ABOUTME: Seekable FLAC data source
// ABOUTME: Streams 32-bit frames decoded block by block with mewkiz/flac
package sources

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/datasource"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// FLAC decodes a FLAC stream block by block. Samples are left-justified
// into 32 bits whatever the stream's bit depth.
type FLAC struct {
	datasource.Adapter[FLAC, *FLAC]
	info

	mu         sync.Mutex
	closer     io.Closer
	stream     *flac.Stream
	sampleRate uint32
	channels   int
	shift      uint
	length     uint64
	channelMap []audio.Channel

	block    *frame.Frame
	blockPos int
	cursor   uint64
	eof      bool
}

// OpenFLAC opens a FLAC file
func OpenFLAC(path string) (*FLAC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	s, err := NewFLAC(f, baseName(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// NewFLAC decodes rs
func NewFLAC(rs io.ReadSeeker, name string) (*FLAC, error) {
	stream, err := flac.NewSeek(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	si := stream.Info
	if si.BitsPerSample == 0 || si.BitsPerSample > 32 {
		return nil, fmt.Errorf("%w: %d-bit FLAC", ErrInvalidFormat, si.BitsPerSample)
	}
	s := &FLAC{
		info:       newInfo("flac", name),
		stream:     stream,
		sampleRate: si.SampleRate,
		channels:   int(si.NChannels),
		shift:      uint(32 - int(si.BitsPerSample)),
		length:     si.NSamples,
		channelMap: audio.DefaultChannelMap(int(si.NChannels)),
	}
	if err := s.Init(s); err != nil {
		return nil, fmt.Errorf("failed to init FLAC source: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"rate":      si.SampleRate,
		"channels":  si.NChannels,
		"bit_depth": si.BitsPerSample,
		"frames":    si.NSamples,
	}).Info("Loaded FLAC")
	return s, nil
}

// fill makes sure the current block has unread frames. It returns false at
// the end of the stream.
func (s *FLAC) fill() (bool, error) {
	for s.block == nil || s.blockPos >= len(s.block.Subframes[0].Samples) {
		if s.eof {
			return false, nil
		}
		block, err := s.stream.ParseNext()
		if errors.Is(err, io.EOF) {
			s.eof = true
			s.block = nil
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%w: flac decode: %v", engine.InvalidData, err)
		}
		s.block, s.blockPos = block, 0
	}
	return true, nil
}

func (s *FLAC) OnRead(out audio.View) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dst := out.Int32()
	done := 0
	for done < out.Frames() {
		ok, err := s.fill()
		if err != nil {
			return uint64(done), err
		}
		if !ok {
			break
		}

		n := min(out.Frames()-done, len(s.block.Subframes[0].Samples)-s.blockPos)
		for f := 0; f < n; f++ {
			for ch, sub := range s.block.Subframes {
				dst[(done+f)*s.channels+ch] = sub.Samples[s.blockPos+f] << s.shift
			}
		}
		s.blockPos += n
		done += n
	}
	s.cursor += uint64(done)
	return uint64(done), nil
}

func (s *FLAC) skip(frameCount uint64) (uint64, error) {
	var done uint64
	for done < frameCount {
		ok, err := s.fill()
		if err != nil {
			return done, err
		}
		if !ok {
			break
		}
		n := min(frameCount-done, uint64(len(s.block.Subframes[0].Samples)-s.blockPos))
		s.blockPos += int(n)
		done += n
	}
	s.cursor += done
	return done, nil
}

func (s *FLAC) OnSkip(frameCount uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skip(frameCount)
}

func (s *FLAC) OnSeek(frameIndex uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.length > 0 && frameIndex >= s.length {
		if frameIndex > s.length {
			return engine.BadSeek
		}
		s.block, s.eof, s.cursor = nil, true, frameIndex
		return nil
	}

	start, err := s.stream.Seek(frameIndex)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.BadSeek, err)
	}
	s.block, s.eof, s.cursor = nil, false, start
	if _, err := s.skip(frameIndex - start); err != nil {
		return err
	}
	return nil
}

func (s *FLAC) OnGetDataFormat(int) (audio.Format, error) {
	return audio.Format{
		SampleFormat: audio.FormatS32,
		Channels:     uint32(s.channels),
		SampleRate:   s.sampleRate,
		ChannelMap:   s.channelMap,
	}, nil
}

func (s *FLAC) OnGetCursor() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, nil
}

func (s *FLAC) OnGetLength() (uint64, error) {
	if s.length == 0 {
		return 0, engine.NotImplemented
	}
	return s.length, nil
}

func (s *FLAC) OnSetLooping(bool) error {
	return nil
}

// Close unregisters the source and closes the file it was opened from
func (s *FLAC) Close() error {
	s.Uninit()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
