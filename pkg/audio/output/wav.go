// ABOUTME: WAV file output that renders the graph to disk
// ABOUTME: Uses go-audio/wav, rendering as fast as the encoder accepts frames
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/pkg/audio"
	"github.com/Resonate-Protocol/mabridge/pkg/engine"
)

// wavBlockFrames is the render size per encoder write
const wavBlockFrames = 4096

// RenderWAV writes what r produces to w as a PCM WAV until r ends or
// maxFrames frames are written. A maxFrames of zero means no limit.
func RenderWAV(w io.WriteSeeker, r Renderer, format Format, maxFrames uint64) (uint64, error) {
	if err := format.Validate(); err != nil {
		return 0, err
	}

	enc := wav.NewEncoder(w, format.SampleRate, format.BitDepth, format.Channels, 1)
	buf := make([]float32, wavBlockFrames*format.Channels)
	intBuf := audio.NewFloat32View(buf, format.Channels).IntBuffer(format.SampleRate, format.BitDepth)

	var total uint64
	for maxFrames == 0 || total < maxFrames {
		frames := wavBlockFrames
		if maxFrames > 0 {
			frames = int(min(uint64(frames), maxFrames-total))
		}

		n, err := r.Read(buf[:frames*format.Channels])
		if errors.Is(err, engine.AtEnd) {
			break
		}
		if err != nil {
			enc.Close()
			return total, fmt.Errorf("render failed: %w", err)
		}

		audio.NewFloat32View(buf[:n*format.Channels], format.Channels).FillIntBuffer(intBuf)
		if err := enc.Write(intBuf); err != nil {
			enc.Close()
			return total, fmt.Errorf("failed to write WAV data: %w", err)
		}
		total += uint64(n)
	}

	if err := enc.Close(); err != nil {
		return total, fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return total, nil
}

// WAVFile is an Output that renders to a file in the background
type WAVFile struct {
	path      string
	maxFrames uint64
	logger    *logrus.Entry

	mu     sync.Mutex
	done   chan struct{}
	frames uint64
	err    error
}

// NewWAVFile creates an output writing to path. A maxFrames of zero renders
// until the graph ends, which never happens with looping or endless sources.
func NewWAVFile(path string, maxFrames uint64) *WAVFile {
	return &WAVFile{
		path:      path,
		maxFrames: maxFrames,
		logger:    logrus.WithFields(logrus.Fields{"output": "wav", "path": path}),
	}
}

// Open creates the file and starts rendering into it
func (w *WAVFile) Open(r Renderer, format Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}

	w.mu.Lock()
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	w.logger.WithField("format", format.String()).Info("Rendering to WAV")
	go func() {
		defer close(done)
		frames, err := RenderWAV(f, r, format, w.maxFrames)
		if cerr := f.Close(); err == nil {
			err = cerr
		}

		w.mu.Lock()
		w.frames, w.err = frames, err
		w.mu.Unlock()

		if err != nil {
			w.logger.WithError(err).Error("WAV render failed")
			return
		}
		w.logger.WithField("frames", frames).Info("WAV render finished")
	}()
	return nil
}

// Done is closed when rendering stops
func (w *WAVFile) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// Result returns the frames written and the render error once Done is closed
func (w *WAVFile) Result() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames, w.err
}

// Close waits for rendering to finish
func (w *WAVFile) Close() error {
	if done := w.Done(); done != nil {
		<-done
	}
	_, err := w.Result()
	return err
}
