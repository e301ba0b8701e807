// ABOUTME: Common source surface, identity and location-based opening
// ABOUTME: Open picks a decoder from a path extension or a stream URL
package sources

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/pkg/datasource"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidFormat     = errors.New("invalid audio format")
	ErrClosed            = errors.New("source closed")
)

// Source is an adapted data source that owns its underlying resources
type Source interface {
	datasource.Controller

	ID() uuid.UUID
	Name() string
	// Close unregisters the source and releases its resources
	Close() error
}

// info carries the identity every source logs with
type info struct {
	id     uuid.UUID
	name   string
	logger *logrus.Entry
}

func newInfo(kind, name string) info {
	id := uuid.New()
	return info{
		id:   id,
		name: name,
		logger: logrus.WithFields(logrus.Fields{
			"source": kind,
			"id":     id.String(),
			"name":   name,
		}),
	}
}

// ID returns the instance identifier used in logs
func (i *info) ID() uuid.UUID { return i.id }

// Name returns the human readable source name
func (i *info) Name() string { return i.name }

// Open creates a source from a file path or a ws:// or wss:// stream URL.
// An empty location yields a 440Hz test tone.
func Open(location string) (Source, error) {
	if location == "" {
		return NewTone(DefaultToneConfig())
	}

	if strings.HasPrefix(location, "ws://") || strings.HasPrefix(location, "wss://") {
		return DialStream(location, DefaultStreamConfig())
	}

	if _, err := os.Stat(location); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(location)); ext {
	case ".wav", ".wave":
		return OpenWAV(location)
	case ".mp3":
		return OpenMP3(location)
	case ".flac":
		return OpenFLAC(location)
	case ".ogg", ".oga":
		return OpenVorbis(location)
	default:
		return nil, fmt.Errorf("%w: %s (supported: .wav, .mp3, .flac, .ogg)", ErrUnsupportedFormat, ext)
	}
}

// baseName strips directory and extension
func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
