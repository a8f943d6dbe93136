// Package video provides the encoder sink the capture scheduler writes frames
// into. The native backend encodes through GStreamer; hosts built without cgo
// fall back to a stub so the rest of the pipeline stays usable with an
// injected encoder.
package video

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Options configure an encoder sink.
type Options struct {
	Path      string
	FrameRate float64
	Width     int
	Height    int
	Format    string
}

// Encoder consumes raw RGBA frames and writes an encoded video file.
// Write may be called with the same pixel data more than once; duplicated
// frames are how the scheduler backfills missed schedule slots.
type Encoder interface {
	Write(pix []byte) error
	Release() error
}

// Factory constructs an encoder for the given options. Tests inject fakes
// through SetFactory.
type Factory func(opts Options) (Encoder, error)

var (
	factoryMu sync.Mutex
	factory   Factory
)

// SetFactory overrides the encoder constructor. Passing nil restores the
// native backend.
func SetFactory(f Factory) {
	factoryMu.Lock()
	factory = f
	factoryMu.Unlock()
}

func currentFactory() Factory {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	return factory
}

// Open validates options and constructs an encoder sink.
func Open(opts Options) (Encoder, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("output path must not be empty")
	}
	if opts.FrameRate <= 0 {
		return nil, errors.New("frame rate must be positive")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("frame dimensions %dx%d are not usable", opts.Width, opts.Height)
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "mp4"
	}
	opts.Format = format

	if f := currentFactory(); f != nil {
		return f(opts)
	}
	return newNativeEncoder(opts)
}

// FrameSize returns the expected byte length of one tightly packed RGBA frame.
func (o Options) FrameSize() int {
	return 4 * o.Width * o.Height
}
