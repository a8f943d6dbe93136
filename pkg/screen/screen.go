// Package screen defines the region-capture primitive consumed by the session
// scheduler, along with a deterministic synthetic grabber used on hosts
// without a native capture backend and in automated tests.
package screen

import (
	"context"
	"errors"
	"time"
)

// Region is the captured screen rectangle in pixels.
type Region struct {
	Top    int
	Left   int
	Width  int
	Height int
}

// Valid reports whether the region describes a usable rectangle.
func (r Region) Valid() bool {
	return r.Width > 0 && r.Height > 0 && r.Top >= 0 && r.Left >= 0
}

// Frame is one grabbed image in RGBA order, tightly packed (stride == 4*Width).
type Frame struct {
	Pix        []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// Grabber produces raw frames for a screen region.
type Grabber interface {
	Grab(ctx context.Context, region Region) (Frame, error)
}

// GrabberFunc adapts a function literal to the Grabber interface.
type GrabberFunc func(ctx context.Context, region Region) (Frame, error)

// Grab calls the underlying function.
func (f GrabberFunc) Grab(ctx context.Context, region Region) (Frame, error) {
	return f(ctx, region)
}

// ErrInvalidRegion indicates the requested rectangle cannot be captured.
var ErrInvalidRegion = errors.New("capture region must have positive dimensions and a non-negative origin")
