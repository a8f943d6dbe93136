package screen

import (
	"context"
	"time"
)

// SyntheticGrabber renders a moving gradient so recorded sessions are
// visually inspectable without a native capture backend. The pattern advances
// with every grab, which lets tests distinguish fresh grabs from duplicated
// frames.
type SyntheticGrabber struct {
	clock func() time.Time
	tick  uint8
}

// NewSyntheticGrabber constructs a synthetic grabber using the supplied clock.
func NewSyntheticGrabber(clock func() time.Time) *SyntheticGrabber {
	if clock == nil {
		clock = time.Now
	}
	return &SyntheticGrabber{clock: clock}
}

// Grab renders one frame for the requested region.
func (s *SyntheticGrabber) Grab(ctx context.Context, region Region) (Frame, error) {
	if ctx != nil && ctx.Err() != nil {
		return Frame{}, ctx.Err()
	}
	if !region.Valid() {
		return Frame{}, ErrInvalidRegion
	}

	s.tick++
	phase := s.tick
	pix := make([]byte, 4*region.Width*region.Height)
	i := 0
	for y := 0; y < region.Height; y++ {
		for x := 0; x < region.Width; x++ {
			pix[i] = byte(x) + phase
			pix[i+1] = byte(y)
			pix[i+2] = phase
			pix[i+3] = 0xff
			i += 4
		}
	}

	return Frame{
		Pix:        pix,
		Width:      region.Width,
		Height:     region.Height,
		CapturedAt: s.clock().UTC(),
	}, nil
}

// DefaultGrabber returns the grabber used when the caller does not supply one.
func DefaultGrabber(clock func() time.Time) Grabber {
	return NewSyntheticGrabber(clock)
}
