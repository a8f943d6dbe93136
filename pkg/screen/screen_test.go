package screen

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestSyntheticGrabberRejectsInvalidRegion(t *testing.T) {
	grabber := NewSyntheticGrabber(nil)
	if _, err := grabber.Grab(context.Background(), Region{Width: 0, Height: 10}); err == nil {
		t.Fatalf("expected error for zero width")
	}
	if _, err := grabber.Grab(context.Background(), Region{Top: -1, Width: 10, Height: 10}); err == nil {
		t.Fatalf("expected error for negative origin")
	}
}

func TestSyntheticGrabberProducesPackedRGBA(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	grabber := NewSyntheticGrabber(func() time.Time { return base })

	region := Region{Width: 8, Height: 4}
	frame, err := grabber.Grab(context.Background(), region)
	if err != nil {
		t.Fatalf("grab: %v", err)
	}
	if len(frame.Pix) != 4*region.Width*region.Height {
		t.Fatalf("unexpected buffer length %d", len(frame.Pix))
	}
	if frame.CapturedAt != base {
		t.Fatalf("unexpected capture time %v", frame.CapturedAt)
	}

	next, err := grabber.Grab(context.Background(), region)
	if err != nil {
		t.Fatalf("second grab: %v", err)
	}
	if bytes.Equal(frame.Pix, next.Pix) {
		t.Fatalf("expected successive grabs to differ")
	}
}

func TestSyntheticGrabberRespectsCancellation(t *testing.T) {
	grabber := NewSyntheticGrabber(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := grabber.Grab(ctx, Region{Width: 4, Height: 4}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestDetectEnvironmentDefaultsToSynthetic(t *testing.T) {
	t.Setenv("SESSIONTAPE_SCREEN_BACKEND", "")
	env := DetectEnvironment()
	if env.Provider != ProviderSynthetic {
		t.Fatalf("unexpected provider %q", env.Provider)
	}
	if !env.Available {
		t.Fatalf("synthetic backend should always be available")
	}
	if env.Message == "" {
		t.Fatalf("expected informative message")
	}
}
