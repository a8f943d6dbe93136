package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcadelab/sessiontape/pkg/screen"
	"github.com/arcadelab/sessiontape/pkg/video"
)

// scheduler owns the capture goroutine. Nominal frame timestamps come from an
// accumulating schedule (next = next + period), never from the wall clock at
// write time, so scheduling jitter never shifts later frames. When real time
// runs ahead of the schedule, every missed slot is backfilled with a duplicate
// of the latest grab, keeping the (index, timestamp) mapping gapless.
type scheduler struct {
	region  screen.Region
	period  time.Duration
	clock   func() time.Time
	sleeper func(context.Context, time.Duration) error
	grabber screen.Grabber
	encoder video.Encoder
	logger  *slog.Logger

	frames   *os.File
	frameEnc *json.Encoder

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	teardown sync.Once
	written  atomic.Int64
}

func (s *scheduler) run() {
	defer close(s.done)
	defer s.release()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("capture loop panicked", "panic", r)
		}
	}()

	next := s.clock()
	for {
		if s.ctx.Err() != nil {
			return
		}

		frame, err := s.grabber.Grab(s.ctx, s.region)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("frame grab failed", "error", err)
			// The slot stays unconsumed; the next successful grab backfills it.
			wait := next.Sub(s.clock())
			if wait <= 0 {
				wait = s.period
			}
			if err := s.sleeper(s.ctx, wait); err != nil {
				return
			}
			continue
		}

		now := s.clock()
		for !next.After(now) {
			if err := s.encoder.Write(frame.Pix); err != nil {
				s.logger.Error("video write failed", "error", err)
			}
			if err := s.frameEnc.Encode(FrameStamp{T: EpochSeconds(next)}); err != nil {
				s.logger.Error("frame log write failed", "error", err)
			}
			s.written.Add(1)
			next = next.Add(s.period)
		}

		if wait := next.Sub(s.clock()); wait > 0 {
			if err := s.sleeper(s.ctx, wait); err != nil {
				return
			}
		}
	}
}

// release flushes and closes the video sink and frame log exactly once,
// whichever exit path the loop took.
func (s *scheduler) release() {
	s.teardown.Do(func() {
		if err := s.encoder.Release(); err != nil {
			s.logger.Error("video sink release failed", "error", err)
		}
		if err := s.frames.Sync(); err != nil {
			s.logger.Error("frame log sync failed", "error", err)
		}
		if err := s.frames.Close(); err != nil {
			s.logger.Error("frame log close failed", "error", err)
		}
		s.logger.Info("capture teardown complete", "frames", s.written.Load())
	})
}

func defaultSleeper(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
