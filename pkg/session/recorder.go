// Package session implements the synchronized session recorder: a capture
// scheduler that samples a screen region on a drift-free absolute schedule, an
// append-only event sink stamped from the same clock, and the lifecycle
// controller that ties both to one recording session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/arcadelab/sessiontape/pkg/screen"
	"github.com/arcadelab/sessiontape/pkg/video"
)

// Options configure a Recorder.
type Options struct {
	OutputDir string
	Format    string
	Clock     func() time.Time
	Sleeper   func(context.Context, time.Duration) error
	Grabber   screen.Grabber
	Logger    *slog.Logger
}

// Stats is a consistent snapshot of live session state for UI polling.
type Stats struct {
	ElapsedFightTime time.Duration
	FightsMarked     int
	LastAction       string
	FramesWritten    int64
	Recording        bool
}

// Recorder orchestrates one recording session at a time: Idle → Recording →
// Idle. Exactly two threads of control exist per active session — the
// caller's and the scheduler's capture goroutine. Only the stats fields are
// shared between them, behind the recorder mutex.
type Recorder struct {
	outputDir string
	format    string
	clock     func() time.Time
	sleeper   func(context.Context, time.Duration) error
	grabber   screen.Grabber
	logger    *slog.Logger

	mu           sync.Mutex
	recording    bool
	name         string
	paths        Paths
	sched        *scheduler
	events       *eventLog
	fights       fightTimer
	fightsMarked int
	lastAction   string
}

// NewRecorder validates options and returns an idle recorder.
func NewRecorder(opts Options) (*Recorder, error) {
	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, errors.New("output directory must not be empty")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = defaultSleeper
	}
	grabber := opts.Grabber
	if grabber == nil {
		grabber = screen.DefaultGrabber(clock)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "mp4"
	}
	return &Recorder{
		outputDir:  opts.OutputDir,
		format:     format,
		clock:      clock,
		sleeper:    sleeper,
		grabber:    grabber,
		logger:     logger,
		lastAction: "idle",
	}, nil
}

// Start opens fresh output artifacts derived from name and begins capturing
// region at frameRate on a dedicated goroutine. It returns immediately once
// the capture loop is running, ErrAlreadyRecording when a session is active,
// or an ErrCaptureInit-wrapped error when the video sink cannot be opened.
func (r *Recorder) Start(name string, region screen.Region, frameRate float64) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("session name must not be empty")
	}
	if frameRate <= 0 {
		return fmt.Errorf("frame rate %v must be positive", frameRate)
	}
	if !region.Valid() {
		return newCaptureInitError(screen.ErrInvalidRegion)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}
	// A previous session's teardown must have logically completed before the
	// next one opens files.
	if r.sched != nil {
		<-r.sched.done
		r.sched = nil
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return newCaptureInitError(fmt.Errorf("ensure output directory: %w", err))
	}

	paths := DerivePaths(r.outputDir, name, r.format)
	encoder, err := video.Open(video.Options{
		Path:      paths.Video,
		FrameRate: frameRate,
		Width:     region.Width,
		Height:    region.Height,
		Format:    r.format,
	})
	if err != nil {
		return newCaptureInitError(err)
	}

	events, err := openEventLog(paths.Events)
	if err != nil {
		_ = encoder.Release()
		return newCaptureInitError(err)
	}

	frames, err := os.OpenFile(paths.Frames, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		_ = encoder.Release()
		_ = events.close()
		return newCaptureInitError(fmt.Errorf("create frame log: %w", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	frameEnc := json.NewEncoder(frames)
	frameEnc.SetEscapeHTML(false)

	sched := &scheduler{
		region:   region,
		period:   time.Duration(float64(time.Second) / frameRate),
		clock:    r.clock,
		sleeper:  r.sleeper,
		grabber:  r.grabber,
		encoder:  encoder,
		logger:   r.logger.With("session", name),
		frames:   frames,
		frameEnc: frameEnc,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	r.sched = sched
	r.events = events
	r.name = name
	r.paths = paths
	r.fights.reset()
	r.fightsMarked = 0
	r.lastAction = "ready"
	r.recording = true

	go sched.run()

	r.logger.Info("session started",
		"name", name,
		"video", paths.Video,
		"frame_rate", frameRate,
		"region_width", region.Width,
		"region_height", region.Height,
	)
	return nil
}

// Stop signals the capture goroutine to exit and closes the event sink. It is
// idempotent and a no-op while idle. An open fight is finalized as if
// fight_end fired now, so a session stopped mid-fight keeps that partial
// duration in its stats. Stop does not wait for the video flush; the next
// Start does.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return
	}

	r.fights.finalize(r.clock())
	r.sched.cancel()
	if err := r.events.close(); err != nil {
		r.logger.Error("event log close failed", "error", err)
	}
	r.recording = false
	r.lastAction = "stopped"

	r.logger.Info("session stopping", "name", r.name)
}

// LogKey appends one key event stamped with the current clock. It is a no-op
// (not an error) while idle.
func (r *Recorder) LogKey(kind, key string) error {
	if kind != EventKeyDown && kind != EventKeyUp {
		return fmt.Errorf("unknown key event kind %q", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil
	}

	t := r.clock()
	r.lastAction = fmt.Sprintf("%s (%s)", key, kind)
	return r.events.append(EventRecord{Event: kind, Key: key, T: EpochSeconds(t)})
}

// LogMarker appends one marker event. fight_start increments the
// fights-marked counter; both kinds feed the fight timer, where unmatched
// markers are accepted silently as timer no-ops. No-op while idle.
func (r *Recorder) LogMarker(kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil
	}

	t := r.clock()
	if kind == MarkerFightStart {
		r.fightsMarked++
	}
	r.fights.onMarker(kind, t)
	r.lastAction = "marker: " + kind

	return r.events.append(EventRecord{Event: EventMarker, Type: kind, T: EpochSeconds(t)})
}

// Stats returns a consistent snapshot of the live counters. Safe to call from
// any goroutine; an open fight contributes its currently elapsed duration.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{
		ElapsedFightTime: r.fights.elapsed(r.clock()),
		FightsMarked:     r.fightsMarked,
		LastAction:       r.lastAction,
		Recording:        r.recording,
	}
	if r.sched != nil {
		stats.FramesWritten = r.sched.written.Load()
	}
	return stats
}

// Recording reports whether a session is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// ActivePaths returns the artifact paths of the current or most recent session.
func (r *Recorder) ActivePaths() (Paths, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paths, r.name
}

// Done returns a channel closed once the capture goroutine has flushed and
// released its artifacts. Before any session has started it is already closed.
func (r *Recorder) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sched != nil {
		return r.sched.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}
