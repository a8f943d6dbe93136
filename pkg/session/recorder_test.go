package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/arcadelab/sessiontape/pkg/screen"
	"github.com/arcadelab/sessiontape/pkg/video"
)

// parkingSleeper blocks the capture goroutine until Stop cancels it, so
// lifecycle tests see exactly one captured frame and stay deterministic.
func parkingSleeper(ctx context.Context, wait time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

func newTestRecorder(t *testing.T, clock *simClock) (*Recorder, *recordingEncoder) {
	t.Helper()

	encoder := &recordingEncoder{}
	video.SetFactory(func(opts video.Options) (video.Encoder, error) {
		return encoder, nil
	})
	t.Cleanup(func() { video.SetFactory(nil) })

	recorder, err := NewRecorder(Options{
		OutputDir: t.TempDir(),
		Clock:     clock.Now,
		Sleeper:   parkingSleeper,
		Grabber:   &scriptedGrabber{clock: clock},
	})
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return recorder, encoder
}

func startSession(t *testing.T, r *Recorder, name string) {
	t.Helper()
	if err := r.Start(name, screen.Region{Width: 4, Height: 2}, 10); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func stopAndDrain(t *testing.T, r *Recorder) {
	t.Helper()
	r.Stop()
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("capture goroutine did not tear down")
	}
}

func waitForFrames(t *testing.T, r *Recorder, n int64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if r.Stats().FramesWritten >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("capture goroutine never wrote %d frames", n)
}

func readEvents(t *testing.T, path string) []EventRecord {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read event log: %v", err)
	}
	var events []EventRecord
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec EventRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			t.Fatalf("parse event line %q: %v", line, err)
		}
		events = append(events, rec)
	}
	return events
}

func TestNewRecorderValidation(t *testing.T) {
	if _, err := NewRecorder(Options{}); err == nil {
		t.Fatalf("expected error for empty output directory")
	}
}

func TestStartRejectsBadArguments(t *testing.T) {
	clock := newSimClock(time.Unix(3000, 0).UTC())
	recorder, _ := newTestRecorder(t, clock)

	if err := recorder.Start("", screen.Region{Width: 4, Height: 2}, 10); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := recorder.Start("s", screen.Region{Width: 4, Height: 2}, 0); err == nil {
		t.Fatalf("expected error for zero frame rate")
	}
	err := recorder.Start("s", screen.Region{Width: 0, Height: 2}, 10)
	if !errors.Is(err, ErrCaptureInit) {
		t.Fatalf("expected capture init error for bad region, got %v", err)
	}
	if recorder.Recording() {
		t.Fatalf("recorder must stay idle after failed start")
	}
}

func TestStartWhileRecordingFails(t *testing.T) {
	clock := newSimClock(time.Unix(3000, 0).UTC())
	recorder, _ := newTestRecorder(t, clock)

	startSession(t, recorder, "one")
	waitForFrames(t, recorder, 1)
	paths, _ := recorder.ActivePaths()
	before, err := os.ReadFile(paths.Frames)
	if err != nil {
		t.Fatalf("read frame log: %v", err)
	}

	if err := recorder.Start("two", screen.Region{Width: 4, Height: 2}, 10); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}

	after, err := os.ReadFile(paths.Frames)
	if err != nil {
		t.Fatalf("re-read frame log: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("rejected start must leave existing artifacts untouched")
	}

	stopAndDrain(t, recorder)
}

func TestCaptureInitFailureLeavesRecorderIdle(t *testing.T) {
	clock := newSimClock(time.Unix(3000, 0).UTC())
	recorder, _ := newTestRecorder(t, clock)

	video.SetFactory(func(opts video.Options) (video.Encoder, error) {
		return nil, errors.New("sink refused")
	})

	err := recorder.Start("bad", screen.Region{Width: 4, Height: 2}, 10)
	if !errors.Is(err, ErrCaptureInit) {
		t.Fatalf("expected ErrCaptureInit, got %v", err)
	}
	if recorder.Recording() {
		t.Fatalf("recorder must remain idle after init failure")
	}

	// The recorder recovers once the sink opens again.
	encoder := &recordingEncoder{}
	video.SetFactory(func(opts video.Options) (video.Encoder, error) {
		return encoder, nil
	})
	startSession(t, recorder, "good")
	stopAndDrain(t, recorder)
}

func TestStopIsIdempotent(t *testing.T) {
	clock := newSimClock(time.Unix(3000, 0).UTC())
	recorder, _ := newTestRecorder(t, clock)

	startSession(t, recorder, "boss")
	if err := recorder.LogKey(EventKeyDown, "f"); err != nil {
		t.Fatalf("log key: %v", err)
	}
	stopAndDrain(t, recorder)

	paths, _ := recorder.ActivePaths()
	firstEvents, err := os.ReadFile(paths.Events)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	firstFrames, err := os.ReadFile(paths.Frames)
	if err != nil {
		t.Fatalf("read frames: %v", err)
	}

	recorder.Stop()
	recorder.Stop()

	secondEvents, _ := os.ReadFile(paths.Events)
	secondFrames, _ := os.ReadFile(paths.Frames)
	if !bytes.Equal(firstEvents, secondEvents) || !bytes.Equal(firstFrames, secondFrames) {
		t.Fatalf("repeated stop must not change on-disk artifacts")
	}
}

func TestEventLogRecordsInCallOrder(t *testing.T) {
	start := time.Unix(3000, 0).UTC()
	clock := newSimClock(start)
	recorder, _ := newTestRecorder(t, clock)

	startSession(t, recorder, "boss")

	clock.Advance(time.Second)
	if err := recorder.LogKey(EventKeyDown, "f"); err != nil {
		t.Fatalf("keydown: %v", err)
	}
	clock.Advance(time.Second)
	if err := recorder.LogMarker(MarkerFightStart); err != nil {
		t.Fatalf("marker: %v", err)
	}
	clock.Advance(time.Second)
	if err := recorder.LogKey(EventKeyUp, "f"); err != nil {
		t.Fatalf("keyup: %v", err)
	}

	stopAndDrain(t, recorder)

	paths, _ := recorder.ActivePaths()
	events := readEvents(t, paths.Events)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Event != EventKeyDown || events[0].Key != "f" {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[1].Event != EventMarker || events[1].Type != MarkerFightStart {
		t.Fatalf("unexpected second event %+v", events[1])
	}
	if events[2].Event != EventKeyUp {
		t.Fatalf("unexpected third event %+v", events[2])
	}
	for i := 1; i < len(events); i++ {
		if events[i].T < events[i-1].T {
			t.Fatalf("event timestamps must be non-decreasing: %v then %v", events[i-1].T, events[i].T)
		}
	}
}

func TestLoggingWhileIdleIsNoOp(t *testing.T) {
	clock := newSimClock(time.Unix(3000, 0).UTC())
	recorder, _ := newTestRecorder(t, clock)

	if err := recorder.LogKey(EventKeyDown, "f"); err != nil {
		t.Fatalf("idle LogKey must be a no-op, got %v", err)
	}
	if err := recorder.LogMarker(MarkerFightStart); err != nil {
		t.Fatalf("idle LogMarker must be a no-op, got %v", err)
	}
	if recorder.Stats().FightsMarked != 0 {
		t.Fatalf("idle markers must not count")
	}
}

func TestFightTimerAccounting(t *testing.T) {
	start := time.Unix(3000, 0).UTC()
	clock := newSimClock(start)
	recorder, _ := newTestRecorder(t, clock)

	startSession(t, recorder, "boss")

	// fight_start@10, fight_end@15, fight_start@20, stats@23 → 5 + 3 = 8s
	clock.Advance(10 * time.Second)
	if err := recorder.LogMarker(MarkerFightStart); err != nil {
		t.Fatalf("marker: %v", err)
	}
	clock.Advance(5 * time.Second)
	if err := recorder.LogMarker(MarkerFightEnd); err != nil {
		t.Fatalf("marker: %v", err)
	}
	clock.Advance(5 * time.Second)
	if err := recorder.LogMarker(MarkerFightStart); err != nil {
		t.Fatalf("marker: %v", err)
	}
	clock.Advance(3 * time.Second)

	stats := recorder.Stats()
	if stats.ElapsedFightTime != 8*time.Second {
		t.Fatalf("elapsed fight time %v, want 8s", stats.ElapsedFightTime)
	}
	if stats.FightsMarked != 2 {
		t.Fatalf("fights marked %d, want 2", stats.FightsMarked)
	}

	stopAndDrain(t, recorder)
}

func TestUnmatchedMarkersAreTimerNoOps(t *testing.T) {
	start := time.Unix(3000, 0).UTC()
	clock := newSimClock(start)
	recorder, _ := newTestRecorder(t, clock)

	startSession(t, recorder, "boss")

	// fight_end with no open fight contributes nothing.
	clock.Advance(2 * time.Second)
	if err := recorder.LogMarker(MarkerFightEnd); err != nil {
		t.Fatalf("marker: %v", err)
	}
	if got := recorder.Stats().ElapsedFightTime; got != 0 {
		t.Fatalf("stray fight_end contributed %v", got)
	}

	// A second fight_start keeps the original opening time.
	if err := recorder.LogMarker(MarkerFightStart); err != nil {
		t.Fatalf("marker: %v", err)
	}
	clock.Advance(4 * time.Second)
	if err := recorder.LogMarker(MarkerFightStart); err != nil {
		t.Fatalf("marker: %v", err)
	}
	clock.Advance(1 * time.Second)
	if got := recorder.Stats().ElapsedFightTime; got != 5*time.Second {
		t.Fatalf("elapsed %v, want 5s from the first fight_start", got)
	}

	stopAndDrain(t, recorder)
}

func TestStopFinalizesOpenFight(t *testing.T) {
	start := time.Unix(3000, 0).UTC()
	clock := newSimClock(start)
	recorder, _ := newTestRecorder(t, clock)

	startSession(t, recorder, "boss")

	clock.Advance(20 * time.Second)
	if err := recorder.LogMarker(MarkerFightStart); err != nil {
		t.Fatalf("marker: %v", err)
	}
	clock.Advance(6 * time.Second)
	stopAndDrain(t, recorder)

	if got := recorder.Stats().ElapsedFightTime; got != 6*time.Second {
		t.Fatalf("stop should fold the open fight into the total, got %v", got)
	}

	// Time passing after stop must not grow the total.
	clock.Advance(time.Minute)
	if got := recorder.Stats().ElapsedFightTime; got != 6*time.Second {
		t.Fatalf("fight time grew after stop: %v", got)
	}
}

func TestNewSessionResetsCounters(t *testing.T) {
	start := time.Unix(3000, 0).UTC()
	clock := newSimClock(start)
	recorder, _ := newTestRecorder(t, clock)

	startSession(t, recorder, "one")
	clock.Advance(time.Second)
	if err := recorder.LogMarker(MarkerFightStart); err != nil {
		t.Fatalf("marker: %v", err)
	}
	clock.Advance(time.Second)
	stopAndDrain(t, recorder)

	startSession(t, recorder, "two")
	stats := recorder.Stats()
	if stats.FightsMarked != 0 || stats.ElapsedFightTime != 0 {
		t.Fatalf("counters must reset on a new session: %+v", stats)
	}
	stopAndDrain(t, recorder)
}
