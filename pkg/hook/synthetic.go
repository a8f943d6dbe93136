package hook

import (
	"context"
	"time"
)

// SyntheticSource replays a short scripted gameplay burst. It stands in for
// the OS hook on hosts without one and gives tests a deterministic timeline.
type SyntheticSource struct {
	clock func() time.Time
	step  time.Duration
}

// NewSyntheticSource constructs a synthetic source whose events are spaced by step.
func NewSyntheticSource(clock func() time.Time, step time.Duration) *SyntheticSource {
	if clock == nil {
		clock = time.Now
	}
	if step <= 0 {
		step = 100 * time.Millisecond
	}
	return &SyntheticSource{clock: clock, step: step}
}

// Stream emits the scripted timeline.
func (s *SyntheticSource) Stream(ctx context.Context, emit func(KeyEvent) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := s.clock().UTC()

	script := []struct {
		offset int
		key    string
		kind   Kind
	}{
		{0, "8", KindPress},
		{1, "8", KindRelease},
		{2, "right", KindPress},
		{3, "f", KindPress},
		{4, "f", KindPress}, // key repeat, suppressed by the binder
		{6, "f", KindRelease},
		{7, "right", KindRelease},
		{8, "space", KindPress},
		{9, "space", KindRelease},
		{10, "9", KindPress},
		{11, "9", KindRelease},
	}

	for _, entry := range script {
		if err := ctx.Err(); err != nil {
			return err
		}
		event := KeyEvent{
			Time: start.Add(time.Duration(entry.offset) * s.step),
			Key:  entry.key,
			Kind: entry.kind,
		}
		if err := emit(event); err != nil {
			return err
		}
	}
	return nil
}
