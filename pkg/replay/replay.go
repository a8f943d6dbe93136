// Package replay reconstructs key state and frame timing from the artifacts a
// recording session leaves behind. It backs the offline sync verification
// tool and downstream featurization; nothing here runs at record time.
package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/arcadelab/sessiontape/pkg/session"
)

// KeyChange is one key transition on the reconstructed timeline.
type KeyChange struct {
	T    float64
	Key  string
	Down bool
}

// Timeline is the ordered list of key transitions for one session.
type Timeline []KeyChange

// LoadTimeline reads a session event log and returns its key transitions in
// timestamp order. Marker events and undecodable lines are skipped; a
// partially corrupt log still yields a usable timeline.
func LoadTimeline(path string) (Timeline, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer file.Close()

	var timeline Timeline
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec session.EventRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		switch rec.Event {
		case session.EventKeyDown:
			timeline = append(timeline, KeyChange{T: rec.T, Key: rec.Key, Down: true})
		case session.EventKeyUp:
			timeline = append(timeline, KeyChange{T: rec.T, Key: rec.Key, Down: false})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}

	// Single-writer appends are already ordered; sorting is defensive.
	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].T < timeline[j].T })
	return timeline, nil
}

// KeysDownAt replays the timeline from the beginning and returns the set of
// keys held at time t. Deliberately a full replay per call — callers sweeping
// a long video should memoize or walk forward incrementally themselves.
func KeysDownAt(timeline Timeline, t float64) map[string]struct{} {
	down := make(map[string]struct{})
	for _, change := range timeline {
		if change.T > t {
			break
		}
		if change.Down {
			down[change.Key] = struct{}{}
		} else {
			delete(down, change.Key)
		}
	}
	return down
}

// FrameLog holds the persisted frame-index → timestamp mapping.
type FrameLog struct {
	Stamps []float64
	Period float64
}

// ErrEmptyFrameLog indicates a frame log with no usable entries.
var ErrEmptyFrameLog = errors.New("frame log contains no entries")

// LoadFrameLog reads a session frame log. When period is zero it is inferred
// from the first pair of stamps.
func LoadFrameLog(path string, period float64) (*FrameLog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame log: %w", err)
	}
	defer file.Close()

	var stamps []float64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var stamp session.FrameStamp
		if err := json.Unmarshal(line, &stamp); err != nil {
			continue
		}
		stamps = append(stamps, stamp.T)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read frame log: %w", err)
	}
	if len(stamps) == 0 {
		return nil, ErrEmptyFrameLog
	}

	if period <= 0 {
		if len(stamps) >= 2 {
			period = stamps[1] - stamps[0]
		}
	}

	return &FrameLog{Stamps: stamps, Period: period}, nil
}

// TimestampAt returns the nominal timestamp of frame index i. Indexes past
// the logged range extrapolate from the last entry — the recoverable case of
// a video slightly longer than its log.
func (l *FrameLog) TimestampAt(i int) (float64, error) {
	if i < 0 {
		return 0, fmt.Errorf("frame index %d must not be negative", i)
	}
	if len(l.Stamps) == 0 {
		return 0, ErrEmptyFrameLog
	}
	if i < len(l.Stamps) {
		return l.Stamps[i], nil
	}
	last := len(l.Stamps) - 1
	return l.Stamps[last] + float64(i-last)*l.Period, nil
}

// Gaps returns the indices whose spacing from the previous stamp deviates
// from the period by more than tolerance seconds. An empty result means the
// log satisfies the gapless, evenly spaced schedule invariant.
func (l *FrameLog) Gaps(tolerance float64) []int {
	var gaps []int
	for i := 1; i < len(l.Stamps); i++ {
		diff := l.Stamps[i] - l.Stamps[i-1]
		if diff < 0 || diff-l.Period > tolerance || l.Period-diff > tolerance {
			gaps = append(gaps, i)
		}
	}
	return gaps
}
