package session

import (
	"fmt"
	"path/filepath"
	"time"
)

// Event kinds persisted to the event log.
const (
	EventKeyDown = "keydown"
	EventKeyUp   = "keyup"
	EventMarker  = "marker"
)

// Marker kinds persisted alongside marker events.
const (
	MarkerFightStart = "fight_start"
	MarkerFightEnd   = "fight_end"
)

// EventRecord is one line of the <name>_events.jsonl artifact.
type EventRecord struct {
	Event string  `json:"event"`
	Key   string  `json:"key,omitempty"`
	Type  string  `json:"type,omitempty"`
	T     float64 `json:"t"`
}

// FrameStamp is one line of the <name>_frames.jsonl artifact; the frame index
// is implied by line number.
type FrameStamp struct {
	T float64 `json:"t"`
}

// Paths locates the three artifacts of one session.
type Paths struct {
	Video  string
	Events string
	Frames string
}

// DerivePaths maps a session name onto its artifact paths within dir.
func DerivePaths(dir, name, format string) Paths {
	return Paths{
		Video:  filepath.Join(dir, fmt.Sprintf("%s.%s", name, format)),
		Events: filepath.Join(dir, name+"_events.jsonl"),
		Frames: filepath.Join(dir, name+"_frames.jsonl"),
	}
}

// EpochSeconds renders a wall-clock instant as UTC epoch seconds, the
// timestamp unit shared by both persisted streams.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
