// Package featurize turns a session's key-event stream into a fixed feature
// vector describing play style: activity rate, key mix, and input rhythm.
package featurize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/arcadelab/sessiontape/pkg/replay"
)

// TrackedKeys is the fixed key vocabulary the per-key shares cover.
var TrackedKeys = []string{"space", "up", "down", "left", "right", "f", "d", "a", "x"}

// MinDurationSeconds filters out sessions too short to be meaningful.
const MinDurationSeconds = 10.0

// ErrInsufficientData indicates a session too short or too sparse to featurize.
var ErrInsufficientData = errors.New("featurize: not enough events for a feature vector")

// Features is one session reduced to a feature vector.
type Features struct {
	Name                string
	DurationSeconds     float64
	TotalKeydowns       int
	APM                 float64
	KeyShares           map[string]float64
	MeanIntervalSeconds float64
	StdIntervalSeconds  float64
	VerticalRatio       float64
	DuckJumpRatio       float64
}

// Session computes the feature vector for one session's key timeline.
// Sessions shorter than MinDurationSeconds or with fewer than two keydowns
// return ErrInsufficientData.
func Session(name string, timeline replay.Timeline) (Features, error) {
	var downs []replay.KeyChange
	for _, change := range timeline {
		if change.Down {
			downs = append(downs, change)
		}
	}
	if len(downs) < 2 {
		return Features{}, ErrInsufficientData
	}

	duration := timeline[len(timeline)-1].T - timeline[0].T
	if duration < MinDurationSeconds {
		return Features{}, ErrInsufficientData
	}

	counts := make(map[string]int, len(TrackedKeys))
	for _, key := range TrackedKeys {
		counts[key] = 0
	}
	for _, change := range downs {
		if _, tracked := counts[change.Key]; tracked {
			counts[change.Key]++
		}
	}

	shares := make(map[string]float64, len(TrackedKeys))
	for key, count := range counts {
		shares[key] = float64(count) / float64(len(downs))
	}

	var intervals []float64
	for i := 1; i < len(downs); i++ {
		intervals = append(intervals, downs[i].T-downs[i-1].T)
	}
	mean, std := meanStd(intervals)

	// +1 on both sides keeps the ratios finite for sparse sessions.
	vertical := float64(counts["up"]+counts["down"]+1) / float64(counts["left"]+counts["right"]+1)
	duckJump := float64(counts["down"]+1) / float64(counts["space"]+1)

	return Features{
		Name:                name,
		DurationSeconds:     duration,
		TotalKeydowns:       len(downs),
		APM:                 float64(len(downs)) / duration * 60,
		KeyShares:           shares,
		MeanIntervalSeconds: mean,
		StdIntervalSeconds:  std,
		VerticalRatio:       vertical,
		DuckJumpRatio:       duckJump,
	}, nil
}

// File loads a session event log and featurizes it.
func File(name, eventsPath string) (Features, error) {
	timeline, err := replay.LoadTimeline(eventsPath)
	if err != nil {
		return Features{}, fmt.Errorf("load timeline: %w", err)
	}
	return Session(name, timeline)
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// WriteCSV emits the feature vectors as one CSV table with a header row.
// Column order is stable so downstream training sets line up across runs.
func WriteCSV(w io.Writer, features []Features) error {
	writer := csv.NewWriter(w)

	header := []string{"name", "duration_s", "total_keydowns", "apm"}
	for _, key := range TrackedKeys {
		header = append(header, "pct_"+key)
	}
	header = append(header,
		"avg_time_between_presses",
		"std_time_between_presses",
		"vertical_to_horizontal_ratio",
		"duck_to_jump_ratio",
	)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, f := range features {
		row := []string{
			f.Name,
			formatFloat(f.DurationSeconds),
			strconv.Itoa(f.TotalKeydowns),
			formatFloat(f.APM),
		}
		for _, key := range TrackedKeys {
			row = append(row, formatFloat(f.KeyShares[key]))
		}
		row = append(row,
			formatFloat(f.MeanIntervalSeconds),
			formatFloat(f.StdIntervalSeconds),
			formatFloat(f.VerticalRatio),
			formatFloat(f.DuckJumpRatio),
		)
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
