package cmd

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arcadelab/sessiontape/pkg/replay"
	"github.com/arcadelab/sessiontape/pkg/session"
)

func newVerifyCommand() command {
	return command{
		name:        "verify",
		description: "Check frame/event synchronization for a recorded session",
		configure: func(fs *flag.FlagSet) {
			fs.String("session", "", "Session name to verify (required)")
			fs.Float64("tolerance", 0.002, "Allowed frame-spacing deviation in seconds")
			fs.Int("samples", 5, "Number of frames to sample for held-key reconstruction")
		},
		run: runVerify,
	}
}

func runVerify(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	name := stringFlag(fs, "session")
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("the -session flag is required")
	}
	tolerance := float64Flag(fs, "tolerance")
	samples := intFlag(fs, "samples")

	paths := session.DerivePaths(ctx.Config.Paths.SessionsDir, name, ctx.Config.Capture.Format)

	period := 0.0
	if ctx.Config.Capture.FrameRate > 0 {
		period = 1 / ctx.Config.Capture.FrameRate
	}
	frameLog, err := replay.LoadFrameLog(paths.Frames, period)
	if err != nil {
		return fmt.Errorf("load frame log: %w", err)
	}

	timeline, err := replay.LoadTimeline(paths.Events)
	if err != nil {
		return fmt.Errorf("load event log: %w", err)
	}

	fmt.Fprintf(stdout, "Session %s: %d frames, %d key transitions\n", name, len(frameLog.Stamps), len(timeline))

	gaps := frameLog.Gaps(tolerance)
	if len(gaps) == 0 {
		fmt.Fprintf(stdout, "Frame schedule: OK (period %.4fs, tolerance %.4fs)\n", frameLog.Period, tolerance)
	} else {
		fmt.Fprintf(stdout, "Frame schedule: %d gap(s) at indices %v\n", len(gaps), gaps)
	}

	if samples > 0 && len(frameLog.Stamps) > 0 {
		step := len(frameLog.Stamps) / samples
		if step < 1 {
			step = 1
		}
		fmt.Fprintln(stdout, "Held keys at sampled frames:")
		for i := 0; i < len(frameLog.Stamps); i += step {
			ts, err := frameLog.TimestampAt(i)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "  frame %6d t=%.3f keys=%s\n", i, ts, formatKeys(replay.KeysDownAt(timeline, ts)))
		}
	}

	if len(gaps) > 0 {
		return fmt.Errorf("frame log %s violates the capture schedule", filepath.Base(paths.Frames))
	}
	return nil
}

func formatKeys(down map[string]struct{}) string {
	if len(down) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(down))
	for key := range down {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return strings.Join(keys, "+")
}

func stringFlag(fs *flag.FlagSet, name string) string {
	f := fs.Lookup(name)
	if f == nil {
		return ""
	}
	return f.Value.String()
}

func float64Flag(fs *flag.FlagSet, name string) float64 {
	f := fs.Lookup(name)
	if f == nil {
		return 0
	}
	getter, ok := f.Value.(flag.Getter)
	if !ok {
		return 0
	}
	value, ok := getter.Get().(float64)
	if !ok {
		return 0
	}
	return value
}

func intFlag(fs *flag.FlagSet, name string) int {
	f := fs.Lookup(name)
	if f == nil {
		return 0
	}
	getter, ok := f.Value.(flag.Getter)
	if !ok {
		return 0
	}
	value, ok := getter.Get().(int)
	if !ok {
		return 0
	}
	return value
}
