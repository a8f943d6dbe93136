package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arcadelab/sessiontape/pkg/featurize"
)

func newFeaturizeCommand() command {
	return command{
		name:        "featurize",
		description: "Convert session event logs into a feature CSV for training",
		configure: func(fs *flag.FlagSet) {
			fs.String("out", "", "Output CSV path (default: <features_dir>/features.csv)")
		},
		run: runFeaturize,
	}
}

const eventsSuffix = "_events.jsonl"

func runFeaturize(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	entries, err := os.ReadDir(ctx.Config.Paths.SessionsDir)
	if err != nil {
		return fmt.Errorf("read sessions directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), eventsSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), eventsSuffix))
	}
	sort.Strings(names)

	if len(names) == 0 {
		fmt.Fprintln(stdout, "No session event logs found.")
		return nil
	}

	var features []featurize.Features
	skipped := 0
	for _, name := range names {
		path := filepath.Join(ctx.Config.Paths.SessionsDir, name+eventsSuffix)
		feats, err := featurize.File(name, path)
		if errors.Is(err, featurize.ErrInsufficientData) {
			ctx.Logger.Warn("session skipped during featurization", "session", name)
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("featurize %s: %w", name, err)
		}
		features = append(features, feats)
	}

	outPath := stringFlag(fs, "out")
	if outPath == "" {
		outPath = filepath.Join(ctx.Config.Paths.FeaturesDir, "features.csv")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure features directory: %w", err)
	}

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create feature csv: %w", err)
	}
	defer file.Close()

	if err := featurize.WriteCSV(file, features); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Featurized %d session(s) (%d skipped) -> %s\n", len(features), skipped, outPath)
	return nil
}
