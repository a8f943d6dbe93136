package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arcadelab/sessiontape/pkg/catalog"
)

func newSessionsCommand() command {
	return command{
		name:        "sessions",
		description: "List recorded sessions, or annotate one with a fight outcome",
		configure: func(fs *flag.FlagSet) {
			fs.Int("limit", 20, "Maximum sessions to list (0 = all)")
			fs.String("id", "", "Session id to annotate with a fight outcome")
			fs.String("boss", "", "Boss name for the fight annotation")
			fs.String("outcome", "", "Fight outcome: win or loss")
			fs.Float64("fight-duration", 0, "Fight duration in seconds for the annotation")
		},
		run: runSessions,
	}
}

func runSessions(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	db, err := catalog.Open(ctx.Config.Paths.CatalogPath)
	if err != nil {
		return err
	}
	defer db.Close()
	store := catalog.NewStore(db)

	id := stringFlag(fs, "id")
	boss := stringFlag(fs, "boss")
	outcome := stringFlag(fs, "outcome")
	if id != "" || boss != "" || outcome != "" {
		return annotateFight(store, stdout, id, boss, outcome, float64Flag(fs, "fight-duration"))
	}

	sessions, err := store.ListSessions(context.Background(), intFlag(fs, "limit"))
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(stdout, "No sessions recorded yet.")
		return nil
	}

	fmt.Fprintf(stdout, "%-36s  %-17s  %-20s  %-9s  %8s  %6s  %10s\n",
		"ID", "NAME", "RECORDED", "STATE", "FRAMES", "FIGHTS", "FIGHT TIME")
	for _, sess := range sessions {
		fmt.Fprintf(stdout, "%-36s  %-17s  %-20s  %-9s  %8d  %6d  %9.1fs\n",
			sess.ID,
			sess.Name,
			sess.CreatedAt.UTC().Format(time.RFC3339),
			sess.State,
			sess.FramesWritten,
			sess.FightsMarked,
			sess.FightTimeSeconds)
	}
	return nil
}

func annotateFight(store *catalog.Store, stdout io.Writer, id, boss, outcome string, duration float64) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(boss) == "" || strings.TrimSpace(outcome) == "" {
		return fmt.Errorf("fight annotation requires -id, -boss, and -outcome together")
	}

	err := store.InsertFight(context.Background(), catalog.Fight{
		SessionID:       id,
		Boss:            strings.ToLower(strings.TrimSpace(boss)),
		Outcome:         strings.ToLower(strings.TrimSpace(outcome)),
		DurationSeconds: duration,
		CreatedAt:       timeNow(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Recorded %s against %s for session %s\n", outcome, boss, id)
	return nil
}
