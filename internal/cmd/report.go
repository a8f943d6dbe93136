package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/arcadelab/sessiontape/pkg/catalog"
)

func newReportCommand() command {
	return command{
		name:        "report",
		description: "Summarise win/loss records per boss from the session catalog",
		run:         runReport,
	}
}

func runReport(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	db, err := catalog.Open(ctx.Config.Paths.CatalogPath)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := catalog.NewStore(db).WinLoss(context.Background())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "No fight outcomes recorded yet.")
		return nil
	}

	totalWins, totalLosses := 0, 0
	fmt.Fprintln(stdout, "Boss fight statistics:")
	for _, rec := range records {
		total := rec.Wins + rec.Losses
		rate := 0.0
		if total > 0 {
			rate = float64(rec.Wins) / float64(total) * 100
		}
		fmt.Fprintf(stdout, "  %-15s fights=%3d wins=%3d losses=%3d win_rate=%.1f%%\n",
			rec.Boss, total, rec.Wins, rec.Losses, rate)
		totalWins += rec.Wins
		totalLosses += rec.Losses
	}

	overall := totalWins + totalLosses
	fmt.Fprintf(stdout, "Overall: %d fights, %d wins, %d losses (%.1f%% win rate)\n",
		overall, totalWins, totalLosses, float64(totalWins)/float64(overall)*100)
	return nil
}
