package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/padraicbc/cyclingapi/models"
)

var (
	cleanupDays  int
	cleanupApply bool
)

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 547, "races older than this many days are removed")
	cleanupCmd.Flags().BoolVar(&cleanupApply, "apply", false, "delete the races instead of listing them")
	rootCmd.AddCommand(cleanupCmd)
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [--days N] [--apply]",
	Short: "Removes races older than the retention window together with their results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanupDays < 1 {
			return fmt.Errorf("--days must be positive")
		}
		ctx := cmd.Context()
		e, closeFn, err := setup(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		cutoff := time.Now().AddDate(0, 0, -cleanupDays)
		stale, unparsable, err := e.store.StaleRaces(ctx, cutoff)
		if err != nil {
			return err
		}
		if unparsable > 0 {
			e.log.Warn("races with unparsable dates kept", zap.Int("count", unparsable))
		}

		out := cmd.OutOrStdout()
		if len(stale) == 0 {
			fmt.Fprintf(out, "no races before %s\n", cutoff.Format("2006-01-02"))
			return nil
		}

		ids := raceIDs(stale)
		results, err := e.store.CountResults(ctx, ids)
		if err != nil {
			return err
		}
		writeRaces(out, fmt.Sprintf("Races before %s", cutoff.Format("2006-01-02")), stale)
		fmt.Fprintf(out, "%d races, %d results\n", len(stale), results)

		if !cleanupApply {
			fmt.Fprintln(out, "dry run, pass --apply to delete")
			return nil
		}
		n, err := e.store.DeleteRaces(ctx, ids)
		if err != nil {
			return err
		}
		e.log.Info("stale races deleted", zap.Int("races", n), zap.Int("results", results))
		return nil
	},
}

func raceIDs(races []models.Race) []string {
	ids := make([]string, len(races))
	for i, r := range races {
		ids[i] = r.ID
	}
	return ids
}

func writeRaces(w io.Writer, title string, races []models.Race) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"ID", "Date", "Name", "Participants"})
	for _, r := range races {
		t.AppendRow(table.Row{r.ID, r.Date, r.Name, r.ParticipantCount})
	}
	t.Render()
}
