package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dedupeApply bool

func init() {
	dedupeCmd.Flags().BoolVar(&dedupeApply, "apply", false, "delete the duplicates instead of listing them")
	rootCmd.AddCommand(dedupeCmd)
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe [--apply]",
	Short: "Removes races sharing a date and name, keeping the one with the most participants.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, closeFn, err := setup(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		groups, err := e.store.DuplicateRaces(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(groups) == 0 {
			fmt.Fprintln(out, "no duplicate races")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleRounded)
		t.SetTitle("Duplicate races")
		t.AppendHeader(table.Row{"Action", "ID", "Date", "Name", "Participants"})

		var drop []string
		for _, g := range groups {
			t.AppendRow(table.Row{"keep", g.Keep.ID, g.Keep.Date, g.Keep.Name, g.Keep.ParticipantCount})
			for _, r := range g.Drop {
				t.AppendRow(table.Row{"drop", r.ID, r.Date, r.Name, r.ParticipantCount})
				drop = append(drop, r.ID)
			}
			t.AppendSeparator()
		}
		t.Render()
		fmt.Fprintf(out, "%d groups, %d races to drop\n", len(groups), len(drop))

		if !dedupeApply {
			fmt.Fprintln(out, "dry run, pass --apply to delete")
			return nil
		}
		n, err := e.store.DeleteRaces(ctx, drop)
		if err != nil {
			return err
		}
		e.log.Info("duplicate races deleted", zap.Int("races", n))
		return nil
	},
}
