package scraper

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/padraicbc/cyclingapi/store"
)

// Report is what a run produced.
type Report struct {
	Stats       Stats
	DB          store.DatabaseStats
	Elapsed     time.Duration
	Interrupted bool
}

// WriteSummary renders the run counters and the database snapshot as tables.
func WriteSummary(w io.Writer, r Report) {
	title := "Scrape summary"
	if r.Interrupted {
		title += " (interrupted)"
	}

	run := table.NewWriter()
	run.SetOutputMirror(w)
	run.SetStyle(table.StyleRounded)
	run.SetTitle(title)
	run.AppendHeader(table.Row{"Counter", "Value"})
	run.AppendRows([]table.Row{
		{"New races", r.Stats.NewRaces},
		{"Skipped races", r.Stats.SkippedRaces},
		{"New cyclists", r.Stats.NewCyclists},
		{"New results", r.Stats.NewResults},
		{"Rejected rows", r.Stats.RejectedRows},
		{"Pages without table", r.Stats.NoTable},
		{"Errors", r.Stats.Errors},
		{"Listing pages", r.Stats.PagesScraped},
	})
	run.AppendFooter(table.Row{"Elapsed", r.Elapsed.Round(time.Second).String()})
	run.Render()

	db := table.NewWriter()
	db.SetOutputMirror(w)
	db.SetStyle(table.StyleRounded)
	db.SetTitle("Database")
	db.AppendHeader(table.Row{"Total", "Value"})
	db.AppendRows([]table.Row{
		{"Races", r.DB.TotalRaces},
		{"Cyclists", r.DB.TotalCyclists},
		{"Results", r.DB.TotalResults},
		{"Avg participants", fmt.Sprintf("%.1f", r.DB.AvgParticipants)},
	})
	if r.DB.LatestRace != nil {
		db.AppendRow(table.Row{"Latest race", r.DB.LatestRace.Name + " (" + r.DB.LatestRace.Date + ")"})
	}
	db.Render()
}

// LogSummary logs the report as structured fields.
func LogSummary(log *zap.Logger, r Report) {
	log.Info("scrape summary",
		zap.Bool("interrupted", r.Interrupted),
		zap.Int("new_races", r.Stats.NewRaces),
		zap.Int("skipped_races", r.Stats.SkippedRaces),
		zap.Int("new_cyclists", r.Stats.NewCyclists),
		zap.Int("new_results", r.Stats.NewResults),
		zap.Int("rejected_rows", r.Stats.RejectedRows),
		zap.Int("no_table", r.Stats.NoTable),
		zap.Int("errors", r.Stats.Errors),
		zap.Int("pages_scraped", r.Stats.PagesScraped),
		zap.Int("total_races", r.DB.TotalRaces),
		zap.Int("total_cyclists", r.DB.TotalCyclists),
		zap.Int("total_results", r.DB.TotalResults),
		zap.Duration("elapsed", r.Elapsed),
	)
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
