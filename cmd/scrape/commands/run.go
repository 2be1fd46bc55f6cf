package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/padraicbc/cyclingapi/fetch"
	"github.com/padraicbc/cyclingapi/locate"
	"github.com/padraicbc/cyclingapi/scraper"
)

var runMaxRaces int

func init() {
	runCmd.Flags().IntVar(&runMaxRaces, "max-races", -1, "cap on race pages visited (overrides SCRAPE_MAX_RACES, 0 means no cap)")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--max-races N]",
	Short: "Discovers result pages and stores every leaderboard found.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, closeFn, err := setup(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		cfg := e.cfg
		if runMaxRaces >= 0 {
			cfg.MaxRaces = runMaxRaces
		}

		loc, err := locate.New(cfg.BaseURL, cfg.ResultsPath, cfg.Selectors)
		if err != nil {
			return err
		}
		client := fetch.New(fetch.Options{
			Timeout:       cfg.Timeout,
			MaxRetries:    cfg.MaxRetries,
			BackoffFactor: cfg.BackoffFactor,
			UserAgents:    cfg.UserAgents,
		}, e.log)

		e.log.Info("scrape starting", zap.String("url", cfg.ResultsURL()), zap.Int("max_pages", cfg.MaxPages), zap.Int("max_races", cfg.MaxRaces))
		report, err := scraper.New(scraper.OptionsFrom(cfg), client, e.store, loc, e.log).Run(ctx)
		if err != nil {
			return err
		}
		scraper.WriteSummary(cmd.OutOrStdout(), report)
		return nil
	},
}
