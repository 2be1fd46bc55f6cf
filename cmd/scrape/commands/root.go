package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/padraicbc/cyclingapi/config"
	"github.com/padraicbc/cyclingapi/db"
	applog "github.com/padraicbc/cyclingapi/logger"
	"github.com/padraicbc/cyclingapi/store"
)

var rootCmd = &cobra.Command{
	Use:          "scrape",
	Short:        "scrape collects race results and maintains the results database.",
	SilenceUsage: true,
}

// ExecuteContext runs the command line with ctx, exiting non-zero on error.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand needs.
type env struct {
	cfg   *config.ScrapeConfig
	log   *zap.Logger
	store *store.Store
}

func setup(ctx context.Context) (*env, func(), error) {
	cfg := config.LoadScrape()

	log, err := applog.NewConsole(cfg.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}

	bdb, err := db.Open(ctx, cfg.DB, cfg.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.CreateTables(ctx, bdb); err != nil {
		_ = bdb.Close()
		return nil, nil, err
	}

	closeFn := func() {
		_ = bdb.Close()
		_ = log.Sync()
	}
	return &env{cfg: cfg, log: log, store: store.New(bdb, log)}, closeFn, nil
}
