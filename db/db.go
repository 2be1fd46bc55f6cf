package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	_ "modernc.org/sqlite"

	"github.com/padraicbc/cyclingapi/config"
	"github.com/padraicbc/cyclingapi/models"
)

// Setup opens the configured database and exits the process when it is unreachable.
func Setup(cfg config.Database, debug bool) *bun.DB {
	db, err := Open(context.Background(), cfg, debug)
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	return db
}

// Open connects to PostgreSQL or SQLite depending on cfg.Driver and pings it.
func Open(ctx context.Context, cfg config.Database, debug bool) (*bun.DB, error) {
	var db *bun.DB
	switch cfg.Driver {
	case "sqlite":
		sqldb, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		// A single connection keeps in-memory databases alive and serialises writers.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.PostgresDSN())))
		db = bun.NewDB(sqldb, pgdialect.New())
	}

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// CreateTables creates all tables in dependency order.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Race)(nil),
		(*models.Cyclist)(nil),
		(*models.ScrapingInfo)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	_, err := db.NewCreateTable().Model((*models.RaceResult)(nil)).
		IfNotExists().
		ForeignKey(`("race_id") REFERENCES "races" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("creating table for %T: %w", (*models.RaceResult)(nil), err)
	}

	indexes := []struct {
		name   string
		model  interface{}
		column string
	}{
		{"race_results_uci_id_idx", (*models.RaceResult)(nil), "uci_id"},
		{"races_date_idx", (*models.Race)(nil), "date"},
		{"cyclists_last_name_idx", (*models.Cyclist)(nil), "last_name"},
	}
	for _, ix := range indexes {
		_, err := db.NewCreateIndex().Model(ix.model).Index(ix.name).Column(ix.column).IfNotExists().Exec(ctx)
		if err != nil {
			return fmt.Errorf("creating index %s: %w", ix.name, err)
		}
	}

	return nil
}
