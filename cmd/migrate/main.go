// cmd/migrate/main.go
// Copies the legacy SQLite results database (and optionally its auth database)
// into the configured database.
//
// Usage:
//
//	LEGACY_SQLITE_PATH=backend/database/cycling_data.db \
//	LEGACY_AUTH_PATH=backend/database/auth.db \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	_ "modernc.org/sqlite"

	"github.com/padraicbc/cyclingapi/config"
	bundb "github.com/padraicbc/cyclingapi/db"
	"github.com/padraicbc/cyclingapi/models"
)

const batchSize = 500

func main() {
	ctx := context.Background()
	cfg := config.Load()

	src, err := openLegacy(ctx, cfg.LegacySQLitePath)
	if err != nil {
		log.Fatalf("open legacy database: %v", err)
	}
	defer src.Close()
	log.Printf("reading %s", cfg.LegacySQLitePath)

	var auth *sql.DB
	if _, err := os.Stat(cfg.LegacyAuthPath); err == nil {
		if auth, err = openLegacy(ctx, cfg.LegacyAuthPath); err != nil {
			log.Fatalf("open legacy auth database: %v", err)
		}
		defer auth.Close()
		log.Printf("reading users from %s", cfg.LegacyAuthPath)
	}

	dst := bundb.Setup(cfg.DB, cfg.Debug)
	defer dst.Close()

	if err := migrate(ctx, src, auth, dst, log.Printf); err != nil {
		log.Fatal(err)
	}
	log.Println("migration complete")
}

func openLegacy(ctx context.Context, path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// migrate copies every legacy table into dst. auth may be nil.
func migrate(ctx context.Context, src, auth *sql.DB, dst *bun.DB, logf func(string, ...any)) error {
	if err := bundb.CreateTables(ctx, dst); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	steps := []struct {
		name string
		fn   func() (int, error)
	}{
		{"races", func() (int, error) { return migrateRaces(ctx, src, dst) }},
		{"cyclists", func() (int, error) { return migrateCyclists(ctx, src, dst) }},
		{"race_results", func() (int, error) { return migrateResults(ctx, src, dst) }},
		{"scraping_info", func() (int, error) { return migrateScrapingInfo(ctx, src, dst) }},
	}
	if auth != nil {
		steps = append(steps, struct {
			name string
			fn   func() (int, error)
		}{"users", func() (int, error) { return migrateUsers(ctx, auth, dst) }})
	}

	for _, s := range steps {
		n, err := s.fn()
		if err != nil {
			return fmt.Errorf("migrate %s: %w", s.name, err)
		}
		logf("%-15s  %d rows read", s.name, n)
	}

	if dst.Dialect().Name() == dialect.PG {
		resetSequences(ctx, dst, logf)
	}
	return nil
}

// --- helpers ---

func nullStr(n sql.NullString) *string {
	if !n.Valid || strings.TrimSpace(n.String) == "" {
		return nil
	}
	return &n.String
}

// legacyTime parses the timestamp formats SQLite and Python wrote.
func legacyTime(n sql.NullString) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999", "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, strings.TrimSpace(n.String)); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// rawCells decodes a raw_data_json column. Non-string cells are kept in their
// JSON text form and nulls become empty cells.
func rawCells(n sql.NullString) []string {
	if !n.Valid || n.String == "" {
		return nil
	}
	var cells []string
	if err := json.Unmarshal([]byte(n.String), &cells); err == nil {
		return cells
	}
	var anyCells []json.RawMessage
	if err := json.Unmarshal([]byte(n.String), &anyCells); err != nil {
		return nil
	}
	cells = make([]string, len(anyCells))
	for i, c := range anyCells {
		var s string
		if json.Unmarshal(c, &s) == nil {
			cells[i] = s
		} else {
			cells[i] = string(c)
		}
	}
	return cells
}

// bulkInsert inserts a batch, skipping rows that already exist (idempotent re-runs).
func bulkInsert[T any](ctx context.Context, dst *bun.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := dst.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx)
	return err
}

// copyRows runs query on src and inserts the scanned rows into dst in batches.
func copyRows[T any](ctx context.Context, src *sql.DB, dst *bun.DB, query string, scan func(*sql.Rows) (T, error)) (int, error) {
	rows, err := src.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	batch := make([]T, 0, batchSize)
	total := 0
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return total, err
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := bulkInsert(ctx, dst, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return total, err
	}
	if err := bulkInsert(ctx, dst, batch); err != nil {
		return total, err
	}
	return total + len(batch), nil
}

// --- per-table migrations ---

func migrateRaces(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst,
		`SELECT r.id, r.date, r.name, r.created_at, r.updated_at,
		        (SELECT COUNT(*) FROM race_results rr WHERE rr.race_id = r.id)
		 FROM races r`,
		func(rows *sql.Rows) (models.Race, error) {
			var (
				r                models.Race
				created, updated sql.NullString
			)
			err := rows.Scan(&r.ID, &r.Date, &r.Name, &created, &updated, &r.ParticipantCount)
			r.CreatedAt = legacyTime(created)
			r.UpdatedAt = legacyTime(updated)
			return r, err
		})
}

func migrateCyclists(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst,
		"SELECT uci_id, first_name, last_name, region, club, club_raw, updated_at FROM cyclists",
		func(rows *sql.Rows) (models.Cyclist, error) {
			var (
				c                     models.Cyclist
				first, last           sql.NullString
				region, club, clubRaw sql.NullString
				updated               sql.NullString
			)
			err := rows.Scan(&c.UCIID, &first, &last, &region, &club, &clubRaw, &updated)
			c.FirstName = first.String
			c.LastName = last.String
			c.Region = nullStr(region)
			c.Club = nullStr(club)
			c.ClubRaw = nullStr(clubRaw)
			c.UpdatedAt = legacyTime(updated)
			return c, err
		})
}

// migrateResults skips results whose race is missing.
func migrateResults(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst,
		`SELECT rr.race_id, rr.uci_id, rr.rank, rr.raw_data_json
		 FROM race_results rr
		 WHERE rr.race_id IN (SELECT id FROM races)
		 ORDER BY rr.id`,
		func(rows *sql.Rows) (models.RaceResult, error) {
			var (
				r    models.RaceResult
				rank sql.NullInt64
				raw  sql.NullString
			)
			err := rows.Scan(&r.RaceID, &r.UCIID, &rank, &raw)
			r.Rank = int(rank.Int64)
			r.RawData = rawCells(raw)
			return r, err
		})
}

func migrateScrapingInfo(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst,
		"SELECT id, timestamp, total_races, total_racers FROM scraping_info",
		func(rows *sql.Rows) (models.ScrapingInfo, error) {
			var (
				si models.ScrapingInfo
				ts sql.NullString
			)
			err := rows.Scan(&si.ID, &ts, &si.TotalRaces, &si.TotalRacers)
			si.Timestamp = legacyTime(ts)
			return si, err
		})
}

// migrateUsers copies active users. Their bcrypt hashes are used as is.
func migrateUsers(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst,
		"SELECT username, password_hash, created_at FROM users WHERE is_active",
		func(rows *sql.Rows) (models.User, error) {
			var (
				u       models.User
				created sql.NullString
			)
			err := rows.Scan(&u.Username, &u.Password, &created)
			u.CreatedAt = legacyTime(created)
			return u, err
		})
}

// resetSequences advances each PG sequence whose ids were copied to MAX(id) so new inserts don't conflict.
func resetSequences(ctx context.Context, dst *bun.DB, logf func(string, ...any)) {
	seqs := []struct{ seq, table, col string }{
		{"scraping_info_id_seq", "scraping_info", "id"},
	}
	for _, s := range seqs {
		q := fmt.Sprintf(
			"SELECT setval('%s', COALESCE((SELECT MAX(%s) FROM %s), 1))",
			s.seq, s.col, s.table,
		)
		if _, err := dst.ExecContext(ctx, q); err != nil {
			logf("reset seq %s: %v", s.seq, err)
		}
	}
}
