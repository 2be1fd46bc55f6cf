package main

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/cyclingapi/config"
	bundb "github.com/padraicbc/cyclingapi/db"
	"github.com/padraicbc/cyclingapi/models"
)

const legacySchema = `
CREATE TABLE races (id TEXT PRIMARY KEY, date TEXT, name TEXT, participant_count INTEGER DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP, updated_at DATETIME DEFAULT CURRENT_TIMESTAMP);
CREATE TABLE cyclists (uci_id TEXT PRIMARY KEY, first_name TEXT, last_name TEXT, region TEXT, club TEXT,
	club_raw TEXT, updated_at DATETIME DEFAULT CURRENT_TIMESTAMP);
CREATE TABLE race_results (id INTEGER PRIMARY KEY AUTOINCREMENT, race_id TEXT, uci_id TEXT, rank INTEGER,
	raw_data_json TEXT);
CREATE TABLE scraping_info (id INTEGER PRIMARY KEY AUTOINCREMENT, timestamp TEXT, total_races INTEGER,
	total_racers INTEGER);

INSERT INTO races (id, date, name, created_at) VALUES
	('race_a', '12 mai 2024', 'GP A', '2024-05-13 08:00:00'),
	('race_b', '19 mai 2024', 'GP B', '2024-05-20 08:00:00');
INSERT INTO cyclists (uci_id, first_name, last_name, region, club, club_raw) VALUES
	('100', 'Jean', 'DUPONT', 'PDL', 'VC ST SEBASTIEN', '5244197 VC ST SEBASTIEN'),
	('101', 'Luc', 'MARTIN', '', NULL, NULL);
INSERT INTO race_results (race_id, uci_id, rank, raw_data_json) VALUES
	('race_a', '100', 1, '["1","100","DUPONT","Jean"]'),
	('race_a', '101', 2, '[2,"101","MARTIN","Luc"]'),
	('race_b', '100', 3, '["3","100","DUPONT","Jean"]'),
	('race_gone', '100', 1, '[]');
INSERT INTO scraping_info (timestamp, total_races, total_racers) VALUES
	('2024-05-20T09:30:00.123456', 2, 2);
`

const legacyAuthSchema = `
CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL, is_admin BOOLEAN DEFAULT FALSE, is_active BOOLEAN DEFAULT TRUE,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP);
INSERT INTO users (username, password_hash, is_active) VALUES
	('admin', '$2b$12$abcdefghijklmnopqrstuu', 1),
	('gone', '$2b$12$abcdefghijklmnopqrstuu', 0);
`

func legacyDB(t *testing.T, schema string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	src := legacyDB(t, legacySchema)
	auth := legacyDB(t, legacyAuthSchema)

	dst, err := bundb.Open(ctx, config.Database{Driver: "sqlite", SQLitePath: ":memory:"}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dst.Close() })

	logf := func(string, ...any) {}
	require.NoError(t, migrate(ctx, src, auth, dst, logf))
	// a second run inserts nothing new
	require.NoError(t, migrate(ctx, src, auth, dst, logf))

	var races []models.Race
	require.NoError(t, dst.NewSelect().Model(&races).Order("id").Scan(ctx))
	require.Len(t, races, 2)
	assert.Equal(t, "GP A", races[0].Name)
	assert.Equal(t, 2, races[0].ParticipantCount)
	assert.Equal(t, 2024, races[0].CreatedAt.Year())

	var results []models.RaceResult
	require.NoError(t, dst.NewSelect().Model(&results).Order("race_id", "rank").Scan(ctx))
	require.Len(t, results, 3)
	assert.Equal(t, []string{"1", "100", "DUPONT", "Jean"}, results[0].RawData)
	assert.Equal(t, []string{"2", "101", "MARTIN", "Luc"}, results[1].RawData)

	var luc models.Cyclist
	require.NoError(t, dst.NewSelect().Model(&luc).Where("uci_id = ?", "101").Scan(ctx))
	assert.Nil(t, luc.Region)
	assert.Nil(t, luc.Club)

	var info []models.ScrapingInfo
	require.NoError(t, dst.NewSelect().Model(&info).Scan(ctx))
	require.Len(t, info, 1)
	assert.Equal(t, 2, info[0].TotalRacers)
	assert.Equal(t, 9, info[0].Timestamp.Hour())

	var users []models.User
	require.NoError(t, dst.NewSelect().Model(&users).Scan(ctx))
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)
}

func TestRawCells(t *testing.T) {
	assert.Nil(t, rawCells(sql.NullString{}))
	assert.Equal(t, []string{"1", "x"}, rawCells(sql.NullString{String: `["1","x"]`, Valid: true}))
	assert.Equal(t, []string{"1", "", "x"}, rawCells(sql.NullString{String: `[1,null,"x"]`, Valid: true}))
	assert.Nil(t, rawCells(sql.NullString{String: `oops`, Valid: true}))
}
