// Package store persists races, cyclists and results with bun.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/cyclingapi/models"
	"github.com/padraicbc/cyclingapi/participant"
	"github.com/padraicbc/cyclingapi/raceid"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("store: not found")

// Store wraps the bun connection shared by the scraper, the API and the tools.
type Store struct {
	db  *bun.DB
	log *zap.Logger
}

// New returns a Store using db.
func New(db *bun.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// DB exposes the underlying connection.
func (s *Store) DB() *bun.DB { return s.db }

// DatabaseStats is a snapshot of the table sizes.
type DatabaseStats struct {
	TotalRaces      int          `json:"totalRaces"`
	TotalCyclists   int          `json:"totalCyclists"`
	TotalResults    int          `json:"totalResults"`
	AvgParticipants float64      `json:"avgParticipants"`
	LatestRace      *models.Race `json:"latestRace,omitempty"`
}

// SaveResult counts the rows a SaveRace call created.
type SaveResult struct {
	NewCyclists int
	NewResults  int
}

// RaceExists reports whether a race with id is stored.
func (s *Store) RaceExists(ctx context.Context, id string) (bool, error) {
	return s.db.NewSelect().Model((*models.Race)(nil)).Where("id = ?", id).Exists(ctx)
}

// AddOrUpdateRace upserts race by id.
func (s *Store) AddOrUpdateRace(ctx context.Context, race *models.Race) error {
	return upsertRace(ctx, s.db, race)
}

// AddOrUpdateCyclist upserts the cyclist of rec and reports whether it was new.
func (s *Store) AddOrUpdateCyclist(ctx context.Context, rec participant.Record) (bool, error) {
	return upsertCyclist(ctx, s.db, rec)
}

// AddRaceResult inserts the result of rec in raceID. An existing
// (race, cyclist) pair is left untouched and reported as not inserted.
func (s *Store) AddRaceResult(ctx context.Context, raceID string, rec participant.Record) (bool, error) {
	return insertResult(ctx, s.db, raceID, rec)
}

// SaveRace writes race, its cyclists and its results in one transaction and
// sets the race participant count.
func (s *Store) SaveRace(ctx context.Context, race *models.Race, recs []participant.Record) (SaveResult, error) {
	var res SaveResult
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res = SaveResult{}
		race.ParticipantCount = len(recs)
		if err := upsertRace(ctx, tx, race); err != nil {
			return err
		}
		for _, rec := range recs {
			created, err := upsertCyclist(ctx, tx, rec)
			if err != nil {
				return err
			}
			if created {
				res.NewCyclists++
			}
			inserted, err := insertResult(ctx, tx, race.ID, rec)
			if err != nil {
				return err
			}
			if inserted {
				res.NewResults++
			}
		}

		n, err := tx.NewSelect().Model((*models.RaceResult)(nil)).Where("race_id = ?", race.ID).Count(ctx)
		if err != nil {
			return fmt.Errorf("count results of %s: %w", race.ID, err)
		}
		race.ParticipantCount = n
		_, err = tx.NewUpdate().Model(race).Column("participant_count").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return SaveResult{}, fmt.Errorf("save race %s: %w", race.ID, err)
	}
	return res, nil
}

// RaceKeys returns the name/date dedup key of every stored race.
func (s *Store) RaceKeys(ctx context.Context) (map[string]bool, error) {
	var races []models.Race
	if err := s.db.NewSelect().Model(&races).Column("name", "date").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load race keys: %w", err)
	}
	keys := make(map[string]bool, len(races))
	for _, r := range races {
		keys[raceid.Key(r.Name, r.Date)] = true
	}
	return keys, nil
}

// Stats returns the current table sizes and the most recently created race.
func (s *Store) Stats(ctx context.Context) (DatabaseStats, error) {
	var (
		st  DatabaseStats
		err error
	)
	if st.TotalRaces, err = s.db.NewSelect().Model((*models.Race)(nil)).Count(ctx); err != nil {
		return st, fmt.Errorf("count races: %w", err)
	}
	if st.TotalCyclists, err = s.db.NewSelect().Model((*models.Cyclist)(nil)).Count(ctx); err != nil {
		return st, fmt.Errorf("count cyclists: %w", err)
	}
	if st.TotalResults, err = s.db.NewSelect().Model((*models.RaceResult)(nil)).Count(ctx); err != nil {
		return st, fmt.Errorf("count results: %w", err)
	}

	var avg sql.NullFloat64
	err = s.db.NewSelect().Model((*models.Race)(nil)).
		ColumnExpr("AVG(participant_count)").
		Where("participant_count > 0").
		Scan(ctx, &avg)
	if err != nil {
		return st, fmt.Errorf("average participants: %w", err)
	}
	st.AvgParticipants = avg.Float64

	latest := new(models.Race)
	err = s.db.NewSelect().Model(latest).Order("created_at DESC", "id DESC").Limit(1).Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return st, fmt.Errorf("latest race: %w", err)
	default:
		st.LatestRace = latest
	}
	return st, nil
}

// UpdateScrapingInfo appends a scraping_info row with the given totals.
func (s *Store) UpdateScrapingInfo(ctx context.Context, totalRaces, totalRacers int) error {
	info := &models.ScrapingInfo{
		Timestamp:   time.Now().UTC(),
		TotalRaces:  totalRaces,
		TotalRacers: totalRacers,
	}
	if _, err := s.db.NewInsert().Model(info).Exec(ctx); err != nil {
		return fmt.Errorf("update scraping info: %w", err)
	}
	return nil
}

// LatestScrapingInfo returns the newest scraping_info row.
func (s *Store) LatestScrapingInfo(ctx context.Context) (*models.ScrapingInfo, error) {
	info := new(models.ScrapingInfo)
	err := s.db.NewSelect().Model(info).Order("timestamp DESC", "id DESC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return info, err
}

func upsertRace(ctx context.Context, db bun.IDB, race *models.Race) error {
	race.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().Model(race).
		On("CONFLICT (id) DO UPDATE").
		Set("date = EXCLUDED.date").
		Set("name = EXCLUDED.name").
		Set("url = EXCLUDED.url").
		Set("location = EXCLUDED.location").
		Set("categories = EXCLUDED.categories").
		Set("participant_count = EXCLUDED.participant_count").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert race %s: %w", race.ID, err)
	}
	return nil
}

func upsertCyclist(ctx context.Context, db bun.IDB, rec participant.Record) (bool, error) {
	exists, err := db.NewSelect().Model((*models.Cyclist)(nil)).Where("uci_id = ?", rec.UCIID).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("lookup cyclist %s: %w", rec.UCIID, err)
	}

	c := &models.Cyclist{
		UCIID:     rec.UCIID,
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Region:    optional(rec.Region),
		Club:      optional(rec.Club),
		ClubRaw:   optional(rec.ClubRaw),
		UpdatedAt: time.Now().UTC(),
	}
	_, err = db.NewInsert().Model(c).
		On("CONFLICT (uci_id) DO UPDATE").
		Set("first_name = EXCLUDED.first_name").
		Set("last_name = EXCLUDED.last_name").
		Set("region = EXCLUDED.region").
		Set("club = EXCLUDED.club").
		Set("club_raw = EXCLUDED.club_raw").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("upsert cyclist %s: %w", rec.UCIID, err)
	}
	return !exists, nil
}

func insertResult(ctx context.Context, db bun.IDB, raceID string, rec participant.Record) (bool, error) {
	r := &models.RaceResult{
		RaceID:   raceID,
		UCIID:    rec.UCIID,
		Rank:     rec.Rank,
		Category: optional(rec.Category),
		Team:     optional(rec.Team),
		RawData:  rec.RawData,
	}
	res, err := db.NewInsert().Model(r).
		On("CONFLICT (race_id, uci_id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert result %s/%s: %w", raceID, rec.UCIID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
