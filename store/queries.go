package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/padraicbc/cyclingapi/models"
)

// SearchLimit caps SearchCyclists results.
const SearchLimit = 50

// Participant is a cyclist as ranked in one race.
type Participant struct {
	UCIID     string   `bun:"uci_id" json:"uciID"`
	FirstName string   `bun:"first_name" json:"firstName"`
	LastName  string   `bun:"last_name" json:"lastName"`
	Region    *string  `bun:"region" json:"region,omitempty"`
	Club      *string  `bun:"club" json:"club,omitempty"`
	Rank      int      `bun:"rank" json:"rank"`
	Category  *string  `bun:"category" json:"category,omitempty"`
	Team      *string  `bun:"team" json:"team,omitempty"`
	RawData   []string `bun:"raw_data" json:"rawData"`
}

// RaceDetail is a race with its leaderboard.
type RaceDetail struct {
	models.Race
	Participants []Participant `json:"participants"`
}

// CyclistSummary is a cyclist with the number of races they appear in.
type CyclistSummary struct {
	UCIID      string    `bun:"uci_id" json:"uciID"`
	FirstName  string    `bun:"first_name" json:"firstName"`
	LastName   string    `bun:"last_name" json:"lastName"`
	Region     *string   `bun:"region" json:"region,omitempty"`
	Club       *string   `bun:"club" json:"club,omitempty"`
	ClubRaw    *string   `bun:"club_raw" json:"clubRaw,omitempty"`
	UpdatedAt  time.Time `bun:"updated_at" json:"updatedAt"`
	TotalRaces int       `bun:"total_races" json:"totalRaces"`
}

// HistoryEntry is one result of a cyclist.
type HistoryEntry struct {
	RaceID   string   `bun:"race_id" json:"raceID"`
	Date     string   `bun:"date" json:"date"`
	RaceName string   `bun:"race_name" json:"raceName"`
	Rank     int      `bun:"rank" json:"rank"`
	Category *string  `bun:"category" json:"category,omitempty"`
	RawData  []string `bun:"raw_data" json:"rawData"`
}

// ListRaces returns races newest first.
func (s *Store) ListRaces(ctx context.Context, limit, offset int) ([]models.Race, error) {
	var races []models.Race
	q := s.db.NewSelect().Model(&races).Order("created_at DESC", "id")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	return races, nil
}

const participantsSQL = `
SELECT
	cy.uci_id, cy.first_name, cy.last_name, cy.region, cy.club,
	rr.rank, rr.category, rr.team, rr.raw_data
FROM race_results rr
INNER JOIN cyclists cy ON rr.uci_id = cy.uci_id
WHERE rr.race_id = ?
ORDER BY rr.rank, cy.last_name
`

// RaceWithParticipants returns race id and its participants ordered by rank.
func (s *Store) RaceWithParticipants(ctx context.Context, id string) (*RaceDetail, error) {
	detail := new(RaceDetail)
	err := s.db.NewSelect().Model(&detail.Race).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("race %s: %w", id, err)
	}

	detail.Participants = []Participant{}
	if err := s.db.NewRaw(participantsSQL, id).Scan(ctx, &detail.Participants); err != nil {
		return nil, fmt.Errorf("participants of %s: %w", id, err)
	}
	return detail, nil
}

const cyclistSummarySQL = `
SELECT
	cy.uci_id, cy.first_name, cy.last_name, cy.region, cy.club, cy.club_raw, cy.updated_at,
	COUNT(rr.id) AS total_races
FROM cyclists cy
LEFT JOIN race_results rr ON cy.uci_id = rr.uci_id
`

const cyclistGroupSQL = `
GROUP BY cy.uci_id, cy.first_name, cy.last_name, cy.region, cy.club, cy.club_raw, cy.updated_at
`

// SearchCyclists matches query against first, last and full names, case
// insensitively. Most active cyclists come first.
func (s *Store) SearchCyclists(ctx context.Context, query string) ([]CyclistSummary, error) {
	term := "%" + strings.ToUpper(strings.TrimSpace(query)) + "%"
	q := cyclistSummarySQL + `
WHERE UPPER(cy.first_name) LIKE ?
   OR UPPER(cy.last_name) LIKE ?
   OR UPPER(cy.first_name || ' ' || cy.last_name) LIKE ?
   OR UPPER(cy.last_name || ' ' || cy.first_name) LIKE ?` + cyclistGroupSQL + `
ORDER BY total_races DESC, cy.last_name, cy.first_name
LIMIT ?`

	out := []CyclistSummary{}
	if err := s.db.NewRaw(q, term, term, term, term, SearchLimit).Scan(ctx, &out); err != nil {
		return nil, fmt.Errorf("search cyclists %q: %w", query, err)
	}
	return out, nil
}

// Cyclist returns one cyclist with their race count.
func (s *Store) Cyclist(ctx context.Context, uciID string) (*CyclistSummary, error) {
	var out []CyclistSummary
	q := cyclistSummarySQL + `WHERE cy.uci_id = ?` + cyclistGroupSQL
	if err := s.db.NewRaw(q, uciID).Scan(ctx, &out); err != nil {
		return nil, fmt.Errorf("cyclist %s: %w", uciID, err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

const historySQL = `
SELECT
	rc.id AS race_id, rc.date, rc.name AS race_name,
	rr.rank, rr.category, rr.raw_data
FROM race_results rr
INNER JOIN races rc ON rr.race_id = rc.id
WHERE rr.uci_id = ?
ORDER BY rc.created_at DESC, rc.id
`

// CyclistHistory returns every result of uciID, newest race first.
func (s *Store) CyclistHistory(ctx context.Context, uciID string) ([]HistoryEntry, error) {
	out := []HistoryEntry{}
	if err := s.db.NewRaw(historySQL, uciID).Scan(ctx, &out); err != nil {
		return nil, fmt.Errorf("history of %s: %w", uciID, err)
	}
	return out, nil
}
