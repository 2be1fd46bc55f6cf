package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/padraicbc/cyclingapi/frdate"
	"github.com/padraicbc/cyclingapi/models"
)

// DuplicateGroup is a set of races sharing a date and name. Keep has the
// most participants.
type DuplicateGroup struct {
	Keep models.Race
	Drop []models.Race
}

// StaleRaces returns the races dated before cutoff. Races whose date cannot
// be parsed are counted in unparsable and never returned.
func (s *Store) StaleRaces(ctx context.Context, cutoff time.Time) (stale []models.Race, unparsable int, err error) {
	var races []models.Race
	if err := s.db.NewSelect().Model(&races).Order("id").Scan(ctx); err != nil {
		return nil, 0, fmt.Errorf("load races: %w", err)
	}
	for _, r := range races {
		d, err := frdate.Parse(r.Date)
		if err != nil {
			unparsable++
			continue
		}
		if d.Before(cutoff) {
			stale = append(stale, r)
		}
	}
	return stale, unparsable, nil
}

// DuplicateRaces groups races by case-insensitive trimmed date and name.
// Only groups holding more than one race are returned.
func (s *Store) DuplicateRaces(ctx context.Context) ([]DuplicateGroup, error) {
	var races []models.Race
	if err := s.db.NewSelect().Model(&races).Order("created_at", "id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load races: %w", err)
	}

	var order []string
	groups := map[string][]models.Race{}
	for _, r := range races {
		k := strings.ToLower(strings.TrimSpace(r.Date)) + "|" + strings.ToLower(strings.TrimSpace(r.Name))
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	var out []DuplicateGroup
	for _, k := range order {
		g := groups[k]
		if len(g) < 2 {
			continue
		}
		// stable keeps the oldest race first among equal counts
		sort.SliceStable(g, func(i, j int) bool { return g[i].ParticipantCount > g[j].ParticipantCount })
		out = append(out, DuplicateGroup{Keep: g[0], Drop: g[1:]})
	}
	return out, nil
}

// DeleteRaces removes races and their results. It returns the number of
// races deleted.
func (s *Store) DeleteRaces(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.RaceResult)(nil)).
			Where("race_id IN (?)", bun.In(ids)).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete results: %w", err)
		}
		res, err := tx.NewDelete().Model((*models.Race)(nil)).
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete races: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return int(n), err
}

// CountResults returns the number of results attached to the races ids.
func (s *Store) CountResults(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.db.NewSelect().Model((*models.RaceResult)(nil)).Where("race_id IN (?)", bun.In(ids)).Count(ctx)
}
