package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ScrapingInfo records the database totals at the end of a scrape run.
type ScrapingInfo struct {
	bun.BaseModel `bun:"table:scraping_info,alias:si"`

	ID          int       `bun:"id,pk,autoincrement" json:"id"`
	Timestamp   time.Time `bun:"timestamp,notnull" json:"timestamp"`
	TotalRaces  int       `bun:"total_races,notnull" json:"totalRaces"`
	TotalRacers int       `bun:"total_racers,notnull" json:"totalRacers"`
}
