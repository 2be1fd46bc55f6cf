package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RaceResult links a cyclist to a race with the rank and the raw row cells.
type RaceResult struct {
	bun.BaseModel `bun:"table:race_results,alias:rr"`

	ID        int       `bun:"id,pk,autoincrement" json:"id"`
	RaceID    string    `bun:"race_id,notnull,unique:race_results_no_dupes" json:"raceID"`
	UCIID     string    `bun:"uci_id,notnull,unique:race_results_no_dupes" json:"uciID"`
	Rank      int       `bun:"rank,notnull" json:"rank"`
	Category  *string   `bun:"category" json:"category,omitempty"`
	Team      *string   `bun:"team" json:"team,omitempty"`
	RawData   []string  `bun:"raw_data" json:"rawData"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}
