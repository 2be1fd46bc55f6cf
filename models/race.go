package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Race is one scraped leaderboard. A multi-stage page yields one Race per stage.
type Race struct {
	bun.BaseModel `bun:"table:races,alias:rc"`

	ID               string    `bun:"id,pk" json:"id"`
	Date             string    `bun:"date,notnull" json:"date"`
	Name             string    `bun:"name,notnull" json:"name"`
	URL              string    `bun:"url,notnull,default:''" json:"url"`
	Location         *string   `bun:"location" json:"location,omitempty"`
	Categories       *string   `bun:"categories" json:"categories,omitempty"`
	ParticipantCount int       `bun:"participant_count,notnull,default:0" json:"participantCount"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}
