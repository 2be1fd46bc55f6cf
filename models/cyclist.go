package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Cyclist is keyed by the federation (UCI) identifier.
type Cyclist struct {
	bun.BaseModel `bun:"table:cyclists,alias:cy"`

	UCIID     string    `bun:"uci_id,pk" json:"uciID"`
	FirstName string    `bun:"first_name,notnull" json:"firstName"`
	LastName  string    `bun:"last_name,notnull" json:"lastName"`
	Region    *string   `bun:"region" json:"region,omitempty"`
	Club      *string   `bun:"club" json:"club,omitempty"`
	ClubRaw   *string   `bun:"club_raw" json:"clubRaw,omitempty"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}
