package scraper

import "github.com/padraicbc/cyclingapi/locate"

// Stats are the per-run counters.
type Stats struct {
	NewRaces     int `json:"new_races"`
	SkippedRaces int `json:"skipped_races"`
	NewCyclists  int `json:"new_cyclists"`
	NewResults   int `json:"new_results"`
	RejectedRows int `json:"rejected_rows"`
	NoTable      int `json:"no_table"`
	Errors       int `json:"errors"`
	PagesScraped int `json:"pages_scraped"`
}

// Session is the state of one run. It is owned by a single goroutine.
type Session struct {
	// Cards holds the listing metadata of every discovered race URL.
	Cards map[string]locate.Card
	Stats Stats

	processed map[string]bool
	knownKeys map[string]bool
}

// NewSession returns an empty session. knownKeys are the name/date keys of
// races already stored.
func NewSession(knownKeys map[string]bool) *Session {
	if knownKeys == nil {
		knownKeys = map[string]bool{}
	}
	return &Session{
		Cards:     map[string]locate.Card{},
		processed: map[string]bool{},
		knownKeys: knownKeys,
	}
}

// Processed reports whether url was already handled in this run.
func (s *Session) Processed(url string) bool { return s.processed[url] }
