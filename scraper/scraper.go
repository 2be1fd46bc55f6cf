// Package scraper drives a full scrape: it paginates the listing, visits
// every race page in order and persists each leaderboard.
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/padraicbc/cyclingapi/config"
	"github.com/padraicbc/cyclingapi/fetch"
	"github.com/padraicbc/cyclingapi/frdate"
	"github.com/padraicbc/cyclingapi/locate"
	"github.com/padraicbc/cyclingapi/models"
	"github.com/padraicbc/cyclingapi/participant"
	"github.com/padraicbc/cyclingapi/raceid"
	"github.com/padraicbc/cyclingapi/store"
)

// Fetcher downloads pages.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
	FetchUntil(ctx context.Context, url string, accept func(*goquery.Document) bool, pace func(context.Context) error) (*fetch.Page, error)
}

// Store persists races.
type Store interface {
	RaceExists(ctx context.Context, id string) (bool, error)
	RaceKeys(ctx context.Context) (map[string]bool, error)
	SaveRace(ctx context.Context, race *models.Race, recs []participant.Record) (store.SaveResult, error)
	Stats(ctx context.Context) (store.DatabaseStats, error)
	UpdateScrapingInfo(ctx context.Context, totalRaces, totalRacers int) error
}

// Options are the listing and pacing settings of a run.
type Options struct {
	ResultsURL   string
	SearchParams []config.Param
	PageParam    string
	Delay        time.Duration
	MaxPages     int
	// MaxRaces caps the race pages visited; zero means no cap.
	MaxRaces int
}

// OptionsFrom extracts the run options from the scraper configuration.
func OptionsFrom(cfg *config.ScrapeConfig) Options {
	return Options{
		ResultsURL:   cfg.ResultsURL(),
		SearchParams: cfg.SearchParams,
		PageParam:    cfg.PageParam,
		Delay:        cfg.Delay,
		MaxPages:     cfg.MaxPages,
		MaxRaces:     cfg.MaxRaces,
	}
}

// Scraper runs scrapes. It is not safe for concurrent use.
type Scraper struct {
	opts    Options
	fetcher Fetcher
	store   Store
	loc     *locate.Locator
	limiter *rate.Limiter
	log     *zap.Logger
}

// New returns a Scraper. Requests are spaced at least opts.Delay apart.
func New(opts Options, f Fetcher, st Store, loc *locate.Locator, log *zap.Logger) *Scraper {
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	return &Scraper{
		opts:    opts,
		fetcher: f,
		store:   st,
		loc:     loc,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Run discovers and scrapes every race. A cancelled ctx stops the run after
// the race in progress; the report still covers the completed work and the
// scraping totals are still recorded. Only a failure to read the store at
// startup is returned as an error.
func (s *Scraper) Run(ctx context.Context) (Report, error) {
	start := time.Now()

	keys, err := s.store.RaceKeys(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load known races: %w", err)
	}
	sess := NewSession(keys)

	urls := s.Discover(ctx, sess)
	if s.opts.MaxRaces > 0 && len(urls) > s.opts.MaxRaces {
		s.log.Warn("race ceiling reached", zap.Int("discovered", len(urls)), zap.Int("max_races", s.opts.MaxRaces))
		urls = urls[:s.opts.MaxRaces]
	}

	progress := NewProgress(s.log, "races", len(urls))
	done := 0
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		s.ScrapeRace(ctx, sess, u)
		done++
		progress.Step(done, u)
	}
	progress.Done(done)

	return s.finish(ctx, sess, start), nil
}

// finish records the totals even when ctx is already cancelled.
func (s *Scraper) finish(ctx context.Context, sess *Session, start time.Time) Report {
	r := Report{Stats: sess.Stats, Interrupted: ctx.Err() != nil}
	ctx = context.WithoutCancel(ctx)

	st, err := s.store.Stats(ctx)
	if err != nil {
		s.log.Error("database stats failed", zap.Error(err))
	} else {
		r.DB = st
		if err := s.store.UpdateScrapingInfo(ctx, st.TotalRaces, st.TotalCyclists); err != nil {
			s.log.Error("update scraping info failed", zap.Error(err))
		}
	}
	r.Elapsed = time.Since(start)
	LogSummary(s.log, r)
	return r
}

// Discover paginates the listing until a page has no race card, a page
// fails or the page ceiling is reached. It returns the race URLs in first
// seen order and records each card in sess.
func (s *Scraper) Discover(ctx context.Context, sess *Session) []string {
	var urls []string
	for page := 1; page <= s.opts.MaxPages; page++ {
		if err := s.wait(ctx); err != nil {
			break
		}
		listing := s.ListingURL(page)
		p, err := s.fetcher.Fetch(ctx, listing)
		if err != nil {
			sess.Stats.Errors++
			s.log.Error("listing page failed", zap.Int("page", page), zap.String("url", listing), zap.Error(err))
			break
		}
		sess.Stats.PagesScraped++

		cards := s.loc.Cards(p.Doc)
		s.log.Debug("listing page", zap.Int("page", page), zap.Int("cards", len(cards)))
		if len(cards) == 0 {
			break
		}
		for _, c := range cards {
			if _, seen := sess.Cards[c.URL]; seen {
				continue
			}
			sess.Cards[c.URL] = c
			urls = append(urls, c.URL)
		}
		if page == s.opts.MaxPages {
			s.log.Warn("page ceiling reached", zap.Int("max_pages", s.opts.MaxPages))
		}
	}
	s.log.Info("discovery done", zap.Int("races", len(urls)), zap.Int("pages", sess.Stats.PagesScraped))
	return urls
}

// ListingURL builds the search URL of page, keeping the configured
// parameter order.
func (s *Scraper) ListingURL(page int) string {
	var b strings.Builder
	b.WriteString(s.opts.ResultsURL)
	sep := "?"
	if strings.Contains(s.opts.ResultsURL, "?") {
		sep = "&"
	}
	for _, p := range s.opts.SearchParams {
		b.WriteString(sep + url.QueryEscape(p.Key) + "=" + url.QueryEscape(p.Value))
		sep = "&"
	}
	if s.opts.PageParam != "" {
		b.WriteString(sep + url.QueryEscape(s.opts.PageParam) + "=" + strconv.Itoa(page))
	}
	return b.String()
}

// ScrapeRace fetches one race page and persists its leaderboards. Failures
// are counted in sess and never returned.
func (s *Scraper) ScrapeRace(ctx context.Context, sess *Session, raceURL string) {
	log := s.log.With(zap.String("url", raceURL))
	if sess.processed[raceURL] {
		sess.Stats.SkippedRaces++
		log.Debug("already processed in this run")
		return
	}
	sess.processed[raceURL] = true

	if err := s.wait(ctx); err != nil {
		return
	}
	page, err := s.fetcher.FetchUntil(ctx, raceURL, func(doc *goquery.Document) bool {
		_, ok := s.loc.ResultsTable(doc)
		return ok
	}, s.wait)
	if err != nil {
		sess.Stats.Errors++
		log.Error("race page failed", zap.Error(err))
		return
	}
	// a fetched race is always written in full, cancellation stops the run
	// before the next one
	ctx = context.WithoutCancel(ctx)

	doc := page.Doc
	card := sess.Cards[raceURL]
	name, date := s.identity(doc, card, raceURL)

	stages := locate.Stages(doc)
	if len(stages) == 0 {
		if n := locate.TableCount(doc); n > 1 {
			log.Warn("no stage markers on a page with several tables", zap.Int("tables", n))
		}
		table, ok := s.loc.ResultsTable(doc)
		if !ok {
			sess.Stats.NoTable++
			log.Info("no results table")
			return
		}
		race := newRace(raceid.ID(name, date, raceURL, ""), name, date, raceURL, card)
		if err := s.persist(ctx, sess, race, table); err != nil {
			sess.Stats.Errors++
			log.Error("race failed", zap.String("race_id", race.ID), zap.Error(err))
		}
		return
	}

	log.Debug("stages found", zap.Int("stages", len(stages)))
	for _, st := range stages {
		if err := s.scrapeStage(ctx, sess, doc, st, name, date, raceURL, card); err != nil {
			sess.Stats.Errors++
			log.Error("stage failed", zap.String("stage", st.Label), zap.Error(err))
		}
	}
}

func (s *Scraper) scrapeStage(ctx context.Context, sess *Session, doc *goquery.Document, st locate.Stage, name, date, raceURL string, card locate.Card) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %q: panic: %v", st.Label, r)
		}
	}()

	table, ok := s.loc.StageTable(doc, st.Payload)
	if !ok {
		sess.Stats.NoTable++
		s.log.Info("no table for stage", zap.String("url", raceURL), zap.String("stage", st.Label))
		return nil
	}
	stageName := name + " - " + st.Label
	race := newRace(raceid.ID(stageName, date, raceURL, st.Payload), stageName, date, raceURL+"#"+st.Payload, card)
	return s.persist(ctx, sess, race, table)
}

func (s *Scraper) persist(ctx context.Context, sess *Session, race *models.Race, table *goquery.Selection) error {
	log := s.log.With(zap.String("race_id", race.ID))

	exists, err := s.store.RaceExists(ctx, race.ID)
	if err != nil {
		return fmt.Errorf("check race: %w", err)
	}
	key := raceid.Key(race.Name, race.Date)
	if exists || sess.knownKeys[key] {
		sess.Stats.SkippedRaces++
		log.Info("race already stored", zap.String("name", race.Name), zap.String("date", race.Date))
		return nil
	}

	recs, rejected := extractAll(locate.Rows(table), log)
	sess.Stats.RejectedRows += rejected
	if len(recs) == 0 {
		sess.Stats.NoTable++
		log.Info("leaderboard has no valid rows", zap.Int("rejected", rejected))
		return nil
	}

	res, err := s.store.SaveRace(ctx, race, recs)
	if err != nil {
		return err
	}
	sess.knownKeys[key] = true
	sess.Stats.NewRaces++
	sess.Stats.NewCyclists += res.NewCyclists
	sess.Stats.NewResults += res.NewResults
	log.Info("race saved",
		zap.String("name", race.Name),
		zap.String("date", race.Date),
		zap.Int("participants", len(recs)),
		zap.Int("rejected", rejected),
	)
	return nil
}

// extractAll turns table rows into records. The first row is the header.
// Rows that fail extraction or repeat a UCI ID are rejected.
func extractAll(rows [][]string, log *zap.Logger) (recs []participant.Record, rejected int) {
	if len(rows) > 0 {
		rows = rows[1:]
	}
	seen := map[string]bool{}
	for i, cells := range rows {
		rec, err := participant.Extract(cells, i+1)
		if err != nil {
			rejected++
			log.Debug("row rejected", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		if seen[rec.UCIID] {
			rejected++
			log.Debug("row rejected", zap.Int("row", i+1), zap.String("uci_id", rec.UCIID), zap.String("reason", "duplicate"))
			continue
		}
		seen[rec.UCIID] = true
		recs = append(recs, rec)
	}
	return recs, rejected
}

// identity returns the race name and canonical date. Listing card metadata
// wins over the detail page.
func (s *Scraper) identity(doc *goquery.Document, card locate.Card, raceURL string) (name, date string) {
	name = card.Name
	if name == "" {
		name, _ = s.loc.Title(doc)
	}
	if name == "" {
		name = strings.Trim(raceURL[strings.LastIndex(strings.TrimRight(raceURL, "/"), "/")+1:], "/")
	}

	raw := card.RawDate
	if raw == "" {
		raw, _ = s.loc.DateText(doc)
	}
	return name, frdate.Normalize(raw)
}

func newRace(id, name, date, raceURL string, card locate.Card) *models.Race {
	r := &models.Race{ID: id, Name: name, Date: date, URL: raceURL}
	if card.Location != "" {
		r.Location = &card.Location
	}
	if card.Categories != "" {
		r.Categories = &card.Categories
	}
	return r
}

func (s *Scraper) wait(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}
