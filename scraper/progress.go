package scraper

import (
	"time"

	"go.uber.org/zap"
)

const milestoneEvery = 10

// Progress logs a long loop: every item at debug level, and a milestone at
// info level every ten items and on the last one.
type Progress struct {
	log   *zap.Logger
	label string
	total int
	start time.Time
}

// NewProgress logs the start of a loop over total items.
func NewProgress(log *zap.Logger, label string, total int) *Progress {
	log.Info("starting", zap.String("task", label), zap.Int("total", total))
	return &Progress{log: log, label: label, total: total, start: time.Now()}
}

// Step records that done items are finished, the last being item.
func (p *Progress) Step(done int, item string) {
	p.log.Debug("progress", zap.String("task", p.label), zap.Int("done", done), zap.String("item", item))
	if done%milestoneEvery != 0 && done != p.total {
		return
	}
	pct := 100.0
	if p.total > 0 {
		pct = float64(done) * 100 / float64(p.total)
	}
	p.log.Info("milestone",
		zap.String("task", p.label),
		zap.Int("done", done),
		zap.Int("total", p.total),
		zap.String("percent", formatPercent(pct)),
		zap.Duration("elapsed", time.Since(p.start).Round(time.Second)),
	)
}

// Done logs completion.
func (p *Progress) Done(done int) {
	p.log.Info("completed",
		zap.String("task", p.label),
		zap.Int("done", done),
		zap.Int("total", p.total),
		zap.Duration("elapsed", time.Since(p.start).Round(time.Millisecond)),
	)
}
