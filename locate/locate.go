// Package locate finds the structural parts of listing and race pages:
// result card links, title, date, results tables and stage sub-tables.
// Every lookup reports absence with a false result, never an error.
package locate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/padraicbc/cyclingapi/config"
	"github.com/padraicbc/cyclingapi/frdate"
)

// Strategy looks for one element below root.
type Strategy func(root *goquery.Selection) (*goquery.Selection, bool)

// Chain is an ordered list of strategies; the first hit wins.
type Chain []Strategy

// Find runs the strategies left to right.
func (c Chain) Find(root *goquery.Selection) (*goquery.Selection, bool) {
	for _, s := range c {
		if sel, ok := s(root); ok {
			return sel, true
		}
	}
	return nil, false
}

// BySelector matches the first element for a CSS selector.
func BySelector(css string) Strategy {
	return func(root *goquery.Selection) (*goquery.Selection, bool) {
		sel := root.Find(css).First()
		return sel, sel.Length() > 0
	}
}

// SelectorChain builds a chain from CSS selectors.
func SelectorChain(css []string) Chain {
	c := make(Chain, 0, len(css))
	for _, s := range css {
		c = append(c, BySelector(s))
	}
	return c
}

// Card is the metadata shown for one race on a listing page.
type Card struct {
	URL        string
	Name       string
	RawDate    string
	Location   string
	Categories string
}

// Locator holds the site base and the selector chains.
type Locator struct {
	base        *url.URL
	resultsPath string
	links       []string
	title       Chain
	dates       []string
	table       Chain
}

// New builds a Locator for baseURL. Only links whose path contains
// resultsPath are treated as race links.
func New(baseURL, resultsPath string, sel config.Selectors) (*Locator, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	return &Locator{
		base:        base,
		resultsPath: resultsPath,
		links:       sel.Links,
		title:       SelectorChain(sel.Title),
		dates:       sel.Date,
		table:       SelectorChain(sel.Table),
	}, nil
}

// Cards returns the race cards of a listing page in document order,
// deduplicated by absolute URL.
func (l *Locator) Cards(doc *goquery.Document) []Card {
	var cards []Card
	seen := map[string]bool{}
	for _, css := range l.links {
		doc.Find(css).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return
			}
			abs, err := l.base.Parse(strings.TrimSpace(href))
			if err != nil || !strings.Contains(abs.Path, l.resultsPath) {
				return
			}
			abs.Fragment = ""
			u := abs.String()
			if seen[u] {
				return
			}
			seen[u] = true
			cards = append(cards, cardFrom(a, u))
		})
	}
	return cards
}

func cardFrom(a *goquery.Selection, u string) Card {
	c := Card{URL: u}

	if h, ok := (Chain{
		BySelector(`[class*="title"]`),
		BySelector("h2, h3, h4"),
	}).Find(a); ok {
		c.Name = clean(h.Text())
	}
	if c.Name == "" {
		c.Name, _ = a.Attr("title")
		c.Name = clean(c.Name)
	}

	if d, ok := BySelector(`[class*="date"], time`)(a); ok {
		c.RawDate = clean(d.Text())
	} else if d, found := frdate.Extract(a.Text()); found {
		c.RawDate = d
	}
	if loc, ok := BySelector(`[class*="location"], [class*="lieu"], [class*="city"]`)(a); ok {
		c.Location = clean(loc.Text())
	}
	if cat, ok := BySelector(`[class*="categor"], [class*="discipline"]`)(a); ok {
		c.Categories = clean(cat.Text())
	}
	return c
}

// Title returns the race title of a detail page.
func (l *Locator) Title(doc *goquery.Document) (string, bool) {
	sel, ok := l.title.Find(doc.Selection)
	if !ok {
		return "", false
	}
	t := clean(sel.Text())
	return t, t != ""
}

// DateText returns the text of the first date element that holds a
// recognisable date, or else the first non-empty date element text.
func (l *Locator) DateText(doc *goquery.Document) (string, bool) {
	fallback := ""
	for _, css := range l.dates {
		var hit string
		doc.Find(css).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := clean(s.Text())
			if text == "" {
				return true
			}
			if _, ok := frdate.Extract(text); ok {
				hit = text
				return false
			}
			if fallback == "" {
				fallback = text
			}
			return true
		})
		if hit != "" {
			return hit, true
		}
	}
	return fallback, fallback != ""
}

// ResultsTable returns the first results table of the page.
func (l *Locator) ResultsTable(doc *goquery.Document) (*goquery.Selection, bool) {
	return l.table.Find(doc.Selection)
}

// TableCount is the number of tables on the page.
func TableCount(doc *goquery.Document) int {
	return doc.Find("table").Length()
}

// Rows returns the trimmed cell texts of every row of table, header row
// included.
func Rows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.ChildrenFiltered("td, th").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, clean(td.Text()))
		})
		rows = append(rows, cells)
	})
	return rows
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
