package locate

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Stage is one stage or category leaderboard of a race page.
type Stage struct {
	Label string
	// Payload is the token tying the selector entry to its table container.
	Payload string
}

var (
	stagePattern = regexp.MustCompile(`(?i)(?:^|\P{L})[eé]tape\s*\d+`)
	// Access 1 2, Access 3.4, A1, A1-A2, U7, U-11, U 15. The short form is an
	// upper-case A glued to its digit so "a 3 km" stays plain text.
	categoryPattern = regexp.MustCompile(`\b(?i:access)\s*[1-4](?:\s*[-.&/ ]\s*(?:[aA]\s*)?[1-4])*\b|\bA[1-4](?:\s*[-.&/]\s*A?[1-4])*\b|\b(?i:u)\s*-?\s*\d{1,2}\b`)
)

// IsStageLabel reports whether text names a stage or a category leaderboard.
func IsStageLabel(text string) bool {
	return stagePattern.MatchString(text) || categoryPattern.MatchString(text)
}

// Stages lists the stage and category selector entries of a race page.
// Dropdown options are preferred; list items are scanned only when no option
// matched. A nil result means the page is a single leaderboard.
func Stages(doc *goquery.Document) []Stage {
	if st := scanStages(doc.Find("select option")); len(st) > 0 {
		return st
	}
	return scanStages(doc.Find("li"))
}

func scanStages(sel *goquery.Selection) []Stage {
	var out []Stage
	seen := map[string]bool{}
	sel.Each(func(_ int, s *goquery.Selection) {
		label := clean(s.Text())
		if label == "" || !IsStageLabel(label) {
			return
		}
		payload := payloadOf(s)
		if payload == "" || seen[payload] {
			return
		}
		seen[payload] = true
		out = append(out, Stage{Label: label, Payload: payload})
	})
	return out
}

func payloadOf(s *goquery.Selection) string {
	candidates := []string{
		s.AttrOr("value", ""),
		s.AttrOr("data-target", ""),
		s.AttrOr("data-tab", ""),
		s.Find(`a[href*="#"]`).First().AttrOr("href", ""),
		s.AttrOr("id", ""),
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if i := strings.LastIndex(c, "#"); i >= 0 {
			c = c[i+1:]
		}
		if c != "" {
			return c
		}
	}
	return ""
}

// elements that reference a payload rather than contain its table
const referenceTags = "option, select, li, a, input, button"

// StageTable finds the results table belonging to payload. Containers are
// matched by exact id, then id substring, then class substring. As a last
// resort the first div in document order with any attribute value holding
// payload is used.
func (l *Locator) StageTable(doc *goquery.Document, payload string) (*goquery.Selection, bool) {
	if payload == "" {
		return nil, false
	}
	containers := Chain{
		byAttr(func(s *goquery.Selection) bool { return s.AttrOr("id", "") == payload }),
		byAttr(func(s *goquery.Selection) bool { return strings.Contains(s.AttrOr("id", ""), payload) }),
		byAttr(func(s *goquery.Selection) bool { return strings.Contains(s.AttrOr("class", ""), payload) }),
		anyDivAttr(payload),
	}

	root := doc.Selection
	for _, find := range containers {
		c, ok := find(root)
		if !ok {
			continue
		}
		if goquery.NodeName(c) == "table" {
			return c, true
		}
		if t, ok := l.table.Find(c); ok {
			return t, true
		}
	}
	return nil, false
}

func byAttr(match func(*goquery.Selection) bool) Strategy {
	return func(root *goquery.Selection) (*goquery.Selection, bool) {
		sel := root.Find("*").Not(referenceTags).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return match(s)
		}).First()
		return sel, sel.Length() > 0
	}
}

func anyDivAttr(payload string) Strategy {
	return func(root *goquery.Selection) (*goquery.Selection, bool) {
		sel := root.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			for _, a := range s.Nodes[0].Attr {
				if strings.Contains(a.Val, payload) {
					return true
				}
			}
			return false
		}).First()
		return sel, sel.Length() > 0
	}
}
