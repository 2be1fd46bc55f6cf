// Package participant turns the text cells of one leaderboard row into a
// participant record.
package participant

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// MinCells is the smallest row that can hold a participant.
const MinCells = 4

var (
	// ErrTooFewCells marks spacer and caption rows.
	ErrTooFewCells = errors.New("participant: too few cells")
	// ErrMissingIdentity marks rows with neither a UCI ID nor a name.
	ErrMissingIdentity = errors.New("participant: missing uci id and name")
	// ErrHeaderRow marks a header row that was not skipped upstream.
	ErrHeaderRow = errors.New("participant: header row")
)

var (
	digits        = regexp.MustCompile(`\d+`)
	licencePrefix = regexp.MustCompile(`^\d+\s*`)
	whitespace    = regexp.MustCompile(`\s+`)
	positionCell  = regexp.MustCompile(`^\d{1,3}$`)
)

var headerWords = map[string]bool{
	"nom": true, "name": true, "coureur": true, "rider": true, "prenom": true, "prénom": true,
}

// non-finisher markers that stand in the position column
var markers = map[string]bool{
	"DNF": true, "DNS": true, "DSQ": true, "AB": true, "ABD": true, "NP": true, "NC": true,
}

// Record is one participant row of a leaderboard.
type Record struct {
	UCIID     string
	FirstName string
	LastName  string
	Category  string
	Region    string
	ClubRaw   string
	Club      string
	Team      string
	Rank      int
	// RawData holds every cell text of the row, unmodified.
	RawData []string
}

// Extract builds a Record from the row cells. rowIndex is the 1-based
// position of the row in its table and is the rank when the row has no
// numeric position.
func Extract(cells []string, rowIndex int) (Record, error) {
	if len(cells) < MinCells {
		return Record{}, ErrTooFewCells
	}

	raw := make([]string, len(cells))
	copy(raw, cells)

	// without a position column the row order is the rank
	fields, rankText := cells, ""
	if hasPosition(cells[0]) {
		fields, rankText = cells[1:], cells[0]
	}

	rec := Record{
		UCIID:     strings.TrimSpace(at(fields, 0)),
		LastName:  normalizeName(at(fields, 1)),
		FirstName: normalizeName(at(fields, 2)),
		Category:  strings.TrimSpace(at(fields, 3)),
		Region:    strings.TrimSpace(at(fields, 4)),
		ClubRaw:   strings.TrimSpace(at(fields, 5)),
		Team:      strings.TrimSpace(at(fields, 6)),
		RawData:   raw,
	}

	if rec.UCIID == "" && rec.LastName == "" && rec.FirstName == "" {
		return Record{}, ErrMissingIdentity
	}
	if headerWords[strings.ToLower(rec.LastName)] || headerWords[strings.ToLower(rec.FirstName)] {
		return Record{}, ErrHeaderRow
	}

	rec.Club, _ = CleanClub(rec.ClubRaw)
	rec.Rank = rank(rankText, rowIndex)
	if rec.UCIID == "" {
		rec.UCIID = anonymousID(rec)
	}
	return rec, nil
}

// CleanClub strips the leading licence number from a club cell.
// ok is false only for an empty cell; when stripping leaves nothing the raw
// value is returned.
func CleanClub(raw string) (club string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if cleaned := strings.TrimSpace(licencePrefix.ReplaceAllString(raw, "")); cleaned != "" {
		return cleaned, true
	}
	return raw, true
}

// IsAnonymous reports whether id was synthesised for a row without a UCI ID.
func IsAnonymous(id string) bool {
	return strings.HasPrefix(id, "anon_")
}

func hasPosition(first string) bool {
	first = strings.TrimSpace(first)
	return first == "" || positionCell.MatchString(first) || markers[strings.ToUpper(first)]
}

func rank(text string, rowIndex int) int {
	if m := digits.FindString(text); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			return n
		}
	}
	if rowIndex < 1 {
		return 1
	}
	return rowIndex
}

func normalizeName(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func anonymousID(rec Record) string {
	key := strings.ToUpper(rec.LastName + "|" + rec.FirstName + "|" + rec.Club)
	sum := md5.Sum([]byte(key))
	return "anon_" + hex.EncodeToString(sum[:])[:12]
}

func at(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}
