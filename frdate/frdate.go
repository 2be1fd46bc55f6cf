// Package frdate turns the free-form dates found on French race pages into a
// canonical "DD mois YYYY" string.
package frdate

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Unknown is returned when a page carries no date at all.
const Unknown = "Date inconnue"

// ErrUnparsable is returned by Parse for text that is not a recognised date.
var ErrUnparsable = errors.New("frdate: unparsable date")

var months = []string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// monthTokens maps lower-cased English and short French month tokens to the
// full French month name. Full French names map to themselves so matched
// tokens always come out lower case.
var monthTokens = map[string]string{
	"jan": "janvier", "janv": "janvier", "january": "janvier",
	"fév": "février", "fev": "février", "févr": "février", "fevr": "février", "feb": "février", "february": "février",
	"mar": "mars", "march": "mars",
	"avr": "avril", "apr": "avril", "april": "avril",
	"may": "mai",
	"jun": "juin", "june": "juin",
	"jui": "juillet", "jul": "juillet", "juil": "juillet", "july": "juillet",
	"aoû": "août", "aou": "août", "aout": "août", "aug": "août", "august": "août",
	"sep": "septembre", "sept": "septembre", "september": "septembre",
	"oct": "octobre", "october": "octobre",
	"nov": "novembre", "november": "novembre",
	"déc": "décembre", "dec": "décembre", "december": "décembre",
}

func init() {
	for _, m := range months {
		monthTokens[m] = m
	}
	monthTokens["fevrier"] = "février"
	monthTokens["decembre"] = "décembre"
}

var (
	monthAlt = strings.Join(months, "|")

	// "Du 25 Mai au 26 Mai 2024", "du 25 au 26 mai 2024"
	spacedRange = regexp.MustCompile(`(?i)du\s+(\d{1,2})(?:er)?\s+(?:(\pL+)\s+)?au\s+\d{1,2}(?:er)?\s+(\pL+)\s+(\d{4})`)
	// "25 Maiau 26 Mai2024", the separators are lost when the markup is flattened
	packedRange = regexp.MustCompile(`(?i)(\d{1,2})\s*(\pL+?)\s*au\s*\d{1,2}\s*(\pL+?)\s*(\d{4})`)

	whitespace = regexp.MustCompile(`\s+`)

	frenchFull  = regexp.MustCompile(`(?i)(\d{1,2})(?:er)?\s+(` + monthAlt + `)\s+(\d{4})`)
	frenchShort = regexp.MustCompile(`(?i)(\d{1,2})(?:er)?\s+(jan|fév|mar|avr|mai|juin|juil|août|sept|oct|nov|déc)\.?\s+(\d{4})`)
	generic     = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
		regexp.MustCompile(`(\d{4}[/-]\d{1,2}[/-]\d{1,2})`),
		regexp.MustCompile(`(\d{1,2}\s+\pL+\s+\d{4})`),
	}
)

// Normalize returns the canonical date found in raw. Text holding no
// recognisable date is returned cleaned with its month tokens expanded;
// empty text yields Unknown.
func Normalize(raw string) string {
	if d, ok := Extract(raw); ok {
		return d
	}
	if cleaned := clean(expandMonths(raw)); cleaned != "" {
		return cleaned
	}
	return Unknown
}

// Extract is Normalize without the verbatim fallback: ok is false when no
// date pattern matched.
func Extract(raw string) (string, bool) {
	text := expandMonths(raw)

	if day, month, year, ok := matchRange(text); ok {
		text = day + " " + month + " " + year
	} else {
		text = clean(text)
	}
	if text == "" {
		return "", false
	}

	for _, re := range []*regexp.Regexp{frenchFull, frenchShort} {
		if m := re.FindStringSubmatch(text); m != nil {
			return canonical(m[1], m[2], m[3]), true
		}
	}
	for _, re := range generic {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Parse converts a canonical string back to a time. It accepts the French
// form and the numeric DD/MM/YYYY and YYYY-MM-DD forms.
func Parse(s string) (time.Time, error) {
	s = clean(s)
	if m := frenchFull.FindStringSubmatch(expandMonths(s)); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		month := monthIndex(strings.ToLower(m[2]))
		if month > 0 && validDay(year, month, day) {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
		}
		return time.Time{}, ErrUnparsable
	}
	for _, layout := range []string{"2/1/2006", "2-1-2006", "2006-1-2", "2006/1/2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrUnparsable
}

func matchRange(text string) (day, month, year string, ok bool) {
	if m := spacedRange.FindStringSubmatch(text); m != nil {
		first := m[2]
		if first == "" {
			first = m[3]
		}
		if full, known := lookupMonth(first); known {
			return m[1], full, m[4], true
		}
	}
	if m := packedRange.FindStringSubmatch(text); m != nil {
		if full, known := lookupMonth(m[2]); known {
			return m[1], full, m[4], true
		}
	}
	return "", "", "", false
}

// expandMonths replaces every letter run that is a known month token with the
// full French month name. Letter runs rather than \b keep accented tokens
// such as "aoû" intact.
func expandMonths(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if !unicode.IsLetter(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && unicode.IsLetter(runes[j]) {
			j++
		}
		token := string(runes[i:j])
		if full, ok := lookupMonth(token); ok {
			b.WriteString(full)
			// "janv." abbreviation dot
			if j < len(runes) && runes[j] == '.' {
				j++
			}
		} else {
			b.WriteString(token)
		}
		i = j
	}
	return b.String()
}

func lookupMonth(token string) (string, bool) {
	full, ok := monthTokens[strings.ToLower(strings.TrimSuffix(token, "."))]
	return full, ok
}

func canonical(day, month, year string) string {
	if full, ok := lookupMonth(month); ok {
		month = full
	}
	return day + " " + strings.ToLower(month) + " " + year
}

func clean(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func monthIndex(name string) int {
	for i, m := range months {
		if m == name {
			return i + 1
		}
	}
	return 0
}

func validDay(year, month, day int) bool {
	if day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day
}
