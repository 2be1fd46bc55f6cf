// Package raceid derives stable race identifiers and the name/date keys used
// to recognise a race already stored under another id.
package raceid

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
)

// Prefix namespaces every race id.
const Prefix = "race_"

// ID returns the id of the race at rawURL. The last path segment (the site
// slug) is preferred; fragment, or failing that the URL's own fragment,
// is appended so stages of one page get distinct ids. URLs without a usable
// path fall back to a short hash of name, date and URL.
func ID(name, date, rawURL, fragment string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err == nil {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 2 && parts[len(parts)-1] != "" {
			slug := parts[len(parts)-1]
			if fragment == "" {
				fragment = u.Fragment
			}
			if fragment != "" {
				slug += "_" + fragment
			}
			return Prefix + slug
		}
	}

	sum := md5.Sum([]byte(name + "_" + date + "_" + rawURL + fragment))
	return Prefix + hex.EncodeToString(sum[:])[:8]
}

// Key is the cross-run dedup key of a race: upper-cased name with collapsed
// whitespace, and the trimmed date.
func Key(name, date string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " ")) + "|" + strings.TrimSpace(date)
}
