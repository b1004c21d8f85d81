package matching

import (
	"regexp"
	"strings"
)

// addressAbbreviations expands USPS-style abbreviations word by word.
// Values must never themselves be keys, which keeps NormalizeAddress idempotent.
var addressAbbreviations = map[string]string{
	"ste":  "suite",
	"apt":  "apartment",
	"blvd": "boulevard",
	"ave":  "avenue",
	"st":   "street",
	"dr":   "drive",
	"rd":   "road",
	"ln":   "lane",
	"ct":   "court",
	"pl":   "place",
	"pkwy": "parkway",
	"hwy":  "highway",
	"cir":  "circle",
	"n":    "north",
	"s":    "south",
	"e":    "east",
	"w":    "west",
	"fl":   "floor",
	"flr":  "floor",
	"bldg": "building",
}

var (
	addressPunct = strings.NewReplacer(".", " ", ",", " ", "#", " unit ")
	zip5Pattern  = regexp.MustCompile(`\b(\d{5})\b`)

	// A unit designator swallows the following token only when it looks like a
	// unit number ("200", "200-b", "b"), so the city after a bare "floor"
	// stays. Ordinal floors ("2nd floor", "second floor") go as a whole.
	unitPattern = regexp.MustCompile(
		`\b(\d+(st|nd|rd|th)|ground|first|second|third|fourth|fifth)\s+floor\b` +
			`|\b(suite|apartment|unit|floor|building|room)\b(\s+([\w-]*\d[\w-]*|[a-z]\b))?` +
			`|#\s*[\w-]*`)
)

// NormalizeAddress builds a comparable address string: lowercased, punctuation
// stripped ("#" becomes "unit"), abbreviations expanded, ZIP+4 cut to five
// digits, whitespace collapsed. An empty street line
// yields "" because city/state/zip alone cannot identify a practice location.
func NormalizeAddress(line1, city, state, zip string) string {
	if strings.TrimSpace(line1) == "" {
		return ""
	}

	parts := make([]string, 0, 4)
	for _, p := range []string{line1, city, state, zip5(zip)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	addr := addressPunct.Replace(strings.ToLower(strings.Join(parts, ", ")))
	words := strings.Fields(addr)
	for i, w := range words {
		if full, ok := addressAbbreviations[w]; ok {
			words[i] = full
		}
	}
	return strings.Join(words, " ")
}

// AddressesMatch compares two normalized addresses. Differing 5-digit zips
// reject immediately; otherwise unit designators (suite, floor, room, ...) are
// ignored and the remainder must be equal.
func AddressesMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	zipA, zipB := extractZip5(a), extractZip5(b)
	if zipA != "" && zipB != "" && zipA != zipB {
		return false
	}

	return stripUnit(a) == stripUnit(b)
}

// AnyAddressMatches reports whether site matches any of the candidates.
// Multi-location practices register secondary addresses, any of which counts.
func AnyAddressMatches(site string, candidates ...string) bool {
	for _, c := range candidates {
		if AddressesMatch(c, site) {
			return true
		}
	}
	return false
}

// zip5 trims a ZIP+4 to its first five characters.
func zip5(zip string) string {
	zip = strings.TrimSpace(zip)
	if len(zip) > 5 && zip[5] == '-' {
		return zip[:5]
	}
	return zip
}

func extractZip5(addr string) string {
	m := zip5Pattern.FindStringSubmatch(addr)
	if m == nil {
		return ""
	}
	return m[1]
}

func stripUnit(addr string) string {
	return strings.Join(strings.Fields(unitPattern.ReplaceAllString(addr, " ")), " ")
}
