package matching

import (
	"strings"
	"unicode"
)

// specialtySynonyms maps a registry classification to the umbrella terms a
// practice commonly uses on its website for the same thing.
var specialtySynonyms = map[string][]string{
	"family medicine":         {"family practice", "primary care", "family health", "general practice"},
	"internal medicine":       {"primary care", "general medicine", "internist"},
	"pediatrics":              {"pediatric medicine", "child health", "childrens medicine"},
	"obstetrics & gynecology": {"obgyn", "ob/gyn", "obstetrics", "gynecology", "womens health"},
	"psychiatry":              {"mental health", "behavioral health", "psychiatric services"},
	"nurse practitioner":      {"np", "advanced practice nurse", "arnp", "aprn"},
	"physician assistant":     {"pa", "pa-c", "physician associate"},
	"clinical psychology":     {"psychology", "psychologist", "mental health", "behavioral health"},
	"physical therapy":        {"physiotherapy", "pt", "physical rehabilitation"},
	"dentist":                 {"dental", "dentistry", "oral health"},
	"optometry":               {"eye care", "vision care", "optometrist"},
	"chiropractic":            {"chiropractor", "spinal health"},
	"dermatology":             {"skin care", "dermatologist"},
	"cardiology":              {"heart health", "cardiovascular", "cardiologist"},
	"orthopedic surgery":      {"orthopedics", "orthopaedics", "bone and joint", "musculoskeletal"},
}

// genericWords carry no specialty on their own. A site label made only of
// these may contain a classification but is never looked up inside one.
var genericWords = map[string]bool{
	"health": true, "care": true, "medicine": true, "medical": true,
	"services": true, "service": true, "clinic": true, "center": true,
	"practice": true, "general": true, "and": true, "&": true,
	"a": true, "of": true, "the": true,
}

// primaryCare is accepted against any classification. It is the umbrella
// label practices use for general services and is not treated as a claim.
const primaryCare = "primary care"

// SpecialtyMatches reports whether any website label is consistent with the
// registry taxonomy classification. Labels are compared word by word, so
// "a" never matches inside "cardiology".
func SpecialtyMatches(taxonomyLabel string, siteLabels []string) bool {
	tax := normalizeLabel(taxonomyLabel)
	if tax == "" {
		return false
	}

	for _, raw := range siteLabels {
		site := normalizeLabel(raw)
		if site == "" {
			continue
		}
		if hasPhrase(site, primaryCare) {
			return true
		}
		needle := specific(site)
		if hasPhrase(site, tax) || (needle && hasPhrase(tax, site)) {
			return true
		}
		if anyOverlap(site, needle, specialtySynonyms[tax]) {
			return true
		}
		if reverseSynonymMatch(tax, site, needle) {
			return true
		}
	}
	return false
}

// anyOverlap reports containment in either direction between label and any
// synonym. The label is only searched for inside a synonym when asNeedle.
func anyOverlap(label string, asNeedle bool, synonyms []string) bool {
	for _, syn := range synonyms {
		if hasPhrase(label, syn) || (asNeedle && hasPhrase(syn, label)) {
			return true
		}
	}
	return false
}

// reverseSynonymMatch handles the site label naming a table key (e.g. the site
// says "Psychiatry" while the registry says "Mental Health Counselor").
func reverseSynonymMatch(tax, site string, asNeedle bool) bool {
	for key, syns := range specialtySynonyms {
		if !hasPhrase(site, key) && !(asNeedle && hasPhrase(key, site)) {
			continue
		}
		if hasPhrase(tax, key) {
			return true
		}
		for _, syn := range syns {
			if hasPhrase(tax, syn) {
				return true
			}
		}
	}
	return false
}

// normalizeLabel lowercases and splits on anything but letters, digits and
// the joiners that appear inside specialty names ("ob/gyn", "pa-c", "&").
func normalizeLabel(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '/' && r != '&' && r != '-'
	})
	return strings.Join(words, " ")
}

// hasPhrase reports whether phrase occurs in text on word boundaries.
func hasPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

func specific(label string) bool {
	for _, w := range strings.Fields(label) {
		if !genericWords[w] {
			return true
		}
	}
	return false
}
