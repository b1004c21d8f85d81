package matching

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

var (
	credentials = wordSet("md", "do", "phd", "np", "pa", "rn", "lpn", "lcsw", "dds", "dpm", "od", "dc")
	suffixes    = wordSet("jr", "sr", "ii", "iii", "iv")
	titles      = wordSet("dr", "mr", "mrs", "ms")
	namePunct   = strings.NewReplacer(".", " ", ",", " ", "-", " ", "'", " ")
)

// maxSurnameDistance tolerates one typo or transliteration difference in a
// surname ("Nguyen" vs "Nguyem"); first initials must still agree.
const maxSurnameDistance = 1

// NormalizeName lowercases a person's name and removes credentials,
// honorifics and punctuation: "Dr. Jane Q. Doe-Smith, MD" -> "jane q doe smith".
//
// Credentials are only stripped by position (after a comma, or trailing a
// name that keeps at least two words), so surnames such as "Do" or "Pa"
// survive: "Anh Do, MD" -> "anh do".
func NormalizeName(name string) string {
	head, tail, _ := strings.Cut(strings.ToLower(name), ",")

	words := strings.Fields(namePunct.Replace(head))
	for len(words) > 1 && titles[words[0]] {
		words = words[1:]
	}
	for len(words) > 2 && (credentials[words[len(words)-1]] || suffixes[words[len(words)-1]]) {
		words = words[:len(words)-1]
	}

	for _, w := range strings.Fields(namePunct.Replace(tail)) {
		if credentials[w] || suffixes[w] || titles[w] {
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// NamesMatch compares two normalized names by surname (within
// maxSurnameDistance edits) and first initial.
func NamesMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	partsA, partsB := strings.Fields(a), strings.Fields(b)
	if len(partsA) == 0 || len(partsB) == 0 {
		return false
	}

	lastA, lastB := partsA[len(partsA)-1], partsB[len(partsB)-1]
	if lastA != lastB && levenshtein.ComputeDistance(lastA, lastB) > maxSurnameDistance {
		return false
	}
	return partsA[0][0] == partsB[0][0]
}
