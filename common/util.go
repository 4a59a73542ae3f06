package common

import (
	"hash/fnv"
	"unicode"
)

// GenerateFingerprint hashes the given parts into a single numeric ID; this is
// used to decide whether a saved parse table is still current for a grammar
func GenerateFingerprint(parts ...string) uint64 {
	h := fnv.New64a()
	for _, part := range parts {
		h.Write([]byte(part))

		// separate the parts so that ("ab", "c") and ("a", "bc") differ
		h.Write([]byte{0})
	}

	return h.Sum64()
}

// IsValidIdentifier checks whether a name can be used as a rule or project
// name: letters, digits and underscores, not starting with a digit
func IsValidIdentifier(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}

		if i > 0 && unicode.IsDigit(r) {
			continue
		}

		return false
	}

	return true
}
