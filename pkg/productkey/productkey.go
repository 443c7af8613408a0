// Package productkey generates the deterministic identity of a canonical
// product from its normalized brand and name. It is the single key
// implementation in the repository: the ingestion processor (producer side)
// and the merge engine (consumer side) both import it, so the two can never
// drift apart.
package productkey

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// HashLength is the number of hex characters of the truncated hash suffix.
const HashLength = 8

// Slugify lowercases s, strips everything outside [a-z0-9] and whitespace,
// collapses whitespace runs to a single underscore, and trims edge separators.
func Slugify(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSep = true
		default:
			// punctuation and symbols are dropped without introducing a separator
		}
	}
	return b.String()
}

// Compute derives the product key for a brand/name pair. The key is
// `{brand_slug}_{hash8}` where hash8 is the first 8 hex characters of the
// SHA-256 of the normalized brand+name string. Pure and deterministic:
// identical inputs always produce identical keys.
func Compute(brand, name string) string {
	normalized := normalize(brand + " " + name)
	sum := sha256.Sum256([]byte(normalized))
	hash8 := hex.EncodeToString(sum[:])[:HashLength]

	brandSlug := Slugify(brand)
	if brandSlug == "" {
		return "unknown_" + hash8
	}
	return brandSlug + "_" + hash8
}

// normalize reduces s to [a-z0-9] with runs of everything else collapsed to a
// single underscore. Unlike Slugify it treats punctuation as a separator, so
// "Lamb & Rice" and "Lamb Rice" remain distinct inputs.
func normalize(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
