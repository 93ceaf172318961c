package utils

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Hash returns a hex SHA-256 of s. Used to fingerprint secrets and URLs in
// logs without revealing them.
func Hash(s string) string {
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum)
}

// ShortHash returns the first 8 hex characters of Hash.
func ShortHash(s string) string {
	full := Hash(s)
	if len(full) >= 8 {
		return full[:8]
	}
	return full
}

// NormalizeKeyword puts a scraped keyword into NFC form and collapses inner
// whitespace. Hangul scraped from different pages may arrive decomposed.
func NormalizeKeyword(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
