package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName produces the canonical form of a habit name used as a
// store key: surrounding whitespace trimmed, NFC normalised.
// Notes written on different devices can spell the same name with
// composed or decomposed characters; both must resolve to one habit.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
