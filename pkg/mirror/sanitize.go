// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Sanitize maps a display name to a single safe path segment.
//
// Only letters, digits, spaces, underscores and hyphens are kept, then
// surrounding whitespace is trimmed. The result may be empty. Input is
// NFC-normalised first so decomposed accents are kept as letters.
func Sanitize(raw string) string {
	var b strings.Builder
	for _, r := range norm.NFC.String(raw) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
