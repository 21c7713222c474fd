package core

import (
	"regexp"
	"strings"
)

var canonicalMAC = regexp.MustCompile(`^([0-9A-F]{2}:){5}[0-9A-F]{2}$`)

// NormalizeMAC converts any MAC spelling (AA:BB:.., aa-bb-.., aabb..) to the
// canonical uppercase colon-separated form. It returns "" when the input does
// not contain exactly 12 hex digits.
func NormalizeMAC(s string) string {
	var hex [12]byte
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'A' && c <= 'F':
		case c >= 'a' && c <= 'f':
			c -= 'a' - 'A'
		default:
			continue
		}
		if n == len(hex) {
			return ""
		}
		hex[n] = c
		n++
	}
	if n != len(hex) {
		return ""
	}

	var b strings.Builder
	b.Grow(17)
	for i := 0; i < len(hex); i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteByte(hex[i])
		b.WriteByte(hex[i+1])
	}
	return b.String()
}

// IsValidMAC reports whether s normalizes to a canonical MAC.
func IsValidMAC(s string) bool {
	return canonicalMAC.MatchString(NormalizeMAC(s))
}

// macSearchTerm strips the usual MAC separators so "aa:bb" finds "AA:BB:..".
// The stored form has colons, so the result is matched against the MAC with
// its colons removed.
func macSearchTerm(q string) string {
	return strings.NewReplacer(":", "", "-", "", ".", "").Replace(strings.TrimSpace(q))
}
