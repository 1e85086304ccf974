package catalog

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies NFKC normalization, trims surrounding whitespace and
// drops control characters other than newline and tab.
func NormalizeText(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.TrimSpace(normed)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
}

// ParseBool reports whether v is one of the accepted truthy spellings
// (true, t, 1, yes, y), case-insensitively. Everything else is false.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "t", "1", "yes", "y":
		return true
	}
	return false
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func findColumn(header []string, candidates []string) int {
	for _, cand := range candidates {
		for i, col := range header {
			if strings.EqualFold(cleanCell(col), cand) {
				return i
			}
		}
	}
	return -1
}

func parseFloat(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
