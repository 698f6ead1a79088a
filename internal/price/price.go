// Package price turns raw text fragments into validated numeric prices.
// Its bounds are the single source of truth for what looks like a real
// price; every parser and both transport paths share it.
package price

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinValid = 0.01
	MaxValid = 999999
)

// First run of digits with optional thousands separators and up to two
// fraction digits.
var fragment = regexp.MustCompile(`[\d,]+(?:\.\d{1,2})?`)

// Normalize extracts the first price-like number from text. It reports
// false for empty input, unparseable text and values outside
// [MinValid, MaxValid]; it never fails harder than that.
func Normalize(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	match := fragment.FindString(text)
	if match == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil || value < MinValid || value > MaxValid {
		return 0, false
	}

	return math.Round(value*100) / 100, true
}

// NormalizeWithin is Normalize with an additional per-retailer plausibility
// window applied, used by the regex-scan fallbacks where incidental numbers
// are common.
func NormalizeWithin(text string, floor, ceiling float64) (float64, bool) {
	value, ok := Normalize(text)
	if !ok || value < floor || value > ceiling {
		return 0, false
	}
	return value, true
}
