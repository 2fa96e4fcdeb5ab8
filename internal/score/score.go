// Package score extracts numeric fitness scores from free-text LLM analysis.
package score

import (
	"regexp"
	"strconv"
	"strings"
)

// BestFitThreshold is the minimum score considered a best-fit match.
const BestFitThreshold = 7.0

// Patterns are tried in priority order against the lowercased analysis text.
// The analysis prompt asks for "Score: X/10", but models drift, so the bare
// "X/10" and "Rating: X/10" shapes are accepted too.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`score[:\s]+(\d+(?:\.\d+)?)\s*/?\s*10`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*10`),
	regexp.MustCompile(`rating[:\s]+(\d+(?:\.\d+)?)\s*/?\s*10`),
}

// Extract scans the analysis text for a score out of 10 and returns the
// first match. ok is false when no pattern matches or the matched text does
// not parse as a number.
//
// Known limitation: a textual score of exactly 0 is indistinguishable from
// "no score found" downstream, since callers treat 0 as unset. The analysis
// prompt uses a 1-10 scale, so 0 should not occur in practice.
func Extract(analysis string) (value float64, ok bool) {
	lowered := strings.ToLower(analysis)
	for _, p := range patterns {
		m := p.FindStringSubmatch(lowered)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

// IsBestFit reports whether a score clears the best-fit threshold.
func IsBestFit(value float64) bool {
	return value >= BestFitThreshold
}
