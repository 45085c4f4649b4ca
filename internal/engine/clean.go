package engine

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// --- 1. CLEANING RULES ---

const (
	notApplicable = "Not Applicable"
	unreliable    = "(Unreliable)"
)

// spanLabel matches compact age spans like "1-4 years".
var spanLabel = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)\s+(years?)$`)

// NormalizeLabel applies NFKC normalization and trims surrounding space.
func NormalizeLabel(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// NormalizeAgeGroup rewrites age spans to the canonical spaced form,
// "1-4 years" -> "1 - 4 years". Other labels only get NormalizeLabel.
func NormalizeAgeGroup(s string) string {
	s = NormalizeLabel(s)
	if m := spanLabel.FindStringSubmatch(s); m != nil {
		return m[1] + " - " + m[2] + " " + m[3]
	}
	return s
}

// isMissing reports the sentinel and blank cells that become missing values.
func isMissing(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == notApplicable
}

// parseOptionalFloat parses a float cell, returning NaN for missing cells.
func parseOptionalFloat(line int, field, s string) (float64, error) {
	if isMissing(s) {
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &IntegrityError{Row: line, Field: field, Value: s, Reason: "not a number"}
	}
	return f, nil
}

// parseCrudeRate drops the "(Unreliable)" annotation before parsing.
func parseCrudeRate(line int, s string) (float64, error) {
	return parseOptionalFloat(line, colCrudeRate, strings.Replace(s, unreliable, "", 1))
}

func parseCode(line int, field, s string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, &IntegrityError{Row: line, Field: field, Value: s, Reason: "not an integer"}
	}
	return int32(v), nil
}

func parseCount(line int, field, s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &IntegrityError{Row: line, Field: field, Value: s, Reason: "not an integer"}
	}
	if v < 0 {
		return 0, &IntegrityError{Row: line, Field: field, Value: s, Reason: "negative count"}
	}
	return v, nil
}

// populationFill carries the previous row's population into a missing cell,
// at most once per gap.
type populationFill struct {
	prev       int64
	havePrev   bool
	lastFilled bool
}

func (f *populationFill) next(line int, s string) (int64, error) {
	if isMissing(s) {
		switch {
		case !f.havePrev:
			return 0, &IntegrityError{Row: line, Field: colPopulation, Value: s, Reason: "missing with no previous value to carry forward"}
		case f.lastFilled:
			return 0, &IntegrityError{Row: line, Field: colPopulation, Value: s, Reason: "missing for more than one consecutive row"}
		}
		f.lastFilled = true
		return f.prev, nil
	}
	v, err := parseCount(line, colPopulation, s)
	if err != nil {
		return 0, err
	}
	f.prev, f.havePrev, f.lastFilled = v, true, false
	return v, nil
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
