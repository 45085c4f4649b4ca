package api

import (
	"net/url"
	"strconv"
	"strings"

	"mortality/internal/engine"
)

// Query parameter names, one per filterable dimension.
const (
	paramYear      = "year"
	paramState     = "state"
	paramCounty    = "county"
	paramAge       = "age"
	paramCause     = "cause"
	paramCauseCode = "cause_code"
)

// maxRangeLen bounds how many values one a-b range may expand to.
const maxRangeLen = 100000

// ParseSpec builds a selection spec from query parameters. Every parameter
// may repeat and integer dimensions accept inclusive a-b ranges. Values are
// comma-separated, except cause names which may contain commas themselves.
// A missing or empty parameter selects All.
func ParseSpec(q url.Values) (engine.Spec, error) {
	var (
		spec engine.Spec
		err  error
	)
	if spec.Year, err = intSelection(q, paramYear); err != nil {
		return spec, err
	}
	if spec.StateCode, err = intSelection(q, paramState); err != nil {
		return spec, err
	}
	if spec.CountyCode, err = intSelection(q, paramCounty); err != nil {
		return spec, err
	}
	spec.AgeGroup = stringSelection(splitValues(q[paramAge]))
	spec.Cause = stringSelection(trimValues(q[paramCause]))
	spec.CauseCode = stringSelection(splitValues(q[paramCauseCode]))
	return spec, nil
}

func splitValues(raw []string) []string {
	var out []string
	for _, r := range raw {
		out = append(out, trimValues(strings.Split(r, ","))...)
	}
	return out
}

func trimValues(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func stringSelection(vals []string) engine.Selection[string] {
	if len(vals) == 1 {
		return engine.Single(vals[0])
	}
	return engine.Many(vals...)
}

func intSelection(q url.Values, name string) (engine.Selection[int32], error) {
	var vals []int32
	for _, v := range splitValues(q[name]) {
		lo, hi, err := parseIntRange(name, v)
		if err != nil {
			return engine.All[int32](), err
		}
		for x := lo; x <= hi; x++ {
			vals = append(vals, int32(x))
		}
	}
	if len(vals) == 1 {
		return engine.Single(vals[0]), nil
	}
	return engine.Many(vals...), nil
}

func parseIntRange(name, v string) (int64, int64, error) {
	invalid := func(reason string) error {
		return &engine.SelectionError{Field: name, Value: v, Reason: reason, Err: engine.ErrInvalidSelection}
	}
	// A leading minus is a sign, not a range separator.
	from, to, isRange := strings.Cut(v[1:], "-")
	if !isRange {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return 0, 0, invalid("not an integer")
		}
		return n, n, nil
	}
	lo, err := strconv.ParseInt(strings.TrimSpace(v[:1]+from), 10, 32)
	if err != nil {
		return 0, 0, invalid("range start is not an integer")
	}
	hi, err := strconv.ParseInt(strings.TrimSpace(to), 10, 32)
	if err != nil {
		return 0, 0, invalid("range end is not an integer")
	}
	switch {
	case lo > hi:
		return 0, 0, invalid("range start is after its end")
	case hi-lo >= maxRangeLen:
		return 0, 0, invalid("range too large")
	}
	return lo, hi, nil
}
