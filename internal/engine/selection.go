package engine

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Value is the set of column types a Selection can constrain.
type Value interface {
	~int32 | ~string
}

// SelectionKind tags which variant a Selection holds.
type SelectionKind uint8

const (
	KindAll SelectionKind = iota
	KindSingle
	KindMany
)

func (k SelectionKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindMany:
		return "many"
	default:
		return "all"
	}
}

// Selection is All | Single(v) | Many(ordered set). The zero value is All.
type Selection[T Value] struct {
	kind   SelectionKind
	values []T
}

// All selects every value of the dimension's universe.
func All[T Value]() Selection[T] { return Selection[T]{} }

// Single selects exactly one value.
func Single[T Value](v T) Selection[T] {
	return Selection[T]{kind: KindSingle, values: []T{v}}
}

// Many selects an ordered set of values. Duplicates are dropped keeping the
// first occurrence; no values at all yields All.
func Many[T Value](vs ...T) Selection[T] {
	if len(vs) == 0 {
		return All[T]()
	}
	seen := make(map[T]struct{}, len(vs))
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return Selection[T]{kind: KindMany, values: out}
}

func (s Selection[T]) Kind() SelectionKind { return s.kind }

func (s Selection[T]) IsAll() bool { return s.kind == KindAll }

// Values returns the explicitly selected values, nil for All.
func (s Selection[T]) Values() []T {
	if s.kind == KindAll {
		return nil
	}
	out := make([]T, len(s.values))
	copy(out, s.values)
	return out
}

// Resolve expands the selection against a universe: explicit values as given,
// or the universe itself for All.
func (s Selection[T]) Resolve(universe []T) []T {
	if s.kind == KindAll {
		out := make([]T, len(universe))
		copy(out, universe)
		return out
	}
	return s.Values()
}

// First returns the first selected value, if any.
func (s Selection[T]) First() (T, bool) {
	var zero T
	if s.kind == KindAll {
		return zero, false
	}
	return s.values[0], true
}

func (s Selection[T]) String() string {
	switch s.kind {
	case KindAll:
		return "all"
	case KindSingle:
		return fmt.Sprint(s.values[0])
	}
	parts := make([]string, len(s.values))
	for i, v := range s.values {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (s Selection[T]) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case KindAll:
		return []byte("null"), nil
	case KindSingle:
		return json.Marshal(s.values[0])
	}
	return json.Marshal(s.values)
}

// UnmarshalJSON accepts null or "" (All), a scalar (Single) or an array (Many).
func (s *Selection[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*s = All[T]()
		return nil
	}
	if b[0] == '[' {
		var vs []T
		if err := json.Unmarshal(b, &vs); err != nil {
			return &SelectionError{Value: string(b), Reason: err.Error(), Err: ErrInvalidSelection}
		}
		*s = Many(vs...)
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return &SelectionError{Value: string(b), Reason: err.Error(), Err: ErrInvalidSelection}
	}
	*s = Single(v)
	return nil
}

// Spec selects records along the six filterable dimensions. The zero Spec
// selects every record.
type Spec struct {
	Year       Selection[int32]  `json:"year"`
	StateCode  Selection[int32]  `json:"state_code"`
	CountyCode Selection[int32]  `json:"county_code"`
	AgeGroup   Selection[string] `json:"age_group"`
	Cause      Selection[string] `json:"cause"`
	CauseCode  Selection[string] `json:"cause_code"`
}

// WithYear returns a copy of the spec pinned to a single year.
func (s Spec) WithYear(year int32) Spec {
	s.Year = Single(year)
	return s
}

func (s Spec) String() string {
	return fmt.Sprintf("year=%s state=%s county=%s age=%s cause=%s cause_code=%s",
		s.Year, s.StateCode, s.CountyCode, s.AgeGroup, s.Cause, s.CauseCode)
}
