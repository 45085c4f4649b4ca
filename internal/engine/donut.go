package engine

import (
	"fmt"
	"sort"
)

// DefaultTopCauses is the number of named slices in the inner ring.
const DefaultTopCauses = 5

// CauseTotal is the death count attributed to one cause.
type CauseTotal struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Deaths int64  `json:"deaths"`
}

// CauseSlice is one slice of the inner ring. The synthesized others bucket has
// Others set and an empty Code.
type CauseSlice struct {
	Label  string `json:"label"`
	Code   string `json:"code,omitempty"`
	Name   string `json:"name,omitempty"`
	Deaths int64  `json:"deaths"`
	Others bool   `json:"others,omitempty"`
}

// DonutSummary feeds the nested donut chart: alive vs. dead outside, leading
// causes inside.
type DonutSummary struct {
	Population int64        `json:"population"`
	Alive      int64        `json:"alive"`
	Dead       int64        `json:"dead"`
	Inner      []CauseSlice `json:"inner"`
	// OthersCount is how many causes were folded into the others bucket.
	OthersCount int `json:"others_count"`
}

// Donut derives the donut summary for the records matching spec.
// The population baseline is read from the first match and must be the same
// for every matched record.
func Donut(cs *ColumnStore, u Universe, spec Spec, topN int) (DonutSummary, error) {
	v := Filter(cs, u, spec)
	return DonutFromView(v, topN, spec)
}

// DonutFromView derives the donut summary from an already filtered view.
// spec is only used to describe an empty selection.
func DonutFromView(v View, topN int, spec Spec) (DonutSummary, error) {
	if v.Len() == 0 {
		return DonutSummary{}, &SelectionError{
			Field:  "spec",
			Value:  spec.String(),
			Reason: "no record matches",
			Err:    ErrEmptySelection,
		}
	}
	cs := v.store
	population := cs.Population[v.rows[0]]
	for _, r := range v.rows[1:] {
		if cs.Population[r] != population {
			return DonutSummary{}, &IntegrityError{
				Field:  colPopulation,
				Value:  fmt.Sprintf("%d != %d", cs.Population[r], population),
				Reason: "population varies across selection",
			}
		}
	}
	dead := v.SumDeaths()
	if dead > population {
		return DonutSummary{}, &IntegrityError{
			Field:  colDeaths,
			Value:  fmt.Sprintf("%d > %d", dead, population),
			Reason: "deaths exceed population",
		}
	}

	inner, others := TopCauses(CauseTotals(v), topN)
	return DonutSummary{
		Population:  population,
		Alive:       population - dead,
		Dead:        dead,
		Inner:       inner,
		OthersCount: others,
	}, nil
}

// CauseTotals groups a view's deaths by cause code in first-seen order.
// Duplicate combinations are summed.
func CauseTotals(v View) []CauseTotal {
	cs := v.store
	pos := make(map[int32]int)
	var out []CauseTotal
	for _, r := range v.rows {
		id := cs.CauseCodeIDs[r]
		i, ok := pos[id]
		if !ok {
			i = len(out)
			pos[id] = i
			code := cs.CauseCodeDict[id]
			name, _ := cs.causeNames.Name(code)
			out = append(out, CauseTotal{Code: code, Name: name})
		}
		out[i].Deaths += cs.Deaths[r]
	}
	return out
}

// TopCauses ranks causes by deaths, descending with ties in input order, and
// keeps the first n as slices. Any remaining causes are folded into one
// "<k> others combined" slice; it returns k.
func TopCauses(totals []CauseTotal, n int) ([]CauseSlice, int) {
	if n <= 0 {
		n = DefaultTopCauses
	}
	ranked := make([]CauseTotal, len(totals))
	copy(ranked, totals)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Deaths > ranked[j].Deaths })

	keep := min(n, len(ranked))
	out := make([]CauseSlice, 0, keep+1)
	for _, c := range ranked[:keep] {
		out = append(out, CauseSlice{Label: c.Code, Code: c.Code, Name: c.Name, Deaths: c.Deaths})
	}
	rest := ranked[keep:]
	if len(rest) == 0 {
		return out, 0
	}
	var sum int64
	for _, c := range rest {
		sum += c.Deaths
	}
	out = append(out, CauseSlice{
		Label:  fmt.Sprintf("%d others combined", len(rest)),
		Deaths: sum,
		Others: true,
	})
	return out, len(rest)
}
