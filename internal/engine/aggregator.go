package engine

// YearTotal is one point of the year series.
type YearTotal struct {
	Year   int32 `json:"year"`
	Deaths int64 `json:"deaths"`
}

// Aggregate sums deaths per year for every year of the spec's year dimension,
// in the order that dimension supplies them (the ascending universe for All).
// Each year behaves as Filter(spec.WithYear(year)); years without rows sum to 0.
func Aggregate(cs *ColumnStore, u Universe, spec Spec) []YearTotal {
	years := spec.Year.Resolve(u.Years)
	p := compile(cs, u, spec)

	out := make([]YearTotal, 0, len(years))
	for _, y := range years {
		var total int64
		// The year index replaces a full-table scan per year.
		for _, i := range cs.yearIndex[y] {
			if p.match(cs, i) {
				total += cs.Deaths[i]
			}
		}
		out = append(out, YearTotal{Year: y, Deaths: total})
	}
	return out
}

// TotalDeaths sums a year series.
func TotalDeaths(series []YearTotal) int64 {
	var total int64
	for _, p := range series {
		total += p.Deaths
	}
	return total
}
