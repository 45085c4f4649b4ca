package engine

// View is an ordered subset of store rows produced by Filter.
type View struct {
	store *ColumnStore
	rows  []int
}

// Len returns the number of matched rows.
func (v View) Len() int { return len(v.rows) }

// Rows returns the matched row indices in store order.
func (v View) Rows() []int {
	out := make([]int, len(v.rows))
	copy(out, v.rows)
	return out
}

// Record materializes the i-th matched row.
func (v View) Record(i int) Record { return v.store.Record(v.rows[i]) }

// SumDeaths sums the Deaths column over the view. An empty view sums to zero.
func (v View) SumDeaths() int64 {
	var total int64
	for _, r := range v.rows {
		total += v.store.Deaths[r]
	}
	return total
}

// Filter returns every row whose six dimension values are members of the
// spec's resolved selections. All resolves to the universe of its dimension.
func Filter(cs *ColumnStore, u Universe, spec Spec) View {
	p := compile(cs, u, spec)
	rows := make([]int, 0)
	for i := 0; i < cs.Len(); i++ {
		if p.year.match(cs.Years[i]) && p.match(cs, i) {
			rows = append(rows, i)
		}
	}
	return View{store: cs, rows: rows}
}

// Filter narrows the view further with another spec.
func (v View) Filter(u Universe, spec Spec) View {
	p := compile(v.store, u, spec)
	rows := make([]int, 0, len(v.rows))
	for _, i := range v.rows {
		if p.year.match(v.store.Years[i]) && p.match(v.store, i) {
			rows = append(rows, i)
		}
	}
	return View{store: v.store, rows: rows}
}

// predicate is a spec compiled against one store. String dimensions are
// resolved to dictionary-ID lookup tables so the row scan is array indexing.
type predicate struct {
	year, state, county intSet
	age, cause, code     idSet
}

// match checks every dimension except year.
func (p *predicate) match(cs *ColumnStore, i int) bool {
	return p.state.match(cs.StateCodes[i]) &&
		p.county.match(cs.CountyCodes[i]) &&
		p.age.match(cs.AgeGroupIDs[i]) &&
		p.cause.match(cs.CauseIDs[i]) &&
		p.code.match(cs.CauseCodeIDs[i])
}

func compile(cs *ColumnStore, u Universe, spec Spec) *predicate {
	return &predicate{
		year:   newIntSet(spec.Year, u.Years),
		state:  newIntSet(spec.StateCode, u.StateCodes),
		county: newIntSet(spec.CountyCode, u.CountyCodes),
		age:    newIDSet(normalized(spec.AgeGroup, NormalizeAgeGroup), u.AgeGroups, cs.AgeGroupDict),
		cause:  newIDSet(normalized(spec.Cause, NormalizeLabel), u.Causes, cs.CauseDict),
		code:   newIDSet(normalized(spec.CauseCode, NormalizeLabel), u.CauseCodes, cs.CauseCodeDict),
	}
}

// normalized rewrites selected labels the way the loader stored them.
func normalized(sel Selection[string], norm func(string) string) Selection[string] {
	if sel.IsAll() {
		return sel
	}
	vals := sel.Values()
	for i, v := range vals {
		vals[i] = norm(v)
	}
	return Many(vals...)
}

type intSet struct {
	any bool
	set map[int32]struct{}
}

func newIntSet(sel Selection[int32], universe []int32) intSet {
	if sel.IsAll() && universe == nil {
		return intSet{any: true}
	}
	vals := sel.Resolve(universe)
	s := intSet{set: make(map[int32]struct{}, len(vals))}
	for _, v := range vals {
		s.set[v] = struct{}{}
	}
	return s
}

func (s intSet) match(v int32) bool {
	if s.any {
		return true
	}
	_, ok := s.set[v]
	return ok
}

type idSet struct {
	any     bool
	allowed []bool // indexed by dictionary ID
}

func newIDSet(sel Selection[string], universe, dict []string) idSet {
	if sel.IsAll() && universe == nil {
		return idSet{any: true}
	}
	want := make(map[string]struct{})
	for _, v := range sel.Resolve(universe) {
		want[v] = struct{}{}
	}
	s := idSet{allowed: make([]bool, len(dict))}
	for id, v := range dict {
		_, s.allowed[id] = want[v]
	}
	return s
}

func (s idSet) match(id int32) bool {
	return s.any || s.allowed[id]
}
