package engine

import (
	"errors"
	"slices"
	"testing"
)

func mustStore(t *testing.T, records []Record) *ColumnStore {
	t.Helper()
	cs, err := NewColumnStore(records)
	if err != nil {
		t.Fatalf("NewColumnStore: %v", err)
	}
	return cs
}

func rec(year, county int32, age, code string, deaths, pop int64) Record {
	return Record{
		Year:         year,
		State:        "California",
		StateCode:    6,
		County:       countyName(county),
		CountyCode:   county,
		AgeGroup:     age,
		AgeGroupCode: age,
		Cause:        "cause " + code,
		CauseCode:    code,
		Deaths:       deaths,
		Population:   pop,
	}
}

func countyName(code int32) string {
	switch code {
	case 6073:
		return "San Diego County, CA"
	case 6001:
		return "Alameda County, CA"
	}
	return "Other County, CA"
}

// fixture covers two counties, two age groups and three years with a gap.
func fixture(t *testing.T) *ColumnStore {
	return mustStore(t, []Record{
		rec(1999, 6073, "85+ years", "G30", 10, 5000),
		rec(1999, 6073, "85+ years", "I21", 7, 5000),
		rec(1999, 6001, "85+ years", "G30", 4, 3000),
		rec(1999, 6073, "1 - 4 years", "W74", 2, 9000),
		rec(2000, 6073, "85+ years", "G30", 12, 5100),
		rec(2000, 6001, "1 - 4 years", "W74", 1, 8000),
		rec(2002, 6073, "85+ years", "G30", 9, 5300),
	})
}

func TestFilterAllDefaultsReturnsEverything(t *testing.T) {
	cs := fixture(t)
	v := Filter(cs, cs.Universe(), Spec{})
	if v.Len() != cs.Len() {
		t.Fatalf("Expected %d rows, got %d", cs.Len(), v.Len())
	}
	for i, r := range v.Rows() {
		if r != i {
			t.Errorf("Expected store order, row %d is %d", i, r)
		}
	}
}

func TestFilter(t *testing.T) {
	cs := fixture(t)
	u := cs.Universe()

	tests := []struct {
		name string
		spec Spec
		want []int
	}{
		{"single county", Spec{CountyCode: Single[int32](6001)}, []int{2, 5}},
		{"county and age", Spec{CountyCode: Single[int32](6073), AgeGroup: Single("85+ years")}, []int{0, 1, 4, 6}},
		{"year many", Spec{Year: Many[int32](2000, 2002)}, []int{4, 5, 6}},
		{"age label normalized", Spec{AgeGroup: Single("1-4 years")}, []int{3, 5}},
		{"cause code and name", Spec{CauseCode: Single("G30"), Cause: Single("cause G30")}, []int{0, 2, 4, 6}},
		{"cause name in source spelling", Spec{Cause: Single("\uff43ause G30 ")}, []int{0, 2, 4, 6}},
		{"cause code in source spelling", Spec{CauseCode: Single(" \uff27\uff13\uff10")}, []int{0, 2, 4, 6}},
		{"mismatched cause code and name", Spec{CauseCode: Single("G30"), Cause: Single("cause I21")}, []int{}},
		{"unknown county", Spec{CountyCode: Single[int32](9999)}, []int{}},
		{"unknown year", Spec{Year: Single[int32](2001)}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(cs, u, tt.spec).Rows()
			if !slices.Equal(got, tt.want) {
				t.Errorf("Expected rows %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFilterIdempotentAndMonotone(t *testing.T) {
	cs := fixture(t)
	u := cs.Universe()
	spec := Spec{
		Year:       Many[int32](1999, 2000),
		CountyCode: Single[int32](6073),
		AgeGroup:   Single("85+ years"),
	}

	first := Filter(cs, u, spec)
	again := first.Filter(u, spec)
	if !slices.Equal(first.Rows(), again.Rows()) {
		t.Errorf("Expected idempotent filter, got %v then %v", first.Rows(), again.Rows())
	}

	widened := []Spec{spec, spec, spec}
	widened[0].Year = All[int32]()
	widened[1].CountyCode = All[int32]()
	widened[2].AgeGroup = All[string]()
	for i, w := range widened {
		wider := Filter(cs, u, w).Rows()
		for _, r := range first.Rows() {
			if !slices.Contains(wider, r) {
				t.Errorf("widened spec %d: row %d missing from %v", i, r, wider)
			}
		}
	}
}

func TestFilterHonorsNarrowedUniverse(t *testing.T) {
	cs := fixture(t)
	u := cs.Universe()
	u.CountyCodes = []int32{6001}

	got := Filter(cs, u, Spec{}).Rows()
	if !slices.Equal(got, []int{2, 5}) {
		t.Errorf("Expected All to resolve to the narrowed universe, got %v", got)
	}
}

func TestAggregate(t *testing.T) {
	// 1. Setup Mock Data
	cs := mustStore(t, []Record{
		rec(1999, 6073, "85+ years", "G30", 10, 5000),
		rec(2000, 6073, "85+ years", "G30", 12, 5000),
	})

	// 2. Run Aggregation
	spec := Spec{
		Year:       Many[int32](1999, 2000),
		CountyCode: Single[int32](6073),
		AgeGroup:   Single("85+ years"),
	}
	got := Aggregate(cs, cs.Universe(), spec)

	// 3. Assertions
	want := []YearTotal{{1999, 10}, {2000, 12}}
	if !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestAggregateDefaultRange(t *testing.T) {
	cs := fixture(t)
	u := cs.Universe()
	spec := Spec{CountyCode: Single[int32](6073)}

	got := Aggregate(cs, u, spec)

	// 1999..2002 inclusive, 2001 has no rows and sums to zero.
	want := []YearTotal{{1999, 19}, {2000, 12}, {2001, 0}, {2002, 9}}
	if !slices.Equal(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	if len(got) != int(u.Years[len(u.Years)-1]-u.Years[0]+1) {
		t.Errorf("Expected one entry per year of the range, got %d", len(got))
	}

	// Sum consistency with a single filter over the whole range.
	widened := spec
	widened.Year = Many(u.Years...)
	if total, direct := TotalDeaths(got), Filter(cs, u, widened).SumDeaths(); total != direct {
		t.Errorf("Expected series total %d to equal filtered total %d", total, direct)
	}
}

func TestAggregateMatchesPerYearFilter(t *testing.T) {
	cs := fixture(t)
	u := cs.Universe()
	spec := Spec{AgeGroup: Single("85+ years"), Year: Many[int32](2002, 1999, 2000)}

	got := Aggregate(cs, u, spec)
	if len(got) != 3 || got[0].Year != 2002 || got[1].Year != 1999 || got[2].Year != 2000 {
		t.Fatalf("Expected supplied year order, got %v", got)
	}
	for _, p := range got {
		if direct := Filter(cs, u, spec.WithYear(p.Year)).SumDeaths(); direct != p.Deaths {
			t.Errorf("year %d: Expected %d, got %d", p.Year, direct, p.Deaths)
		}
	}
}

func TestDonut(t *testing.T) {
	cs := mustStore(t, []Record{
		rec(1999, 6073, "85+ years", "G30", 10, 5000),
		rec(2000, 6073, "85+ years", "G30", 12, 5100),
	})
	spec := Spec{
		Year:       Single[int32](1999),
		CountyCode: Single[int32](6073),
		AgeGroup:   Single("85+ years"),
	}

	d, err := Donut(cs, cs.Universe(), spec, DefaultTopCauses)
	if err != nil {
		t.Fatalf("Donut: %v", err)
	}
	if d.Alive != 4990 || d.Dead != 10 || d.Population != 5000 {
		t.Errorf("Expected alive=4990 dead=10 population=5000, got %+v", d)
	}
	if len(d.Inner) != 1 || d.Inner[0].Code != "G30" || d.Inner[0].Name != "cause G30" {
		t.Errorf("Expected one named inner slice, got %+v", d.Inner)
	}
	if d.OthersCount != 0 {
		t.Errorf("Expected no others bucket, got %d", d.OthersCount)
	}
}

func TestDonutErrors(t *testing.T) {
	cs := fixture(t)
	u := cs.Universe()

	_, err := Donut(cs, u, Spec{CountyCode: Single[int32](9999)}, 5)
	if !errors.Is(err, ErrEmptySelection) {
		t.Errorf("Expected ErrEmptySelection, got %v", err)
	}

	// Two years with different populations.
	_, err = Donut(cs, u, Spec{CountyCode: Single[int32](6073), AgeGroup: Single("85+ years")}, 5)
	if !errors.Is(err, ErrDataIntegrity) {
		t.Errorf("Expected ErrDataIntegrity, got %v", err)
	}
}

func TestDonutDeathsExceedPopulation(t *testing.T) {
	cs := mustStore(t, []Record{
		rec(1999, 6073, "85+ years", "G30", 3000, 5000),
		rec(1999, 6073, "85+ years", "I21", 2500, 5000),
	})

	_, err := Donut(cs, cs.Universe(), Spec{Year: Single[int32](1999)}, 5)
	if !errors.Is(err, ErrDataIntegrity) {
		t.Fatalf("Expected ErrDataIntegrity, got %v", err)
	}
	var ie *IntegrityError
	if !errors.As(err, &ie) || ie.Field != colDeaths {
		t.Errorf("Expected a %s integrity error, got %v", colDeaths, err)
	}
}

func TestTopCauses(t *testing.T) {
	deaths := []int64{20, 50, 3, 40, 10, 30, 5}
	totals := make([]CauseTotal, len(deaths))
	for i, d := range deaths {
		totals[i] = CauseTotal{Code: string(rune('A' + i)), Deaths: d}
	}

	inner, others := TopCauses(totals, 5)

	if len(inner) != 6 {
		t.Fatalf("Expected 5 causes and an others bucket, got %d slices", len(inner))
	}
	var got []int64
	for _, s := range inner[:5] {
		got = append(got, s.Deaths)
	}
	if !slices.Equal(got, []int64{50, 40, 30, 20, 10}) {
		t.Errorf("Expected top five [50 40 30 20 10], got %v", got)
	}
	bucket := inner[5]
	if !bucket.Others || bucket.Deaths != 8 || others != 2 {
		t.Errorf("Expected others bucket of 8 over 2 causes, got %+v (%d)", bucket, others)
	}
	if bucket.Label != "2 others combined" {
		t.Errorf("Expected label %q, got %q", "2 others combined", bucket.Label)
	}
}

func TestTopCausesStableTies(t *testing.T) {
	totals := []CauseTotal{{Code: "A", Deaths: 5}, {Code: "B", Deaths: 9}, {Code: "C", Deaths: 5}}
	inner, others := TopCauses(totals, 5)
	if others != 0 || len(inner) != 3 {
		t.Fatalf("Expected 3 slices and no bucket, got %v (%d)", inner, others)
	}
	if inner[0].Code != "B" || inner[1].Code != "A" || inner[2].Code != "C" {
		t.Errorf("Expected B, A, C, got %s, %s, %s", inner[0].Code, inner[1].Code, inner[2].Code)
	}
}

func TestCauseTotalsSumsDuplicates(t *testing.T) {
	cs := fixture(t)
	v := Filter(cs, cs.Universe(), Spec{Year: Single[int32](1999)})
	totals := CauseTotals(v)
	want := []CauseTotal{
		{Code: "G30", Name: "cause G30", Deaths: 14},
		{Code: "I21", Name: "cause I21", Deaths: 7},
		{Code: "W74", Name: "cause W74", Deaths: 2},
	}
	if !slices.Equal(totals, want) {
		t.Errorf("Expected %v, got %v", want, totals)
	}
}

func TestFeatures(t *testing.T) {
	cs := fixture(t)
	m := Features(Filter(cs, cs.Universe(), Spec{CountyCode: Single[int32](6001)}))
	if m.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", m.Len())
	}
	if m.County[0] != "Alameda County, CA" || m.Deaths[1] != 1 || m.Year[1] != 2000 {
		t.Errorf("Unexpected matrix %+v", m)
	}
	if len(m.Columns) != 5 {
		t.Errorf("Expected 5 feature columns, got %d", len(m.Columns))
	}
}

func TestUniverse(t *testing.T) {
	cs := fixture(t)
	u := cs.Universe()
	if !slices.Equal(u.Years, []int32{1999, 2000, 2001, 2002}) {
		t.Errorf("Years: got %v", u.Years)
	}
	if !slices.Equal(u.CountyCodes, []int32{6001, 6073}) {
		t.Errorf("CountyCodes: got %v", u.CountyCodes)
	}
	if !slices.Equal(u.AgeGroups, []string{"1 - 4 years", "85+ years"}) {
		t.Errorf("AgeGroups: Expected canonical order, got %v", u.AgeGroups)
	}
	if !slices.Equal(u.CauseCodes, []string{"G30", "I21", "W74"}) {
		t.Errorf("CauseCodes: got %v", u.CauseCodes)
	}
}
