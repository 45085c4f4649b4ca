package engine

// Record is one mortality-count row for a year, location, age group and cause.
type Record struct {
	Year         int32
	State        string
	StateCode    int32
	County       string
	CountyCode   int32
	AgeGroup     string
	AgeGroupCode string
	Cause        string
	CauseCode    string
	Deaths       int64
	Population   int64
	CrudeRate    float64 // NaN when missing
	CrudeRateSE  float64 // NaN when missing
}

// ColumnStore holds the cleaned table in Struct-of-Arrays format.
// It is immutable once built.
type ColumnStore struct {
	// Data Columns (Flat Arrays)
	Years       []int32
	StateCodes  []int32
	CountyCodes []int32
	Deaths      []int64
	Population  []int64
	CrudeRate   []float64
	CrudeRateSE []float64

	// Dictionary Encoded IDs (0..N)
	StateIDs     []int32
	CountyIDs    []int32
	AgeGroupIDs  []int32
	AgeCodeIDs   []int32
	CauseIDs     []int32
	CauseCodeIDs []int32

	// Dictionaries (ID -> String)
	StateDict     []string
	CountyDict    []string
	AgeGroupDict  []string
	AgeCodeDict   []string
	CauseDict     []string
	CauseCodeDict []string

	causeNames  *Lookup[string]
	countyNames *Lookup[int32]
	universe    Universe
	yearIndex   map[int32][]int
}

// Len returns the number of rows.
func (cs *ColumnStore) Len() int { return len(cs.Years) }

// Record materializes row i.
func (cs *ColumnStore) Record(i int) Record {
	return Record{
		Year:         cs.Years[i],
		State:        cs.StateDict[cs.StateIDs[i]],
		StateCode:    cs.StateCodes[i],
		County:       cs.CountyDict[cs.CountyIDs[i]],
		CountyCode:   cs.CountyCodes[i],
		AgeGroup:     cs.AgeGroupDict[cs.AgeGroupIDs[i]],
		AgeGroupCode: cs.AgeCodeDict[cs.AgeCodeIDs[i]],
		Cause:        cs.CauseDict[cs.CauseIDs[i]],
		CauseCode:    cs.CauseCodeDict[cs.CauseCodeIDs[i]],
		Deaths:       cs.Deaths[i],
		Population:   cs.Population[i],
		CrudeRate:    cs.CrudeRate[i],
		CrudeRateSE:  cs.CrudeRateSE[i],
	}
}

// CauseNames maps cause-of-death codes to names.
func (cs *ColumnStore) CauseNames() *Lookup[string] { return cs.causeNames }

// CountyNames maps county codes to names.
func (cs *ColumnStore) CountyNames() *Lookup[int32] { return cs.countyNames }

// Universe returns the observed domain of every filterable dimension.
// The returned slices are shared and must not be modified.
func (cs *ColumnStore) Universe() Universe { return cs.universe }

// NewColumnStore builds a store from already-clean records, validating the
// code to name mappings.
func NewColumnStore(records []Record) (*ColumnStore, error) {
	b := newStoreBuilder(len(records))
	for i, r := range records {
		if err := b.add(i+1, r); err != nil {
			return nil, err
		}
	}
	return b.build(), nil
}

type dictionary struct {
	ids    map[string]int32
	values []string
}

func newDictionary() *dictionary {
	return &dictionary{ids: make(map[string]int32)}
}

func (d *dictionary) intern(s string) int32 {
	if id, ok := d.ids[s]; ok {
		return id
	}
	id := int32(len(d.values))
	d.values = append(d.values, s)
	d.ids[s] = id
	return id
}

type storeBuilder struct {
	cs                                               *ColumnStore
	states, counties, ages, ageCodes, causes, ccodes *dictionary
	causeNames                                       *Lookup[string]
	countyNames                                      *Lookup[int32]
}

func newStoreBuilder(capacity int) *storeBuilder {
	return &storeBuilder{
		cs: &ColumnStore{
			Years:        make([]int32, 0, capacity),
			StateCodes:   make([]int32, 0, capacity),
			CountyCodes:  make([]int32, 0, capacity),
			Deaths:       make([]int64, 0, capacity),
			Population:   make([]int64, 0, capacity),
			CrudeRate:    make([]float64, 0, capacity),
			CrudeRateSE:  make([]float64, 0, capacity),
			StateIDs:     make([]int32, 0, capacity),
			CountyIDs:    make([]int32, 0, capacity),
			AgeGroupIDs:  make([]int32, 0, capacity),
			AgeCodeIDs:   make([]int32, 0, capacity),
			CauseIDs:     make([]int32, 0, capacity),
			CauseCodeIDs: make([]int32, 0, capacity),
		},
		states:      newDictionary(),
		counties:    newDictionary(),
		ages:        newDictionary(),
		ageCodes:    newDictionary(),
		causes:      newDictionary(),
		ccodes:      newDictionary(),
		causeNames:  newLookup[string](colCauseCode),
		countyNames: newLookup[int32](colCountyCode),
	}
}

// add appends one row; line is used for error reporting.
func (b *storeBuilder) add(line int, r Record) error {
	if r.Deaths < 0 {
		return &IntegrityError{Row: line, Field: colDeaths, Value: itoa(r.Deaths), Reason: "negative count"}
	}
	if r.Population < 0 {
		return &IntegrityError{Row: line, Field: colPopulation, Value: itoa(r.Population), Reason: "negative count"}
	}
	if err := b.causeNames.add(line, r.CauseCode, r.Cause); err != nil {
		return err
	}
	if err := b.countyNames.add(line, r.CountyCode, r.County); err != nil {
		return err
	}

	cs := b.cs
	cs.Years = append(cs.Years, r.Year)
	cs.StateCodes = append(cs.StateCodes, r.StateCode)
	cs.CountyCodes = append(cs.CountyCodes, r.CountyCode)
	cs.Deaths = append(cs.Deaths, r.Deaths)
	cs.Population = append(cs.Population, r.Population)
	cs.CrudeRate = append(cs.CrudeRate, r.CrudeRate)
	cs.CrudeRateSE = append(cs.CrudeRateSE, r.CrudeRateSE)
	cs.StateIDs = append(cs.StateIDs, b.states.intern(r.State))
	cs.CountyIDs = append(cs.CountyIDs, b.counties.intern(r.County))
	cs.AgeGroupIDs = append(cs.AgeGroupIDs, b.ages.intern(r.AgeGroup))
	cs.AgeCodeIDs = append(cs.AgeCodeIDs, b.ageCodes.intern(r.AgeGroupCode))
	cs.CauseIDs = append(cs.CauseIDs, b.causes.intern(r.Cause))
	cs.CauseCodeIDs = append(cs.CauseCodeIDs, b.ccodes.intern(r.CauseCode))
	return nil
}

func (b *storeBuilder) build() *ColumnStore {
	cs := b.cs
	cs.StateDict = b.states.values
	cs.CountyDict = b.counties.values
	cs.AgeGroupDict = b.ages.values
	cs.AgeCodeDict = b.ageCodes.values
	cs.CauseDict = b.causes.values
	cs.CauseCodeDict = b.ccodes.values
	cs.causeNames = b.causeNames
	cs.countyNames = b.countyNames

	// Group-by-year index so per-year aggregation only touches its own rows.
	cs.yearIndex = make(map[int32][]int)
	for i, y := range cs.Years {
		cs.yearIndex[y] = append(cs.yearIndex[y], i)
	}
	cs.universe = observedUniverse(cs)
	return cs
}
