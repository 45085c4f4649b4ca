package engine

// FeatureColumn describes one column of the pairwise feature matrix.
type FeatureColumn struct {
	Name    string `json:"name"`
	Numeric bool   `json:"numeric"`
}

// FeatureColumns are the columns kept for the scatter matrix. Codes,
// population and rates are dropped.
var FeatureColumns = []FeatureColumn{
	{Name: colYear, Numeric: true},
	{Name: colCounty},
	{Name: colAgeGroup},
	{Name: colCause},
	{Name: colDeaths, Numeric: true},
}

// FeatureMatrix is the columnar projection behind the pairwise scatter plot.
type FeatureMatrix struct {
	Columns  []FeatureColumn `json:"columns"`
	Year     []int32         `json:"year"`
	County   []string        `json:"county"`
	AgeGroup []string        `json:"age_group"`
	Cause    []string        `json:"cause"`
	Deaths   []int64         `json:"deaths"`
}

// Len returns the number of rows.
func (m FeatureMatrix) Len() int { return len(m.Year) }

// Features projects a view onto the feature columns.
func Features(v View) FeatureMatrix {
	cs := v.store
	n := v.Len()
	m := FeatureMatrix{
		Columns:  FeatureColumns,
		Year:     make([]int32, n),
		County:   make([]string, n),
		AgeGroup: make([]string, n),
		Cause:    make([]string, n),
		Deaths:   make([]int64, n),
	}
	for i, r := range v.rows {
		m.Year[i] = cs.Years[r]
		m.County[i] = cs.CountyDict[cs.CountyIDs[r]]
		m.AgeGroup[i] = cs.AgeGroupDict[cs.AgeGroupIDs[r]]
		m.Cause[i] = cs.CauseDict[cs.CauseIDs[r]]
		m.Deaths[i] = cs.Deaths[r]
	}
	return m
}
