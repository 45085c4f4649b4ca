package engine

import "slices"

// AgeGroups is the canonical display and iteration order of age-group labels.
var AgeGroups = []string{
	"< 1 year",
	"1 - 4 years",
	"5 - 9 years",
	"10 - 14 years",
	"15 - 19 years",
	"20 - 24 years",
	"25 - 34 years",
	"35 - 44 years",
	"45 - 54 years",
	"55 - 64 years",
	"65 - 74 years",
	"75 - 84 years",
	"85+ years",
	"Not Stated",
}

// Universe is the default domain substituted for an All selection, one
// ordered slice per dimension. A nil slice leaves the dimension unconstrained.
type Universe struct {
	Years       []int32  `json:"years"`
	StateCodes  []int32  `json:"state_codes"`
	CountyCodes []int32  `json:"county_codes"`
	AgeGroups   []string `json:"age_groups"`
	Causes      []string `json:"causes"`
	CauseCodes  []string `json:"cause_codes"`
}

// observedUniverse derives the universe from a built store. Years span the
// full observed range so gaps aggregate to zero.
func observedUniverse(cs *ColumnStore) Universe {
	var u Universe
	if len(cs.Years) > 0 {
		lo, hi := slices.Min(cs.Years), slices.Max(cs.Years)
		u.Years = make([]int32, 0, hi-lo+1)
		for y := lo; y <= hi; y++ {
			u.Years = append(u.Years, y)
		}
	}
	u.StateCodes = distinctSorted(cs.StateCodes)
	u.CountyCodes = distinctSorted(cs.CountyCodes)

	observed := make(map[string]bool, len(cs.AgeGroupDict))
	for _, a := range cs.AgeGroupDict {
		observed[a] = true
	}
	for _, a := range AgeGroups {
		if observed[a] {
			u.AgeGroups = append(u.AgeGroups, a)
			delete(observed, a)
		}
	}
	for _, a := range cs.AgeGroupDict {
		if observed[a] {
			u.AgeGroups = append(u.AgeGroups, a)
		}
	}

	u.Causes = slices.Clone(cs.CauseDict)
	u.CauseCodes = slices.Clone(cs.CauseCodeDict)
	return u
}

func distinctSorted(col []int32) []int32 {
	if len(col) == 0 {
		return nil
	}
	out := slices.Clone(col)
	slices.Sort(out)
	return slices.Compact(out)
}
