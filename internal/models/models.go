package models

import (
	"math"

	"mortality/internal/engine"
)

// Page is one window of a paginated listing.
type Page[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type RecordRow struct {
	Year         int32    `json:"year"`
	State        string   `json:"state"`
	StateCode    int32    `json:"state_code"`
	County       string   `json:"county"`
	CountyCode   int32    `json:"county_code"`
	AgeGroup     string   `json:"age_group"`
	AgeGroupCode string   `json:"age_group_code"`
	Cause        string   `json:"cause"`
	CauseCode    string   `json:"cause_code"`
	Deaths       int64    `json:"deaths"`
	Population   int64    `json:"population"`
	CrudeRate    *float64 `json:"crude_rate"`
	CrudeRateSE  *float64 `json:"crude_rate_se"`
}

// NewRecordRow converts a record, mapping missing rates to null.
func NewRecordRow(r engine.Record) RecordRow {
	return RecordRow{
		Year:         r.Year,
		State:        r.State,
		StateCode:    r.StateCode,
		County:       r.County,
		CountyCode:   r.CountyCode,
		AgeGroup:     r.AgeGroup,
		AgeGroupCode: r.AgeGroupCode,
		Cause:        r.Cause,
		CauseCode:    r.CauseCode,
		Deaths:       r.Deaths,
		Population:   r.Population,
		CrudeRate:    optional(r.CrudeRate),
		CrudeRateSE:  optional(r.CrudeRateSE),
	}
}

func optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

type SeriesResponse struct {
	Title  string             `json:"title"`
	Points []engine.YearTotal `json:"points"`
	Total  int64              `json:"total"`
}

// OuterSlice is one half of the donut's outer ring.
type OuterSlice struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type DonutResponse struct {
	Title       string              `json:"title"`
	Population  int64               `json:"population"`
	Outer       []OuterSlice        `json:"outer"`
	Inner       []engine.CauseSlice `json:"inner"`
	OthersCount int                 `json:"others_count"`
	Legend      []string            `json:"legend"`
}

// NewDonutResponse lays the summary out as chart rings.
func NewDonutResponse(title string, d engine.DonutSummary, legend []string) DonutResponse {
	return DonutResponse{
		Title:      title,
		Population: d.Population,
		Outer: []OuterSlice{
			{Label: "Alive", Count: d.Alive},
			{Label: "Deceased", Count: d.Dead},
		},
		Inner:       d.Inner,
		OthersCount: d.OthersCount,
		Legend:      legend,
	}
}

type FeaturesResponse struct {
	Columns []engine.FeatureColumn `json:"columns"`
	Rows    int                    `json:"rows"`
	Data    [][]any                `json:"data"`
}

// NewFeaturesResponse converts the column-major matrix into rows.
func NewFeaturesResponse(m engine.FeatureMatrix) FeaturesResponse {
	data := make([][]any, m.Len())
	for i := range data {
		data[i] = []any{m.Year[i], m.County[i], m.AgeGroup[i], m.Cause[i], m.Deaths[i]}
	}
	return FeaturesResponse{Columns: m.Columns, Rows: m.Len(), Data: data}
}

// LookupEntry is one code to name pair.
type LookupEntry[K comparable] struct {
	Code K      `json:"code"`
	Name string `json:"name"`
}

// Entries lists a lookup in first-observed order.
func Entries[K comparable](l *engine.Lookup[K]) []LookupEntry[K] {
	codes := l.Codes()
	out := make([]LookupEntry[K], 0, len(codes))
	for _, c := range codes {
		name, _ := l.Name(c)
		out = append(out, LookupEntry[K]{Code: c, Name: name})
	}
	return out
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Spec   engine.Spec `json:"spec"`
	Kind   string      `json:"kind"`
	Top    int         `json:"top,omitempty"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}
