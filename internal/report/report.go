// Package report assembles the inputs of the three charts (year series,
// nested donut, feature matrix) and renders them as a plain-text report.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"mortality/internal/engine"
)

// LegendWidth is the column at which legend entries wrap.
const LegendWidth = 50

// Options selects what the report covers.
type Options struct {
	Spec        engine.Spec
	FeatureSpec engine.Spec
	TopN        int
}

// Report holds every chart input together with its title.
type Report struct {
	SeriesTitle string
	Series      []engine.YearTotal
	DonutTitle  string
	Donut       engine.DonutSummary
	Legend      []string
	Features    engine.FeatureMatrix
}

// Build runs the aggregator, donut derivation and feature projection.
// It fails with engine.ErrEmptySelection when the donut selection is empty.
func Build(cs *engine.ColumnStore, u engine.Universe, opts Options) (Report, error) {
	years := opts.Spec.Year.Resolve(u.Years)
	donut, err := engine.Donut(cs, u, opts.Spec, opts.TopN)
	if err != nil {
		return Report{}, fmt.Errorf("donut summary: %w", err)
	}
	return Report{
		SeriesTitle: SeriesTitle(opts.Spec, years),
		Series:      engine.Aggregate(cs, u, opts.Spec),
		DonutTitle:  DonutTitle(cs.CountyNames(), opts.Spec, years),
		Donut:       donut,
		Legend:      Legend(donut.Inner, LegendWidth),
		Features:    engine.Features(engine.Filter(cs, u, opts.FeatureSpec)),
	}, nil
}

// SeriesTitle names the time-series plot.
func SeriesTitle(spec engine.Spec, years []int32) string {
	age := ageLabel(spec)
	switch len(years) {
	case 0:
		return "All deaths for ages " + age
	case 1:
		return fmt.Sprintf("All deaths for ages %s for %d", age, years[0])
	}
	return fmt.Sprintf("All deaths for ages %s from %d to %d", age, years[0], years[len(years)-1])
}

// DonutTitle names the donut chart: county, year span, then the age group on
// a second line.
func DonutTitle(counties *engine.Lookup[int32], spec engine.Spec, years []int32) string {
	var b strings.Builder
	b.WriteString(countyLabel(counties, spec))
	switch len(years) {
	case 0:
	case 1:
		fmt.Fprintf(&b, " %d", years[0])
	default:
		fmt.Fprintf(&b, " %d - %d", years[0], years[len(years)-1])
	}
	b.WriteString("\nAges ")
	b.WriteString(ageLabel(spec))
	return b.String()
}

// Legend lists "<code>: <name>" for each named inner slice, word-wrapped at
// width. The others bucket has no legend entry.
func Legend(inner []engine.CauseSlice, width int) []string {
	out := make([]string, 0, len(inner))
	for _, s := range inner {
		if s.Others {
			continue
		}
		out = append(out, wrap(s.Code+": "+s.Name, width))
	}
	return out
}

func ageLabel(spec engine.Spec) string {
	if spec.AgeGroup.IsAll() {
		return "all ages"
	}
	vals := spec.AgeGroup.Values()
	for i, v := range vals {
		vals[i] = engine.NormalizeAgeGroup(v)
	}
	return strings.Join(vals, ", ")
}

// countyLabel names the first selected county, even when several are
// selected.
func countyLabel(counties *engine.Lookup[int32], spec engine.Spec) string {
	code, ok := spec.CountyCode.First()
	if !ok {
		return "All counties"
	}
	if name, ok := counties.Name(code); ok {
		return name
	}
	return "County " + strconv.Itoa(int(code))
}

// wrap greedily breaks text into lines of at most width columns. Words longer
// than width stay on their own line.
func wrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	lineLen := 0
	for i, w := range words {
		if i > 0 {
			if lineLen+1+len(w) > width {
				b.WriteByte('\n')
				lineLen = 0
			} else {
				b.WriteByte(' ')
				lineLen++
			}
		}
		b.WriteString(w)
		lineLen += len(w)
	}
	return b.String()
}

// Write renders the report as aligned text.
func Write(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "== %s ==\n", r.SeriesTitle)
	fmt.Fprintln(tw, "Year\tDeaths")
	for _, p := range r.Series {
		fmt.Fprintf(tw, "%d\t%d\n", p.Year, p.Deaths)
	}
	fmt.Fprintf(tw, "Total\t%d\n\n", engine.TotalDeaths(r.Series))

	fmt.Fprintf(tw, "== %s ==\n", strings.ReplaceAll(r.DonutTitle, "\n", " / "))
	fmt.Fprintf(tw, "Population\t%d\n", r.Donut.Population)
	fmt.Fprintf(tw, "Alive\t%d\t%s\n", r.Donut.Alive, percent(r.Donut.Alive, r.Donut.Population))
	fmt.Fprintf(tw, "Deceased\t%d\t%s\n", r.Donut.Dead, percent(r.Donut.Dead, r.Donut.Population))
	for _, s := range r.Donut.Inner {
		fmt.Fprintf(tw, "  %s\t%d\t%s\n", s.Label, s.Deaths, percent(s.Deaths, r.Donut.Dead))
	}
	for _, l := range r.Legend {
		fmt.Fprintf(tw, "  %s\n", strings.ReplaceAll(l, "\n", "\n    "))
	}
	fmt.Fprintln(tw)

	names := make([]string, len(r.Features.Columns))
	for i, c := range r.Features.Columns {
		names[i] = c.Name
	}
	fmt.Fprintf(tw, "== Feature matrix ==\n")
	fmt.Fprintf(tw, "Rows\t%d\n", r.Features.Len())
	fmt.Fprintf(tw, "Columns\t%s\n", strings.Join(names, ", "))

	return tw.Flush()
}

func percent(part, whole int64) string {
	if whole == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", float64(part)*100/float64(whole))
}
