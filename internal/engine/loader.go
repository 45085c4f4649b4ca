package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Column names of the CDC mortality export.
const (
	colYear        = "Year"
	colYearCode    = "Year Code"
	colState       = "State"
	colStateCode   = "State Code"
	colCounty      = "County"
	colCountyCode  = "County Code"
	colAgeGroup    = "Age Group"
	colAgeCode     = "Age Group Code"
	colCause       = "Cause of death"
	colCauseCode   = "Cause of death Code"
	colDeaths      = "Deaths"
	colPopulation  = "Population"
	colCrudeRate   = "Crude Rate"
	colCrudeRateSE = "Crude Rate Standard Error"
	colNotes       = "Notes"
)

// Columns is the cleaned table header, in output order. Year Code is not
// part of it.
var Columns = []string{
	colYear, colState, colStateCode, colCounty, colCountyCode,
	colAgeGroup, colAgeCode, colCause, colCauseCode,
	colDeaths, colPopulation, colCrudeRate, colCrudeRateSE,
}

// --- 2. MAIN LOADER ---

// LoadColumnar reads and cleans the mortality CSV at path.
func LoadColumnar(path string) (*ColumnStore, error) {
	start := time.Now()
	log.Info().Str("path", path).Msg("Loading mortality table...")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mortality table: %w", err)
	}
	defer f.Close()

	cs, err := LoadColumnarFrom(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	log.Info().
		Int("rows", cs.Len()).
		Int("causes", cs.CauseNames().Len()).
		Int("counties", cs.CountyNames().Len()).
		Dur("elapsed", time.Since(start)).
		Msg("Load Complete")
	return cs, nil
}

// LoadColumnarFrom reads and cleans a mortality CSV from r.
func LoadColumnarFrom(r io.Reader) (*ColumnStore, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // footer note rows are ragged
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &IntegrityError{Field: "header", Reason: "empty input"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	b := newStoreBuilder(1024)
	fill := &populationFill{}
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)

		// Footer and total rows carry notes but no year.
		if idx.get(fields, colYear) == "" || idx.get(fields, colNotes) == "Total" {
			continue
		}
		rec, err := parseRow(line, fields, idx, fill)
		if err != nil {
			return nil, err
		}
		if err := b.add(line, rec); err != nil {
			return nil, err
		}
	}
	return b.build(), nil
}

type columnIndex map[string]int

// resolveColumns maps every required column to its header position.
func resolveColumns(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.Trim(h, "\"\ufeff"))
		if h == colYearCode {
			continue
		}
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	var missing []string
	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &IntegrityError{Field: "header", Value: strings.Join(missing, ", "), Reason: "missing required columns"}
	}
	return idx, nil
}

func (idx columnIndex) get(fields []string, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func parseRow(line int, fields []string, idx columnIndex, fill *populationFill) (Record, error) {
	var (
		rec Record
		err error
	)
	if rec.Year, err = parseCode(line, colYear, idx.get(fields, colYear)); err != nil {
		return rec, err
	}
	if rec.StateCode, err = parseCode(line, colStateCode, idx.get(fields, colStateCode)); err != nil {
		return rec, err
	}
	if rec.CountyCode, err = parseCode(line, colCountyCode, idx.get(fields, colCountyCode)); err != nil {
		return rec, err
	}
	if rec.Deaths, err = parseCount(line, colDeaths, idx.get(fields, colDeaths)); err != nil {
		return rec, err
	}
	if rec.Population, err = fill.next(line, idx.get(fields, colPopulation)); err != nil {
		return rec, err
	}
	if rec.CrudeRate, err = parseCrudeRate(line, idx.get(fields, colCrudeRate)); err != nil {
		return rec, err
	}
	if rec.CrudeRateSE, err = parseOptionalFloat(line, colCrudeRateSE, idx.get(fields, colCrudeRateSE)); err != nil {
		return rec, err
	}

	rec.State = NormalizeLabel(idx.get(fields, colState))
	rec.County = NormalizeLabel(idx.get(fields, colCounty))
	rec.AgeGroup = NormalizeAgeGroup(idx.get(fields, colAgeGroup))
	rec.AgeGroupCode = NormalizeLabel(idx.get(fields, colAgeCode))
	rec.Cause = NormalizeLabel(idx.get(fields, colCause))
	rec.CauseCode = NormalizeLabel(idx.get(fields, colCauseCode))
	return rec, nil
}
