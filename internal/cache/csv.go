package cache

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"mortality/internal/config"
	"mortality/internal/engine"
)

// CSVWriter writes the cleaned table as CSV with the same header names as the
// input, minus Year Code. Missing rates are written as empty cells.
type CSVWriter struct {
	Path string
}

func (w *CSVWriter) Format() string { return config.CacheCSV }

func (w *CSVWriter) Write(ctx context.Context, cs *engine.ColumnStore) error {
	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	file, err := os.Create(w.Path)
	if err != nil {
		return fmt.Errorf("create csv cache: %w", err)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	out := csv.NewWriter(buf)
	if err := out.Write(engine.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(engine.Columns))
	for i := 0; i < cs.Len(); i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		r := cs.Record(i)
		row[0] = strconv.Itoa(int(r.Year))
		row[1] = r.State
		row[2] = strconv.Itoa(int(r.StateCode))
		row[3] = r.County
		row[4] = strconv.Itoa(int(r.CountyCode))
		row[5] = r.AgeGroup
		row[6] = r.AgeGroupCode
		row[7] = r.Cause
		row[8] = r.CauseCode
		row[9] = strconv.FormatInt(r.Deaths, 10)
		row[10] = strconv.FormatInt(r.Population, 10)
		row[11] = formatRate(r.CrudeRate)
		row[12] = formatRate(r.CrudeRateSE)
		if err := out.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return fmt.Errorf("flush csv cache: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flush csv cache: %w", err)
	}
	return file.Close()
}

func formatRate(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
