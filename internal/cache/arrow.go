package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"mortality/internal/config"
	"mortality/internal/engine"
)

// ArrowSchema is the column layout of the Arrow IPC cache. Field names match
// the cleaned CSV header.
var ArrowSchema = arrow.NewSchema([]arrow.Field{
	{Name: "Year", Type: arrow.PrimitiveTypes.Int32},
	{Name: "State", Type: arrow.BinaryTypes.String},
	{Name: "State Code", Type: arrow.PrimitiveTypes.Int32},
	{Name: "County", Type: arrow.BinaryTypes.String},
	{Name: "County Code", Type: arrow.PrimitiveTypes.Int32},
	{Name: "Age Group", Type: arrow.BinaryTypes.String},
	{Name: "Age Group Code", Type: arrow.BinaryTypes.String},
	{Name: "Cause of death", Type: arrow.BinaryTypes.String},
	{Name: "Cause of death Code", Type: arrow.BinaryTypes.String},
	{Name: "Deaths", Type: arrow.PrimitiveTypes.Int64},
	{Name: "Population", Type: arrow.PrimitiveTypes.Int64},
	{Name: "Crude Rate", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "Crude Rate Standard Error", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

// ArrowWriter writes the cleaned table as a single record batch in an Arrow
// IPC file. Missing rates become nulls.
type ArrowWriter struct {
	Path string
}

func (w *ArrowWriter) Format() string { return config.CacheArrow }

func (w *ArrowWriter) Write(ctx context.Context, cs *engine.ColumnStore) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mem := memory.NewGoAllocator()
	rec := buildRecord(mem, cs)
	defer rec.Release()

	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	file, err := os.Create(w.Path)
	if err != nil {
		return fmt.Errorf("create arrow cache: %w", err)
	}
	defer file.Close()

	fw, err := ipc.NewFileWriter(file, ipc.WithSchema(ArrowSchema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("create arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close arrow writer: %w", err)
	}
	if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("close arrow cache: %w", err)
	}
	return nil
}

// buildRecord copies the column store into Arrow arrays. Numeric columns are
// appended as whole slices; dictionary columns are expanded to strings.
func buildRecord(mem memory.Allocator, cs *engine.ColumnStore) arrow.Record {
	b := array.NewRecordBuilder(mem, ArrowSchema)
	defer b.Release()

	n := cs.Len()
	strs := func(field int, ids []int32, dict []string) {
		sb := b.Field(field).(*array.StringBuilder)
		sb.Reserve(n)
		for _, id := range ids {
			sb.Append(dict[id])
		}
	}
	rates := func(field int, vals []float64) {
		fb := b.Field(field).(*array.Float64Builder)
		fb.Reserve(n)
		for _, v := range vals {
			if math.IsNaN(v) {
				fb.AppendNull()
				continue
			}
			fb.Append(v)
		}
	}

	b.Field(0).(*array.Int32Builder).AppendValues(cs.Years, nil)
	strs(1, cs.StateIDs, cs.StateDict)
	b.Field(2).(*array.Int32Builder).AppendValues(cs.StateCodes, nil)
	strs(3, cs.CountyIDs, cs.CountyDict)
	b.Field(4).(*array.Int32Builder).AppendValues(cs.CountyCodes, nil)
	strs(5, cs.AgeGroupIDs, cs.AgeGroupDict)
	strs(6, cs.AgeCodeIDs, cs.AgeCodeDict)
	strs(7, cs.CauseIDs, cs.CauseDict)
	strs(8, cs.CauseCodeIDs, cs.CauseCodeDict)
	b.Field(9).(*array.Int64Builder).AppendValues(cs.Deaths, nil)
	b.Field(10).(*array.Int64Builder).AppendValues(cs.Population, nil)
	rates(11, cs.CrudeRate)
	rates(12, cs.CrudeRateSE)

	return b.NewRecord()
}
