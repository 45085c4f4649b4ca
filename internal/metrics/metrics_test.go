package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordLoad(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordLoad(120, time.Second, nil)
	m.RecordLoad(0, time.Second, errors.New("bad file"))

	if got := testutil.ToFloat64(m.RecordsLoaded); got != 120 {
		t.Errorf("Expected 120 records loaded, got %v", got)
	}
	if got := testutil.ToFloat64(m.LoadsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("Expected 1 successful load, got %v", got)
	}
	if got := testutil.ToFloat64(m.LoadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("Expected 1 failed load, got %v", got)
	}
}

func TestRecordQuery(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordQuery("series", 18, time.Millisecond, nil)
	m.RecordQuery("series", 4, time.Millisecond, nil)
	m.RecordQuery("donut", 0, time.Millisecond, errors.New("empty selection"))
	m.RecordCacheWrite("csv", nil)

	if got := testutil.ToFloat64(m.QueriesTotal.WithLabelValues("series", "success")); got != 2 {
		t.Errorf("Expected 2 series queries, got %v", got)
	}
	if got := testutil.ToFloat64(m.QueriesTotal.WithLabelValues("donut", "error")); got != 1 {
		t.Errorf("Expected 1 failed donut query, got %v", got)
	}
	if got := testutil.ToFloat64(m.CacheWritesTotal.WithLabelValues("csv", "success")); got != 1 {
		t.Errorf("Expected 1 cache write, got %v", got)
	}
}
