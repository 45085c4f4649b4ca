package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"mortality/internal/engine"
	"mortality/internal/logger"
	"mortality/internal/metrics"
	"mortality/internal/models"
)

func testServer(t *testing.T, loaded bool) *echo.Echo {
	t.Helper()
	reg := prometheus.NewRegistry()
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	h := NewHandler(log, metrics.New(reg), 2)

	if loaded {
		mk := func(year, county int32, name, code string, deaths, pop int64) engine.Record {
			return engine.Record{
				Year: year, State: "California", StateCode: 6,
				County: name, CountyCode: county,
				AgeGroup: "85+ years", AgeGroupCode: "85+",
				Cause: "Cause " + code, CauseCode: code,
				Deaths: deaths, Population: pop,
			}
		}
		cs, err := engine.NewColumnStore([]engine.Record{
			mk(1999, 6073, "San Diego County, CA", "A", 50, 5000),
			mk(1999, 6073, "San Diego County, CA", "B", 40, 5000),
			mk(1999, 6073, "San Diego County, CA", "C", 30, 5000),
			mk(2000, 6073, "San Diego County, CA", "A", 12, 5100),
			mk(1999, 6001, "Alameda County, CA", "A", 7, 4000),
		})
		if err != nil {
			t.Fatal(err)
		}
		h.SetData(cs)
	}
	return NewServer(h, log, reg)
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestLoadingReturns503(t *testing.T) {
	e := testServer(t, false)

	if rec := do(e, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz: expected 503, got %d", rec.Code)
	}
	rec := do(e, http.MethodGet, "/api/series", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("series: expected 503, got %d", rec.Code)
	}
	if got := decode[models.ErrorResponse](t, rec); got.Error != "data is still loading" {
		t.Errorf("Unexpected error body %+v", got)
	}
}

func TestGetSeries(t *testing.T) {
	e := testServer(t, true)
	rec := do(e, http.MethodGet, "/api/series?year=1999-2001&county=6073", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	got := decode[models.SeriesResponse](t, rec)
	want := []engine.YearTotal{{Year: 1999, Deaths: 120}, {Year: 2000, Deaths: 12}, {Year: 2001, Deaths: 0}}
	if len(got.Points) != len(want) {
		t.Fatalf("Expected %d points, got %+v", len(want), got.Points)
	}
	for i := range want {
		if got.Points[i] != want[i] {
			t.Errorf("Point %d: expected %+v, got %+v", i, want[i], got.Points[i])
		}
	}
	if got.Total != 132 {
		t.Errorf("Expected total 132, got %d", got.Total)
	}
	if got.Title != "All deaths for ages all ages from 1999 to 2001" {
		t.Errorf("Unexpected title %q", got.Title)
	}
}

func TestGetDonut(t *testing.T) {
	e := testServer(t, true)
	rec := do(e, http.MethodGet, "/api/donut?year=1999&county=6073", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	got := decode[models.DonutResponse](t, rec)
	if got.Population != 5000 || got.Outer[0].Count != 4880 || got.Outer[1].Count != 120 {
		t.Errorf("Unexpected rings %+v", got)
	}
	// top is 2 by handler default, so C folds into the others bucket.
	if len(got.Inner) != 3 || got.Inner[2].Label != "1 others combined" || got.OthersCount != 1 {
		t.Errorf("Unexpected inner ring %+v", got.Inner)
	}
	if len(got.Legend) != 2 || got.Legend[0] != "A: Cause A" {
		t.Errorf("Unexpected legend %v", got.Legend)
	}
	if got.Title != "San Diego County, CA 1999\nAges all ages" {
		t.Errorf("Unexpected title %q", got.Title)
	}
}

func TestErrorMapping(t *testing.T) {
	e := testServer(t, true)
	tests := []struct {
		name   string
		target string
		status int
		field  string
	}{
		{"empty selection", "/api/donut?county=1", http.StatusNotFound, "spec"},
		{"population varies", "/api/donut?year=1999", http.StatusUnprocessableEntity, "Population"},
		{"bad year", "/api/series?year=abc", http.StatusBadRequest, "year"},
		{"bad top", "/api/donut?top=0", http.StatusBadRequest, "top"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodGet, tt.target, "")
			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, rec.Code, rec.Body)
			}
			if got := decode[models.ErrorResponse](t, rec); got.Field != tt.field {
				t.Errorf("Expected field %q, got %+v", tt.field, got)
			}
		})
	}
}

func TestGetRecordsPagination(t *testing.T) {
	e := testServer(t, true)
	rec := do(e, http.MethodGet, "/api/records?county=6073&limit=2&offset=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	got := decode[models.Page[models.RecordRow]](t, rec)
	if got.Total != 4 || len(got.Data) != 2 || got.Offset != 1 {
		t.Fatalf("Unexpected page %+v", got)
	}
	if got.Data[0].CauseCode != "B" || got.Data[0].Deaths != 40 {
		t.Errorf("Unexpected first row %+v", got.Data[0])
	}

	rec = do(e, http.MethodGet, "/api/records?offset=50", "")
	if got := decode[models.Page[models.RecordRow]](t, rec); len(got.Data) != 0 || got.Total != 5 {
		t.Errorf("Expected empty page past the end, got %+v", got)
	}
}

func TestGetRecordsHugeLimit(t *testing.T) {
	e := testServer(t, true)
	rec := do(e, http.MethodGet, "/api/records?limit=9223372036854775807&offset=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	got := decode[models.Page[models.RecordRow]](t, rec)
	if got.Total != 5 || len(got.Data) != 4 {
		t.Errorf("Expected the 4 rows after offset 1, got total=%d returned=%d", got.Total, len(got.Data))
	}
}

func TestPostQuery(t *testing.T) {
	e := testServer(t, true)

	rec := do(e, http.MethodPost, "/api/query", `{"kind":"donut","top":5,"spec":{"year":1999,"county_code":[6073]}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if got := decode[models.DonutResponse](t, rec); len(got.Inner) != 3 || got.OthersCount != 0 {
		t.Errorf("Unexpected donut %+v", got)
	}

	rec = do(e, http.MethodPost, "/api/query", `{"kind":"features","spec":{"county_code":6001}}`)
	if got := decode[models.FeaturesResponse](t, rec); got.Rows != 1 || len(got.Columns) != 5 {
		t.Errorf("Unexpected features %+v", got)
	}

	rec = do(e, http.MethodPost, "/api/query", `{"kind":"pie","spec":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Unknown kind: expected 400, got %d", rec.Code)
	}
	rec = do(e, http.MethodPost, "/api/query", `{"kind":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Malformed body: expected 400, got %d", rec.Code)
	}
}

func TestLookupsAndMetrics(t *testing.T) {
	e := testServer(t, true)

	rec := do(e, http.MethodGet, "/api/lookups/counties", "")
	counties := decode[[]models.LookupEntry[int32]](t, rec)
	if len(counties) != 2 || counties[0].Code != 6073 || counties[0].Name != "San Diego County, CA" {
		t.Errorf("Unexpected counties %+v", counties)
	}
	rec = do(e, http.MethodGet, "/api/universe", "")
	if u := decode[engine.Universe](t, rec); len(u.Years) != 2 || len(u.CountyCodes) != 2 {
		t.Errorf("Unexpected universe %+v", u)
	}

	do(e, http.MethodGet, "/api/series", "")
	rec = do(e, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), `mortality_queries_total{kind="series",status="success"} 1`) {
		t.Errorf("Expected series query counter in metrics output")
	}
}
