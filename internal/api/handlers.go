package api

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"mortality/internal/engine"
	"mortality/internal/logger"
	"mortality/internal/metrics"
	"mortality/internal/models"
	"mortality/internal/report"
)

// Query kinds accepted by POST /api/query.
const (
	KindRecords  = "records"
	KindSeries   = "series"
	KindDonut    = "donut"
	KindFeatures = "features"
)

const defaultRecordLimit = 100

type dataset struct {
	store    *engine.ColumnStore
	universe engine.Universe
}

type Handler struct {
	data    atomic.Pointer[dataset]
	log     *logger.Logger
	metrics *metrics.Metrics
	topN    int
}

// NewHandler returns a handler with no data. Data routes answer 503 until
// SetData is called.
func NewHandler(log *logger.Logger, m *metrics.Metrics, topN int) *Handler {
	if topN <= 0 {
		topN = engine.DefaultTopCauses
	}
	return &Handler{log: log.WithComponent("api"), metrics: m, topN: topN}
}

// SetData publishes a loaded store to the API.
func (h *Handler) SetData(cs *engine.ColumnStore) {
	h.data.Store(&dataset{store: cs, universe: cs.Universe()})
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)

	api := e.Group("/api", h.requireData)
	api.GET("/records", h.GetRecords)
	api.GET("/series", h.GetSeries)
	api.GET("/donut", h.GetDonut)
	api.GET("/features", h.GetFeatures)
	api.POST("/query", h.PostQuery)
	api.GET("/lookups/causes", h.GetCauses)
	api.GET("/lookups/counties", h.GetCounties)
	api.GET("/universe", h.GetUniverse)
}

func (h *Handler) requireData(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.data.Load() == nil {
			return errLoading
		}
		return next(c)
	}
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(c echo.Context) error {
	d := h.data.Load()
	if d == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "loading"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ready",
		"records": d.store.Len(),
	})
}

// --- HANDLERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func getTopParam(c echo.Context, defaultTop int) (int, error) {
	raw := c.QueryParam("top")
	if raw == "" {
		return defaultTop, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &engine.SelectionError{Field: "top", Value: raw, Reason: "must be a positive integer", Err: engine.ErrInvalidSelection}
	}
	return n, nil
}

func (h *Handler) GetRecords(c echo.Context) error {
	spec, err := ParseSpec(c.QueryParams())
	if err != nil {
		return err
	}
	limit, offset := getPaginationParams(c, defaultRecordLimit)
	return h.respond(c, h.records(spec, limit, offset))
}

func (h *Handler) GetSeries(c echo.Context) error {
	spec, err := ParseSpec(c.QueryParams())
	if err != nil {
		return err
	}
	return h.respond(c, h.series(spec))
}

func (h *Handler) GetDonut(c echo.Context) error {
	spec, err := ParseSpec(c.QueryParams())
	if err != nil {
		return err
	}
	top, err := getTopParam(c, h.topN)
	if err != nil {
		return err
	}
	return h.respond(c, h.donut(spec, top))
}

func (h *Handler) GetFeatures(c echo.Context) error {
	spec, err := ParseSpec(c.QueryParams())
	if err != nil {
		return err
	}
	return h.respond(c, h.features(spec))
}

// PostQuery runs one query described by a JSON body.
func (h *Handler) PostQuery(c echo.Context) error {
	var req models.QueryRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	switch req.Kind {
	case KindRecords:
		limit := req.Limit
		if limit <= 0 {
			limit = defaultRecordLimit
		}
		return h.respond(c, h.records(req.Spec, limit, max(req.Offset, 0)))
	case KindSeries:
		return h.respond(c, h.series(req.Spec))
	case KindDonut:
		top := req.Top
		if top <= 0 {
			top = h.topN
		}
		return h.respond(c, h.donut(req.Spec, top))
	case KindFeatures:
		return h.respond(c, h.features(req.Spec))
	}
	return &engine.SelectionError{Field: "kind", Value: req.Kind, Reason: "unknown query kind", Err: engine.ErrInvalidSelection}
}

func (h *Handler) GetCauses(c echo.Context) error {
	d := h.data.Load()
	return c.JSON(http.StatusOK, models.Entries(d.store.CauseNames()))
}

func (h *Handler) GetCounties(c echo.Context) error {
	d := h.data.Load()
	return c.JSON(http.StatusOK, models.Entries(d.store.CountyNames()))
}

func (h *Handler) GetUniverse(c echo.Context) error {
	return c.JSON(http.StatusOK, h.data.Load().universe)
}

// --- QUERIES ---

// result is a query outcome ready to render.
type result struct {
	body interface{}
	err  error
}

func (h *Handler) respond(c echo.Context, r result) error {
	if r.err != nil {
		return r.err
	}
	return c.JSON(http.StatusOK, r.body)
}

func (h *Handler) observe(kind string, spec engine.Spec, rows int, start time.Time, err error) {
	d := time.Since(start)
	h.metrics.RecordQuery(kind, rows, d, err)
	h.log.LogQuery(kind, spec.String(), rows, d, err)
}

func (h *Handler) records(spec engine.Spec, limit, offset int) result {
	start := time.Now()
	d := h.data.Load()
	v := engine.Filter(d.store, d.universe, spec)
	h.observe(KindRecords, spec, v.Len(), start, nil)

	total := v.Len()
	page := models.Page[models.RecordRow]{Data: []models.RecordRow{}, Total: total, Limit: limit, Offset: offset}
	if offset >= total {
		return result{body: page}
	}
	end := offset + min(limit, total-offset)
	for i := offset; i < end; i++ {
		page.Data = append(page.Data, models.NewRecordRow(v.Record(i)))
	}
	return result{body: page}
}

func (h *Handler) series(spec engine.Spec) result {
	start := time.Now()
	d := h.data.Load()
	points := engine.Aggregate(d.store, d.universe, spec)
	h.observe(KindSeries, spec, len(points), start, nil)

	return result{body: models.SeriesResponse{
		Title:  report.SeriesTitle(spec, spec.Year.Resolve(d.universe.Years)),
		Points: points,
		Total:  engine.TotalDeaths(points),
	}}
}

func (h *Handler) donut(spec engine.Spec, top int) result {
	start := time.Now()
	d := h.data.Load()
	summary, err := engine.Donut(d.store, d.universe, spec, top)
	h.observe(KindDonut, spec, len(summary.Inner), start, err)
	if err != nil {
		return result{err: err}
	}

	title := report.DonutTitle(d.store.CountyNames(), spec, spec.Year.Resolve(d.universe.Years))
	return result{body: models.NewDonutResponse(title, summary, report.Legend(summary.Inner, report.LegendWidth))}
}

func (h *Handler) features(spec engine.Spec) result {
	start := time.Now()
	d := h.data.Load()
	m := engine.Features(engine.Filter(d.store, d.universe, spec))
	h.observe(KindFeatures, spec, m.Len(), start, nil)
	return result{body: models.NewFeaturesResponse(m)}
}
