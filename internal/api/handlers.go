package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/ga4-reporter/internal/ga4"
	"github.com/ignite/ga4-reporter/internal/pkg/httputil"
	"github.com/ignite/ga4-reporter/internal/seo"
)

// QueryDefaults carries the config-level fan-out defaults applied when a
// request does not override them.
type QueryDefaults struct {
	RowLimit    int64
	Concurrency int
	Policy      ga4.FailurePolicy
}

// Handlers holds the dependencies every endpoint needs. The ga4 client is
// caller-owned and shared; no handler keeps state between requests.
type Handlers struct {
	client   *ga4.Client
	sources  ga4.SourceMap
	defaults QueryDefaults
	kg       *seo.KnowledgeGraphClient
	robots   *seo.Fetcher
}

// NewHandlers creates the handler set.
func NewHandlers(client *ga4.Client, sources ga4.SourceMap, defaults QueryDefaults, kg *seo.KnowledgeGraphClient, robots *seo.Fetcher) *Handlers {
	return &Handlers{client: client, sources: sources, defaults: defaults, kg: kg, robots: robots}
}

// requestTimeout bounds one fan-out end to end so a slow property cannot
// stall a report past what a dashboard will wait for.
const requestTimeout = 2 * time.Minute

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"sources": len(h.sources),
	})
}

// ListSources returns the configured label→property mapping.
func (h *Handlers) ListSources(w http.ResponseWriter, r *http.Request) {
	type source struct {
		Label      string `json:"label"`
		PropertyID string `json:"property_id"`
	}
	out := make([]source, len(h.sources))
	for i, s := range h.sources {
		out[i] = source{Label: s.Label, PropertyID: s.PropertyID}
	}
	httputil.OK(w, out)
}

// ListReports returns the pre-built report catalog.
func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	type report struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Dimensions  []string `json:"dimensions"`
		Metrics     []string `json:"metrics"`
		Derived     []string `json:"derived,omitempty"`
	}
	var out []report
	for _, name := range ga4.ReportNames() {
		spec, _ := ga4.ReportByName(name)
		rep := report{
			Name:        spec.Name,
			Description: spec.Description,
			Dimensions:  spec.Dimensions,
			Metrics:     spec.Metrics,
		}
		for _, d := range spec.Derived {
			rep.Derived = append(rep.Derived, d.Name)
		}
		out = append(out, rep)
	}
	httputil.OK(w, out)
}

// tableResponse is the JSON shape every table-returning endpoint shares.
type tableResponse struct {
	Report    string        `json:"report,omitempty"`
	Columns   []string      `json:"columns"`
	Rows      [][]ga4.Value `json:"rows"`
	RowCount  int           `json:"row_count"`
	Truncated bool          `json:"truncated,omitempty"`
	Failures  []failureInfo `json:"failures,omitempty"`
}

type failureInfo struct {
	Label string `json:"label"`
	Error string `json:"error"`
}

// RunReport executes a named pre-built report.
// GET /api/reports/{name}?start=&end=&labels=US,UK&policy=&limit=
func (h *Handlers) RunReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := ga4.ReportByName(name); err != nil {
		httputil.NotFound(w, err.Error())
		return
	}

	opts, ok := h.reportOptions(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	table, err := h.client.RunReport(ctx, h.sources, name, opts)
	h.writeTable(w, name, table, err)
}

// RunQuery executes an ad-hoc fan-out query.
// GET /api/query?dimensions=date&metrics=sessions,transactions&start=&end=&labels=
func (h *Handlers) RunQuery(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.reportOptions(w, r)
	if !ok {
		return
	}
	dimensions := splitParam(r.URL.Query().Get("dimensions"))
	metrics := splitParam(r.URL.Query().Get("metrics"))
	if len(metrics) == 0 {
		httputil.BadRequest(w, "metrics parameter is required")
		return
	}

	start := opts.StartDate
	if start == "" {
		start = "30daysAgo"
	}
	end := opts.EndDate
	if end == "" {
		end = "yesterday"
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	table, err := h.client.QueryAll(ctx, h.sources, ga4.MultiQuerySpec{
		StartDate:   start,
		EndDate:     end,
		Dimensions:  dimensions,
		Metrics:     metrics,
		RowLimit:    opts.RowLimit,
		OnlyLabels:  opts.OnlyLabels,
		Policy:      opts.Policy,
		Concurrency: opts.Concurrency,
	})
	h.writeTable(w, "", table, err)
}

// Robots parses a robots.txt file into a directive table.
// GET /api/seo/robots?url=https://example.com/robots.txt
func (h *Handlers) Robots(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		httputil.BadRequest(w, "url parameter is required")
		return
	}
	directives, err := h.robots.Robots(r.Context(), url)
	if err != nil {
		httputil.Error(w, http.StatusBadGateway, err.Error())
		return
	}
	httputil.OK(w, directives)
}

// KnowledgeGraph looks a term up in the Google Knowledge Graph.
// GET /api/seo/knowledge-graph?query=nike&limit=10
func (h *Handlers) KnowledgeGraph(w http.ResponseWriter, r *http.Request) {
	if h.kg == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "knowledge graph lookups are not configured (set knowledge_graph.api_key)")
		return
	}
	query := r.URL.Query().Get("query")
	if query == "" {
		httputil.BadRequest(w, "query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entities, err := h.kg.Search(r.Context(), query, limit)
	if err != nil {
		httputil.Error(w, http.StatusBadGateway, err.Error())
		return
	}
	httputil.OK(w, entities)
}

// reportOptions parses the shared query parameters. Returns ok=false
// after writing an error response.
func (h *Handlers) reportOptions(w http.ResponseWriter, r *http.Request) (ga4.ReportOptions, bool) {
	q := r.URL.Query()

	opts := ga4.ReportOptions{
		StartDate:   q.Get("start"),
		EndDate:     q.Get("end"),
		OnlyLabels:  splitParam(q.Get("labels")),
		RowLimit:    h.defaults.RowLimit,
		Policy:      h.defaults.Policy,
		Concurrency: h.defaults.Concurrency,
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return opts, false
		}
		opts.RowLimit = n
	}
	if v := q.Get("policy"); v != "" {
		policy, err := ga4.ParseFailurePolicy(v)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return opts, false
		}
		opts.Policy = policy
	}
	return opts, true
}

// writeTable maps query outcomes to HTTP. A partial failure under
// best-effort is still a 200: the caller gets the surviving rows plus an
// explicit failure list, mirroring the library contract.
func (h *Handlers) writeTable(w http.ResponseWriter, report string, table *ga4.Table, err error) {
	var partial *ga4.PartialFailure
	if err != nil && !errors.As(err, &partial) {
		writeQueryError(w, err)
		return
	}

	resp := tableResponse{
		Report:    report,
		Columns:   table.Columns,
		Rows:      table.Rows,
		RowCount:  len(table.Rows),
		Truncated: table.Truncated,
	}
	if partial != nil {
		for _, f := range partial.Failures {
			resp.Failures = append(resp.Failures, failureInfo{Label: f.Label, Error: f.Err.Error()})
		}
	}
	httputil.OK(w, resp)
}

// writeQueryError translates the ga4 error taxonomy to status codes:
// caller mistakes are 4xx, upstream trouble is 5xx gateway-flavored.
func writeQueryError(w http.ResponseWriter, err error) {
	var (
		invalidField *ga4.InvalidFieldError
		invalidRange *ga4.InvalidDateRangeError
		unknownLabel *ga4.UnknownLabelError
		authErr      *ga4.AuthError
		rateLimited  *ga4.RateLimitedError
		transient    *ga4.TransientError
	)
	switch {
	case errors.As(err, &invalidField), errors.As(err, &invalidRange), errors.As(err, &unknownLabel):
		httputil.BadRequest(w, err.Error())
	case errors.As(err, &authErr):
		httputil.Error(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &rateLimited):
		if rateLimited.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(rateLimited.RetryAfter.Seconds())))
		}
		httputil.Error(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &transient):
		httputil.Error(w, http.StatusBadGateway, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

func splitParam(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
