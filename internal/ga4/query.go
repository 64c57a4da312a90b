package ga4

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ignite/ga4-reporter/internal/pkg/logger"
)

// DefaultRowLimit caps how many rows a single-property query accumulates
// when the spec does not say otherwise.
const DefaultRowLimit int64 = 10000

// QuerySpec describes one single-property report query. Dates accept
// absolute YYYY-MM-DD values or the relative tokens "today", "yesterday"
// and "NdaysAgo"; relative tokens resolve when Query runs, not when the
// spec is built.
type QuerySpec struct {
	PropertyID string
	StartDate  string
	EndDate    string
	Dimensions []string
	Metrics    []string
	RowLimit   int64 // 0 means DefaultRowLimit
}

// Query runs one report against a single property and returns a flat
// table whose columns are the requested dimensions followed by the
// requested metrics. Pagination is handled internally: rows accumulate
// until the remote is exhausted or RowLimit is reached, in which case
// Table.Truncated is set.
func (c *Client) Query(ctx context.Context, spec QuerySpec) (*Table, error) {
	if err := validateFields(spec.Dimensions, spec.Metrics); err != nil {
		return nil, err
	}
	start, end, err := resolveDateRange(spec.StartDate, spec.EndDate, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	limit := spec.RowLimit
	if limit <= 0 {
		limit = DefaultRowLimit
	}

	dims := make([]apiDimension, len(spec.Dimensions))
	for i, d := range spec.Dimensions {
		dims[i] = apiDimension{Name: d}
	}
	mets := make([]apiMetric, len(spec.Metrics))
	for i, m := range spec.Metrics {
		mets[i] = apiMetric{Name: m}
	}

	columns := make([]string, 0, len(spec.Dimensions)+len(spec.Metrics))
	columns = append(columns, spec.Dimensions...)
	columns = append(columns, spec.Metrics...)
	table := NewTable(columns)

	var fetched int64
	for {
		want := pageSize
		if remaining := limit - fetched; remaining < want {
			want = remaining
		}
		resp, err := c.runReport(ctx, spec.PropertyID, runReportRequest{
			Dimensions: dims,
			Metrics:    mets,
			DateRanges: []apiDateRange{{StartDate: start, EndDate: end}},
			Limit:      want,
			Offset:     fetched,
		})
		if err != nil {
			return nil, err
		}

		for _, row := range resp.Rows {
			if len(row.DimensionValues) != len(spec.Dimensions) || len(row.MetricValues) != len(spec.Metrics) {
				return nil, &SchemaMismatchError{Want: columns, Got: responseColumns(resp)}
			}
			cells := make([]Value, 0, len(columns))
			for _, dv := range row.DimensionValues {
				cells = append(cells, StringValue(dv.Value))
			}
			for _, mv := range row.MetricValues {
				cells = append(cells, numericCell(mv.Value))
			}
			if err := table.AppendRow(cells); err != nil {
				return nil, err
			}
		}

		fetched += int64(len(resp.Rows))
		if len(resp.Rows) == 0 || fetched >= resp.RowCount {
			break
		}
		if fetched >= limit {
			table.Truncated = resp.RowCount > limit
			break
		}
	}

	if table.Truncated {
		logger.Warn("query truncated at row limit",
			"property", spec.PropertyID, "limit", limit)
	}
	return table, nil
}

// numericCell parses a metric value off the wire. The API sends all
// metrics as strings; anything unparsable becomes a null cell rather than
// a fabricated zero.
func numericCell(s string) Value {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NullValue()
	}
	return NumberValue(f)
}

func responseColumns(resp *runReportResponse) []string {
	var cols []string
	for _, h := range resp.DimensionHeaders {
		cols = append(cols, h.Name)
	}
	for _, h := range resp.MetricHeaders {
		cols = append(cols, h.Name)
	}
	return cols
}

// FailurePolicy controls what QueryAll does when one source's query
// fails. The zero value is BestEffort: a single country's outage should
// degrade a global report, not destroy it.
type FailurePolicy int

const (
	// BestEffort returns rows from every source that succeeded together
	// with a *PartialFailure error listing the sources that did not.
	BestEffort FailurePolicy = iota
	// FailFast aborts the whole fan-out on the first per-source error,
	// returning it with the offending label attached.
	FailFast
)

func (p FailurePolicy) String() string {
	if p == FailFast {
		return "fail_fast"
	}
	return "best_effort"
}

// ParseFailurePolicy maps the config/API spelling of a policy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "best_effort":
		return BestEffort, nil
	case "fail_fast":
		return FailFast, nil
	default:
		return BestEffort, fmt.Errorf("unknown failure policy %q (want best_effort or fail_fast)", s)
	}
}

// MultiQuerySpec describes a fan-out query across the source map.
type MultiQuerySpec struct {
	StartDate  string
	EndDate    string
	Dimensions []string
	Metrics    []string
	RowLimit   int64 // per source; 0 means DefaultRowLimit

	// OnlyLabels restricts the fan-out to a subset of the source map.
	// Every entry must exist in the map; unknown labels are all reported
	// at once via *UnknownLabelError. Nil means every source.
	OnlyLabels []string

	// OmitLabelColumn suppresses the injected leading source_label
	// column. The default (false) tags every row with its source.
	OmitLabelColumn bool

	Policy FailurePolicy

	// Concurrency caps how many sources are queried at once. Values <= 1
	// mean a sequential loop. Output row order is by source-map order
	// either way, never completion order.
	Concurrency int
}

// QueryAll fans the same query out over the selected sources and
// concatenates the per-source tables in source-map order. Under
// BestEffort a non-nil table is returned together with *PartialFailure
// when some (or even all) sources failed; the caller decides whether
// partial data is usable.
func (c *Client) QueryAll(ctx context.Context, sources SourceMap, spec MultiQuerySpec) (*Table, error) {
	selected, err := selectSources(sources, spec.OnlyLabels)
	if err != nil {
		return nil, err
	}

	// Validate inputs once, before the first remote call.
	if err := validateFields(spec.Dimensions, spec.Metrics); err != nil {
		return nil, err
	}
	if _, _, err := resolveDateRange(spec.StartDate, spec.EndDate, time.Now().UTC()); err != nil {
		return nil, err
	}

	results := make([]*Table, len(selected))
	errs := make([]error, len(selected))
	trigger := c.fanOut(ctx, selected, spec, results, errs)
	if spec.Policy == FailFast && trigger >= 0 {
		src := selected[trigger]
		return nil, fmt.Errorf("querying %q (%s): %w", src.Label, src.PropertyID, errs[trigger])
	}

	columns := make([]string, 0, len(spec.Dimensions)+len(spec.Metrics)+1)
	if !spec.OmitLabelColumn {
		columns = append(columns, LabelColumn)
	}
	columns = append(columns, spec.Dimensions...)
	columns = append(columns, spec.Metrics...)
	combined := NewTable(columns)

	var failures []SourceFailure
	for i, src := range selected {
		if errs[i] != nil {
			logger.Warn("source query failed, continuing",
				"label", src.Label, "property", src.PropertyID, "error", errs[i])
			failures = append(failures, SourceFailure{Label: src.Label, Err: errs[i]})
			continue
		}
		if !spec.OmitLabelColumn {
			results[i].InsertLabelColumn(LabelColumn, src.Label)
		}
		if err := combined.AppendTable(results[i]); err != nil {
			return nil, err
		}
	}

	if len(failures) > 0 {
		return combined, &PartialFailure{Failures: failures}
	}
	return combined, nil
}

// selectSources resolves OnlyLabels against the map, keeping map order so
// the output is reproducible no matter how the caller ordered the subset.
func selectSources(sources SourceMap, only []string) (SourceMap, error) {
	if only == nil {
		return sources, nil
	}
	wanted := make(map[string]struct{}, len(only))
	for _, l := range only {
		wanted[l] = struct{}{}
	}
	var unknown []string
	for _, l := range only {
		if _, ok := sources.Lookup(l); !ok {
			unknown = append(unknown, l)
		}
	}
	if len(unknown) > 0 {
		return nil, &UnknownLabelError{Labels: unknown}
	}
	var selected SourceMap
	for _, s := range sources {
		if _, ok := wanted[s.Label]; ok {
			selected = append(selected, s)
		}
	}
	return selected, nil
}

// fanOut runs the per-source queries, sequentially or through a bounded
// worker pool. results and errs are indexed by source position. The
// return value is the index of the failure FailFast should report, or -1.
// Under FailFast the first failure cancels in-flight siblings, and the
// triggering error is captured explicitly so that a cancellation casualty
// is never mistaken for the cause.
func (c *Client) fanOut(ctx context.Context, selected SourceMap, spec MultiQuerySpec, results []*Table, errs []error) int {
	perSource := func(qctx context.Context, i int) {
		results[i], errs[i] = c.Query(qctx, QuerySpec{
			PropertyID: selected[i].PropertyID,
			StartDate:  spec.StartDate,
			EndDate:    spec.EndDate,
			Dimensions: spec.Dimensions,
			Metrics:    spec.Metrics,
			RowLimit:   spec.RowLimit,
		})
	}

	if spec.Concurrency <= 1 || len(selected) == 1 {
		for i := range selected {
			perSource(ctx, i)
			if errs[i] != nil && spec.Policy == FailFast {
				return i
			}
		}
		return -1
	}

	// Bounded workers keep the fan-out under the remote's per-credential
	// quota.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		firstMu  sync.Mutex
		firstIdx = -1
	)
	workers := spec.Concurrency
	if workers > len(selected) {
		workers = len(selected)
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				perSource(runCtx, i)
				if errs[i] != nil && spec.Policy == FailFast {
					firstMu.Lock()
					if firstIdx == -1 {
						firstIdx = i
					}
					firstMu.Unlock()
					cancel()
				}
			}
		}()
	}
	for i := range selected {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return firstIdx
}
