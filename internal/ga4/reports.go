package ga4

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// DerivedColumn is a ratio column computed locally after the fan-out
// tables are concatenated, never requested from the remote. When the
// denominator is zero or null the result is a null cell: a property with
// no sessions has no conversion rate, not a 0% one.
type DerivedColumn struct {
	Name        string
	Numerator   string
	Denominator string

	// Scale multiplies the raw ratio; 100 for percent-like columns,
	// 1 for plain ratios such as pages per session.
	Scale float64
}

// ReportSpec is a pre-built report: a fixed dimension/metric selection
// plus the derived columns layered on top.
type ReportSpec struct {
	Name        string
	Description string
	Dimensions  []string
	Metrics     []string
	Derived     []DerivedColumn
}

// reportSpecs mirrors the report catalog of the original multi-country
// e-commerce setup: each GA4 property is one country's website, so every
// report compares countries via the injected source_label column.
var reportSpecs = map[string]ReportSpec{
	"traffic": {
		Name:        "traffic",
		Description: "Daily traffic metrics by date for each property",
		Dimensions:  []string{"date"},
		Metrics: []string{
			"sessions", "totalUsers", "newUsers", "screenPageViews",
			"averageSessionDuration", "bounceRate",
		},
	},
	"acquisition": {
		Name:        "acquisition",
		Description: "Traffic by acquisition source, medium and campaign",
		Dimensions:  []string{"sessionSource", "sessionMedium", "sessionCampaignName"},
		Metrics: []string{
			"sessions", "totalUsers", "newUsers", "conversions", "engagementRate",
		},
	},
	"pages": {
		Name:        "pages",
		Description: "Page performance across properties",
		Dimensions:  []string{"pageTitle", "pagePath"},
		Metrics: []string{
			"screenPageViews", "totalUsers", "averageSessionDuration", "bounceRate",
		},
	},
	"landing_pages": {
		Name:        "landing_pages",
		Description: "Landing page performance for each property",
		Dimensions:  []string{"landingPage"},
		Metrics: []string{
			"sessions", "totalUsers", "bounceRate", "conversions", "engagementRate",
		},
	},
	"devices": {
		Name:        "devices",
		Description: "Traffic breakdown by device category",
		Dimensions:  []string{"deviceCategory"},
		Metrics: []string{
			"sessions", "totalUsers", "conversions", "engagementRate",
		},
	},
	"ecommerce": {
		Name:        "ecommerce",
		Description: "Daily e-commerce overview per property",
		Dimensions:  []string{"date"},
		Metrics: []string{
			"transactions", "totalRevenue", "averagePurchaseRevenue",
			"ecommercePurchases", "itemsViewed", "addToCarts",
		},
	},
	"products": {
		Name:        "products",
		Description: "Product-level performance across properties",
		Dimensions:  []string{"itemName", "itemBrand", "itemCategory"},
		Metrics: []string{
			"itemRevenue", "itemsViewed", "itemsPurchased", "itemsAddedToCart",
			"cartToViewRate", "purchaseToViewRate",
		},
	},
	"funnel": {
		Name:        "funnel",
		Description: "Conversion funnel by acquisition source and medium",
		Dimensions:  []string{"sessionSource", "sessionMedium"},
		Metrics: []string{
			"sessions", "engagedSessions", "conversions", "transactions",
			"totalRevenue", "engagementRate",
		},
		Derived: []DerivedColumn{
			{Name: "conversion_rate", Numerator: "conversions", Denominator: "sessions", Scale: 100},
			{Name: "transaction_rate", Numerator: "transactions", Denominator: "sessions", Scale: 100},
		},
	},
	"summary": {
		Name:        "summary",
		Description: "One-row-per-property comparison of all key metrics",
		Dimensions:  nil, // no dimensions: the API aggregates to one row per property
		Metrics: []string{
			"sessions", "totalUsers", "newUsers", "screenPageViews",
			"averageSessionDuration", "bounceRate", "engagementRate",
			"conversions", "transactions", "totalRevenue", "averagePurchaseRevenue",
		},
		Derived: []DerivedColumn{
			{Name: "conversion_rate", Numerator: "conversions", Denominator: "sessions", Scale: 100},
			{Name: "transaction_rate", Numerator: "transactions", Denominator: "sessions", Scale: 100},
			{Name: "pages_per_session", Numerator: "screenPageViews", Denominator: "sessions", Scale: 1},
			{Name: "new_user_rate", Numerator: "newUsers", Denominator: "totalUsers", Scale: 100},
		},
	},
}

// ReportNames lists the available pre-built reports, sorted.
func ReportNames() []string {
	names := make([]string, 0, len(reportSpecs))
	for name := range reportSpecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReportByName returns the spec for a named report.
func ReportByName(name string) (ReportSpec, error) {
	spec, ok := reportSpecs[name]
	if !ok {
		return ReportSpec{}, fmt.Errorf("unknown report %q (available: %v)", name, ReportNames())
	}
	return spec, nil
}

// ReportOptions carries the caller-tunable parts of a pre-built report
// run. Zero values fall back to the defaults the original reports used:
// a 30-day window ending yesterday, all sources, best-effort fan-out.
type ReportOptions struct {
	StartDate   string
	EndDate     string
	OnlyLabels  []string
	RowLimit    int64
	Policy      FailurePolicy
	Concurrency int
}

// RunReport executes a named pre-built report across the source map and
// appends its derived columns. Derived columns are computed only after
// the full multi-source table is assembled, so a source with zero rows
// cannot skew or break the arithmetic. Under best-effort the table plus a
// *PartialFailure may both be returned.
func (c *Client) RunReport(ctx context.Context, sources SourceMap, name string, opts ReportOptions) (*Table, error) {
	spec, err := ReportByName(name)
	if err != nil {
		return nil, err
	}

	start := opts.StartDate
	if start == "" {
		start = "30daysAgo"
	}
	end := opts.EndDate
	if end == "" {
		end = "yesterday"
	}

	table, queryErr := c.QueryAll(ctx, sources, MultiQuerySpec{
		StartDate:   start,
		EndDate:     end,
		Dimensions:  spec.Dimensions,
		Metrics:     spec.Metrics,
		RowLimit:    opts.RowLimit,
		OnlyLabels:  opts.OnlyLabels,
		Policy:      opts.Policy,
		Concurrency: opts.Concurrency,
	})
	if table == nil {
		return nil, queryErr
	}
	if err := appendDerivedColumns(table, spec.Derived); err != nil {
		return nil, err
	}
	// queryErr is nil or a *PartialFailure accompanying partial rows.
	return table, queryErr
}

// appendDerivedColumns computes each derived ratio row-wise over the
// merged table. Percent-like values round to 2 decimals here, at
// presentation; the raw metric cells they were computed from keep full
// precision.
func appendDerivedColumns(t *Table, derived []DerivedColumn) error {
	for _, d := range derived {
		num := t.ColumnIndex(d.Numerator)
		den := t.ColumnIndex(d.Denominator)
		if num < 0 || den < 0 {
			return fmt.Errorf("derived column %s: missing input column", d.Name)
		}
		values := make([]Value, len(t.Rows))
		for i, row := range t.Rows {
			n, dv := row[num], row[den]
			if n.IsNull() || dv.IsNull() || dv.Num() == 0 {
				values[i] = NullValue()
				continue
			}
			values[i] = NumberValue(round2(n.Num() / dv.Num() * d.Scale))
		}
		if err := t.AddColumn(d.Name, values); err != nil {
			return err
		}
	}
	return nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
