package ga4

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportNames(t *testing.T) {
	names := ReportNames()
	assert.Contains(t, names, "traffic")
	assert.Contains(t, names, "ecommerce")
	assert.Contains(t, names, "summary")

	// Sorted for stable CLI/API listings.
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestReportByName(t *testing.T) {
	spec, err := ReportByName("funnel")
	require.NoError(t, err)
	assert.Equal(t, []string{"sessionSource", "sessionMedium"}, spec.Dimensions)
	require.Len(t, spec.Derived, 2)

	_, err = ReportByName("nope")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown report")
}

func TestAcquisitionReportBreaksDownByCampaign(t *testing.T) {
	spec, err := ReportByName("acquisition")
	require.NoError(t, err)
	assert.Equal(t, []string{"sessionSource", "sessionMedium", "sessionCampaignName"}, spec.Dimensions)
}

func TestPagesReport(t *testing.T) {
	spec, err := ReportByName("pages")
	require.NoError(t, err)
	assert.Equal(t, []string{"pageTitle", "pagePath"}, spec.Dimensions)
	assert.Equal(t, []string{"screenPageViews", "totalUsers", "averageSessionDuration", "bounceRate"}, spec.Metrics)
	assert.Empty(t, spec.Derived)
}

func TestReportCatalogFieldsAreValid(t *testing.T) {
	for _, name := range ReportNames() {
		spec, err := ReportByName(name)
		require.NoError(t, err)
		require.NoError(t, validateFields(spec.Dimensions, spec.Metrics), "report %s", name)
		for _, d := range spec.Derived {
			assert.True(t, IsMetric(d.Numerator), "report %s derived %s numerator", name, d.Name)
			assert.True(t, IsMetric(d.Denominator), "report %s derived %s denominator", name, d.Name)
		}
	}
}

func TestRunReportSummary(t *testing.T) {
	// The summary report has no dimensions: one aggregate row per
	// property. Metric order matches the spec's metric list.
	summarySpec, err := ReportByName("summary")
	require.NoError(t, err)

	props := map[string]fakeProperty{
		"properties/100": {
			metrics: summarySpec.Metrics,
			rows: [][]string{
				// sessions totalUsers newUsers pageViews avgDur bounce engage conv trans revenue avgRev
				{"1000", "800", "200", "4000", "61.5", "0.4", "0.6", "30", "12", "2400", "200"},
			},
		},
		"properties/200": {
			metrics: summarySpec.Metrics,
			rows: [][]string{
				// Zero sessions: every per-session ratio must be null.
				{"0", "0", "0", "0", "0", "0", "0", "0", "0", "0", "0"},
			},
		},
	}
	server := newFakeAnalytics(t, props)
	defer server.Close()

	client := newTestClient(server)
	sources := SourceMap{
		{Label: "US", PropertyID: "properties/100"},
		{Label: "UK", PropertyID: "properties/200"},
	}

	table, err := client.RunReport(context.Background(), sources, "summary", ReportOptions{})
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, LabelColumn, table.Columns[0])

	convIdx := table.ColumnIndex("conversion_rate")
	pagesIdx := table.ColumnIndex("pages_per_session")
	newIdx := table.ColumnIndex("new_user_rate")
	require.GreaterOrEqual(t, convIdx, 0)
	require.GreaterOrEqual(t, pagesIdx, 0)
	require.GreaterOrEqual(t, newIdx, 0)

	us := table.Rows[0]
	assert.Equal(t, "US", us[0].Str())
	assert.Equal(t, 3.0, us[convIdx].Num())  // 30/1000*100
	assert.Equal(t, 4.0, us[pagesIdx].Num()) // 4000/1000
	assert.Equal(t, 25.0, us[newIdx].Num())  // 200/800*100

	uk := table.Rows[1]
	assert.True(t, uk[convIdx].IsNull(), "zero denominator yields null, not zero")
	assert.True(t, uk[pagesIdx].IsNull())
	assert.True(t, uk[newIdx].IsNull())
}

func TestRunReportRounding(t *testing.T) {
	funnelSpec, err := ReportByName("funnel")
	require.NoError(t, err)

	props := map[string]fakeProperty{
		"properties/100": {
			dimensions: funnelSpec.Dimensions,
			metrics:    funnelSpec.Metrics,
			rows: [][]string{
				// sessions engaged conv trans revenue engagementRate
				{"google", "organic", "3000", "1800", "100", "47", "9400", "0.6"},
			},
		},
	}
	server := newFakeAnalytics(t, props)
	defer server.Close()

	client := newTestClient(server)
	sources := SourceMap{{Label: "US", PropertyID: "properties/100"}}

	table, err := client.RunReport(context.Background(), sources, "funnel", ReportOptions{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	// 100/3000*100 = 3.333... rounds to 3.33; 47/3000*100 = 1.5666...
	// rounds to 1.57.
	row := table.Rows[0]
	assert.Equal(t, 3.33, row[table.ColumnIndex("conversion_rate")].Num())
	assert.Equal(t, 1.57, row[table.ColumnIndex("transaction_rate")].Num())
}

func TestRunReportPartialFailureKeepsDerivedColumns(t *testing.T) {
	summarySpec, err := ReportByName("summary")
	require.NoError(t, err)

	props := map[string]fakeProperty{
		"properties/100": {
			metrics: summarySpec.Metrics,
			rows: [][]string{
				{"1000", "800", "200", "4000", "61.5", "0.4", "0.6", "30", "12", "2400", "200"},
			},
		},
		// properties/200 missing: UK fails with 403.
	}
	server := newFakeAnalytics(t, props)
	defer server.Close()

	client := newTestClient(server)
	sources := SourceMap{
		{Label: "US", PropertyID: "properties/100"},
		{Label: "UK", PropertyID: "properties/200"},
	}

	table, err := client.RunReport(context.Background(), sources, "summary", ReportOptions{})

	var partial *PartialFailure
	require.ErrorAs(t, err, &partial)
	require.Len(t, partial.Failures, 1)
	assert.Equal(t, "UK", partial.Failures[0].Label)

	require.NotNil(t, table)
	require.Len(t, table.Rows, 1)
	assert.GreaterOrEqual(t, table.ColumnIndex("conversion_rate"), 0,
		"derived columns are appended even when some sources failed")
}

func TestRunReportUnknownName(t *testing.T) {
	client := NewClientWithHTTP("http://unused.invalid", nil)
	_, err := client.RunReport(context.Background(), testSources, "bogus", ReportOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown report")
}
