package ga4

// Wire types for the GA4 Data API v1beta runReport call. Only the slice of
// the surface this toolkit consumes is modeled; int64 fields use the
// proto3 JSON string encoding the API emits.

type runReportRequest struct {
	Dimensions []apiDimension `json:"dimensions,omitempty"`
	Metrics    []apiMetric    `json:"metrics"`
	DateRanges []apiDateRange `json:"dateRanges"`
	Limit      int64          `json:"limit,omitempty,string"`
	Offset     int64          `json:"offset,omitempty,string"`
}

type apiDimension struct {
	Name string `json:"name"`
}

type apiMetric struct {
	Name string `json:"name"`
}

type apiDateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type runReportResponse struct {
	DimensionHeaders []apiHeader `json:"dimensionHeaders"`
	MetricHeaders    []apiHeader `json:"metricHeaders"`
	Rows             []apiRow    `json:"rows"`

	// RowCount is the total matching rows on the remote side, independent
	// of limit/offset. It drives both pagination and the truncation flag.
	RowCount int64 `json:"rowCount"`
}

type apiHeader struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type apiRow struct {
	DimensionValues []apiValue `json:"dimensionValues"`
	MetricValues    []apiValue `json:"metricValues"`
}

type apiValue struct {
	Value string `json:"value"`
}

// apiError is the standard Google API error envelope.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
