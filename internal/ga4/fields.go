package ga4

// Closed catalog of GA4 Data API field names this toolkit accepts. Names
// are validated against these sets before a request is built, so an
// unrecognized name fails fast as *InvalidFieldError instead of bouncing
// off the remote API. The catalog covers every field the pre-built reports
// use plus the common ad-hoc ones; extend it here when the API grows.

var knownDimensions = map[string]struct{}{
	"date":                {},
	"dateHour":            {},
	"week":                {},
	"month":               {},
	"country":             {},
	"region":              {},
	"city":                {},
	"language":            {},
	"hostName":            {},
	"landingPage":         {},
	"pagePath":            {},
	"pageTitle":           {},
	"sessionSource":       {},
	"sessionMedium":       {},
	"sessionCampaignName": {},
	"sessionDefaultChannelGroup": {},
	"deviceCategory":      {},
	"operatingSystem":     {},
	"browser":             {},
	"itemName":            {},
	"itemBrand":           {},
	"itemCategory":        {},
	"itemId":              {},
	"eventName":           {},
	"newVsReturning":      {},
}

var knownMetrics = map[string]struct{}{
	"sessions":               {},
	"totalUsers":             {},
	"activeUsers":            {},
	"newUsers":               {},
	"screenPageViews":        {},
	"screenPageViewsPerSession": {},
	"averageSessionDuration": {},
	"bounceRate":             {},
	"engagementRate":         {},
	"engagedSessions":        {},
	"eventCount":             {},
	"conversions":            {},
	"transactions":           {},
	"totalRevenue":           {},
	"purchaseRevenue":        {},
	"averagePurchaseRevenue": {},
	"ecommercePurchases":     {},
	"addToCarts":             {},
	"checkouts":              {},
	"itemRevenue":            {},
	"itemsViewed":            {},
	"itemsPurchased":         {},
	"itemsAddedToCart":       {},
	"cartToViewRate":         {},
	"purchaseToViewRate":     {},
}

// IsDimension reports whether name is a recognized GA4 dimension.
func IsDimension(name string) bool {
	_, ok := knownDimensions[name]
	return ok
}

// IsMetric reports whether name is a recognized GA4 metric.
func IsMetric(name string) bool {
	_, ok := knownMetrics[name]
	return ok
}

// validateFields checks the dimension and metric lists of a query against
// the catalog. Metrics must be non-empty; dimensions may be empty, which
// the API treats as a property-level aggregate (one row per property).
func validateFields(dimensions, metrics []string) error {
	for _, d := range dimensions {
		if !IsDimension(d) {
			return &InvalidFieldError{Field: d, Kind: "dimension"}
		}
	}
	if len(metrics) == 0 {
		return &InvalidFieldError{Field: "", Kind: "metric"}
	}
	for _, m := range metrics {
		if !IsMetric(m) {
			return &InvalidFieldError{Field: m, Kind: "metric"}
		}
	}
	return nil
}
