package ga4

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProperty holds the canned rows one property serves, as
// [dimensions..., metrics...] string cells. The fake honors limit/offset
// so pagination behaves like the real API.
type fakeProperty struct {
	dimensions []string
	metrics    []string
	rows       [][]string
}

// newFakeAnalytics serves runReport for a set of properties. Unknown
// properties get a 403 like the real API gives for inaccessible ones.
func newFakeAnalytics(t *testing.T, props map[string]fakeProperty) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		propertyID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ":runReport")
		prop, ok := props[propertyID]
		if !ok {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": 403, "message": "User does not have sufficient permissions", "status": "PERMISSION_DENIED"},
			})
			return
		}

		var req runReportRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		offset := req.Offset
		limit := req.Limit
		if limit <= 0 || offset+limit > int64(len(prop.rows)) {
			limit = int64(len(prop.rows)) - offset
		}
		if limit < 0 {
			limit = 0
		}

		resp := runReportResponse{RowCount: int64(len(prop.rows))}
		for _, h := range prop.dimensions {
			resp.DimensionHeaders = append(resp.DimensionHeaders, apiHeader{Name: h})
		}
		for _, h := range prop.metrics {
			resp.MetricHeaders = append(resp.MetricHeaders, apiHeader{Name: h, Type: "TYPE_FLOAT"})
		}
		for _, cells := range prop.rows[offset : offset+limit] {
			var row apiRow
			for _, d := range cells[:len(prop.dimensions)] {
				row.DimensionValues = append(row.DimensionValues, apiValue{Value: d})
			}
			for _, m := range cells[len(prop.dimensions):] {
				row.MetricValues = append(row.MetricValues, apiValue{Value: m})
			}
			resp.Rows = append(resp.Rows, row)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(server *httptest.Server) *Client {
	return NewClientWithHTTP(server.URL, &http.Client{Timeout: 5 * time.Second})
}

func TestRunReportRequestEncoding(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/properties/123:runReport", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(runReportResponse{})
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.runReport(context.Background(), "properties/123", runReportRequest{
		Dimensions: []apiDimension{{Name: "date"}},
		Metrics:    []apiMetric{{Name: "sessions"}},
		DateRanges: []apiDateRange{{StartDate: "2024-03-01", EndDate: "2024-03-14"}},
		Limit:      10000,
		Offset:     20000,
	})
	require.NoError(t, err)

	// int64 fields ride the wire as strings, proto3 JSON style.
	assert.Equal(t, "10000", captured["limit"])
	assert.Equal(t, "20000", captured["offset"])
}

func TestRunReportAuthError(t *testing.T) {
	server := newFakeAnalytics(t, nil)
	defer server.Close()

	client := newTestClient(server)
	_, err := client.runReport(context.Background(), "properties/999", runReportRequest{})

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusForbidden, authErr.StatusCode)
	assert.Equal(t, "properties/999", authErr.PropertyID)
	assert.Contains(t, authErr.Message, "sufficient permissions")
}

func TestRunReportRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "17")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.runReport(context.Background(), "properties/123", runReportRequest{})

	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 17*time.Second, rl.RetryAfter)
}

func TestRunReportServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "Field badMetric is not a valid metric", "status": "INVALID_ARGUMENT"},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.runReport(context.Background(), "properties/123", runReportRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "badMetric")
}

func TestRunReportTransientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(server)
	_, err := client.runReport(context.Background(), "properties/123", runReportRequest{})

	var transient *TransientError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, "properties/123", transient.PropertyID)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-5"))
	assert.Equal(t, 30*time.Second, parseRetryAfter("30"))
}
