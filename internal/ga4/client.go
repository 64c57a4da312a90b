package ga4

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/oauth2/google"

	"github.com/ignite/ga4-reporter/internal/config"
	"github.com/ignite/ga4-reporter/internal/pkg/httpretry"
)

const (
	defaultBaseURL = "https://analyticsdata.googleapis.com/v1beta"

	analyticsReadonlyScope = "https://www.googleapis.com/auth/analytics.readonly"

	// Page size for the internal pagination loop. Row limits above this
	// are satisfied by issuing follow-up requests with an offset.
	pageSize int64 = 10000
)

// Client is a GA4 Data API client. It is caller-owned and safe for
// concurrent use; construct one and pass it wherever queries are issued
// rather than holding a process-wide instance.
type Client struct {
	baseURL    string
	httpClient httpretry.HTTPDoer
}

// NewClient builds a client from a service-account key file. The key
// contents are handed opaquely to the OAuth2 layer; nothing here parses or
// validates them beyond what token exchange requires.
func NewClient(ctx context.Context, cfg config.GA4Config) (*Client, error) {
	key, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	jwtCfg, err := google.JWTConfigFromJSON(key, analyticsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	base := jwtCfg.Client(ctx)
	base.Timeout = cfg.Timeout()

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpretry.NewRetryClient(base, 2),
	}, nil
}

// NewClientWithHTTP builds a client around an existing HTTP doer. Used by
// tests and by callers that manage their own credential transport.
func NewClientWithHTTP(baseURL string, doer httpretry.HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{baseURL: baseURL, httpClient: doer}
}

// runReport issues one runReport call for a property and decodes the
// response. Error mapping: 401/403 → *AuthError, 429 → *RateLimitedError
// (with the remote's Retry-After when present), transport failures that
// survived the retry layer → *TransientError. This function never
// terminates the process; every failure path returns.
func (c *Client) runReport(ctx context.Context, propertyID string, reportReq runReportRequest) (*runReportResponse, error) {
	payload, err := json.Marshal(reportReq)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:runReport", c.baseURL, propertyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}
		return nil, &TransientError{PropertyID: propertyID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{PropertyID: propertyID, Err: fmt.Errorf("reading response: %w", err)}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &AuthError{
			PropertyID: propertyID,
			StatusCode: resp.StatusCode,
			Message:    apiErrorMessage(body),
		}
	case http.StatusTooManyRequests:
		return nil, &RateLimitedError{
			PropertyID: propertyID,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	default:
		return nil, fmt.Errorf("API error for %s (status %d): %s", propertyID, resp.StatusCode, apiErrorMessage(body))
	}

	var report runReportResponse
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("parsing response for %s: %w", propertyID, err)
	}
	return &report, nil
}

// apiErrorMessage extracts the message from a Google API error envelope,
// falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return string(body)
}

// parseRetryAfter handles the delta-seconds form of the Retry-After
// header. The HTTP-date form is rare on this API and ignored.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
