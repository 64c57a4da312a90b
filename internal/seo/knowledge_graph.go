package seo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ignite/ga4-reporter/internal/config"
	"github.com/ignite/ga4-reporter/internal/pkg/httpretry"
)

const defaultKGBaseURL = "https://kgsearch.googleapis.com/v1"

// Entity is one Knowledge Graph search result, flattened from the
// itemListElement envelope.
type Entity struct {
	Name        string   `json:"name"`
	Types       []string `json:"types"`
	Description string   `json:"description,omitempty"`
	Detail      string   `json:"detail,omitempty"`
	URL         string   `json:"url,omitempty"`
	Score       float64  `json:"score"`
}

// KnowledgeGraphClient is a Google Knowledge Graph Search API client.
type KnowledgeGraphClient struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewKnowledgeGraphClient creates a new Knowledge Graph API client.
func NewKnowledgeGraphClient(cfg config.KnowledgeGraphConfig) *KnowledgeGraphClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultKGBaseURL
	}
	return &KnowledgeGraphClient{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 2),
	}
}

// NewKnowledgeGraphClientWithHTTP creates a client around an existing
// HTTP doer.
func NewKnowledgeGraphClientWithHTTP(baseURL, apiKey string, doer httpretry.HTTPDoer) *KnowledgeGraphClient {
	if baseURL == "" {
		baseURL = defaultKGBaseURL
	}
	return &KnowledgeGraphClient{baseURL: baseURL, apiKey: apiKey, httpClient: doer}
}

// kgResponse models the slice of the entities:search response we consume.
type kgResponse struct {
	ItemListElement []struct {
		Result struct {
			Name                string          `json:"name"`
			Type                []string        `json:"@type"`
			Description         string          `json:"description"`
			DetailedDescription json.RawMessage `json:"detailedDescription"`
			URL                 string          `json:"url"`
		} `json:"result"`
		ResultScore float64 `json:"resultScore"`
	} `json:"itemListElement"`
}

type kgDetailedDescription struct {
	ArticleBody string `json:"articleBody"`
	URL         string `json:"url"`
}

// Search queries the Knowledge Graph for a term and returns matching
// entities in result order. limit <= 0 defaults to 10.
func (c *KnowledgeGraphClient) Search(ctx context.Context, query string, limit int) ([]Entity, error) {
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/entities:search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("knowledge graph API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed kgResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	entities := make([]Entity, 0, len(parsed.ItemListElement))
	for _, item := range parsed.ItemListElement {
		e := Entity{
			Name:        item.Result.Name,
			Types:       item.Result.Type,
			Description: item.Result.Description,
			URL:         item.Result.URL,
			Score:       item.ResultScore,
		}
		if len(item.Result.DetailedDescription) > 0 {
			var detail kgDetailedDescription
			if err := json.Unmarshal(item.Result.DetailedDescription, &detail); err == nil {
				e.Detail = detail.ArticleBody
				if e.URL == "" {
					e.URL = detail.URL
				}
			}
		}
		entities = append(entities, e)
	}
	return entities, nil
}
