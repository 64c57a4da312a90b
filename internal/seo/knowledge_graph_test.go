package seo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeGraphSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/entities:search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "nike", q.Get("query"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "test-key", q.Get("key"))

		fmt.Fprint(w, `{
			"itemListElement": [
				{
					"result": {
						"name": "Nike, Inc.",
						"@type": ["Corporation", "Organization", "Thing"],
						"description": "Footwear manufacturing company",
						"detailedDescription": {
							"articleBody": "Nike, Inc. is an American multinational corporation.",
							"url": "https://en.wikipedia.org/wiki/Nike,_Inc."
						}
					},
					"resultScore": 912.5
				},
				{
					"result": {
						"name": "Nike",
						"@type": ["Thing"],
						"description": "Greek goddess of victory"
					},
					"resultScore": 101.25
				}
			]
		}`)
	}))
	defer server.Close()

	client := NewKnowledgeGraphClientWithHTTP(server.URL, "test-key", server.Client())
	entities, err := client.Search(context.Background(), "nike", 5)
	require.NoError(t, err)
	require.Len(t, entities, 2)

	assert.Equal(t, "Nike, Inc.", entities[0].Name)
	assert.Equal(t, []string{"Corporation", "Organization", "Thing"}, entities[0].Types)
	assert.Contains(t, entities[0].Detail, "American multinational")
	assert.Equal(t, "https://en.wikipedia.org/wiki/Nike,_Inc.", entities[0].URL)
	assert.Equal(t, 912.5, entities[0].Score)

	assert.Equal(t, "Nike", entities[1].Name)
	assert.Empty(t, entities[1].Detail)
}

func TestKnowledgeGraphSearchDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"itemListElement": []}`)
	}))
	defer server.Close()

	client := NewKnowledgeGraphClientWithHTTP(server.URL, "k", server.Client())
	entities, err := client.Search(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestKnowledgeGraphSearchEmptyQuery(t *testing.T) {
	client := NewKnowledgeGraphClientWithHTTP("http://unused.invalid", "k", http.DefaultClient)
	_, err := client.Search(context.Background(), "", 5)
	assert.Error(t, err)
}

func TestKnowledgeGraphSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"code": 403, "message": "API key invalid"}}`)
	}))
	defer server.Close()

	client := NewKnowledgeGraphClientWithHTTP(server.URL, "bad", server.Client())
	_, err := client.Search(context.Background(), "nike", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
