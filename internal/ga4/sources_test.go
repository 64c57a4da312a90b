package ga4

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSourcesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ga4_properties.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSources(t *testing.T) {
	path := writeSourcesFile(t, `{
		"US": "properties/123456789",
		"UK": "properties/987654321",
		"DE": "properties/111222333"
	}`)

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 3)

	// Document order survives parsing.
	assert.Equal(t, []string{"US", "UK", "DE"}, sources.Labels())

	id, ok := sources.Lookup("UK")
	assert.True(t, ok)
	assert.Equal(t, "properties/987654321", id)

	_, ok = sources.Lookup("FR")
	assert.False(t, ok)
}

func TestLoadSourcesMissingFile(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "nope.json"))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadSourcesValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reason  string
	}{
		{"empty object", `{}`, "no sources defined"},
		{"not an object", `["US"]`, "flat JSON object"},
		{"invalid json", `{"US": `, "invalid JSON"},
		{"non-string value", `{"US": 123}`, "must be a string"},
		{"blank label", `{"  ": "properties/123"}`, "empty label"},
		{"empty id", `{"US": ""}`, "empty property ID"},
		{"bare numeric id", `{"US": "123456789"}`, "does not match"},
		{"trailing path", `{"US": "properties/123/x"}`, "does not match"},
		{"duplicate label", `{"US": "properties/1", "US": "properties/2"}`, `duplicate label "US"`},
		{"duplicate id", `{"US": "properties/1", "UK": "properties/1"}`, "bound to both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSourcesFile(t, tt.content)
			_, err := LoadSources(path)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, cfgErr.Reason, tt.reason)
			assert.Equal(t, path, cfgErr.Path)
		})
	}
}
