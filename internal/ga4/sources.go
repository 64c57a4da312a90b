package ga4

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Source binds a caller-chosen label (typically a country code) to one GA4
// property. Each property represents one country's website; the label
// travels with every row that property produces.
type Source struct {
	Label      string
	PropertyID string
}

// SourceMap is the ordered label→property mapping loaded from the config
// file. Document order is preserved so fan-out iteration, and therefore
// output row order, is deterministic across runs. Treat it as immutable
// after load.
type SourceMap []Source

// Labels returns the labels in document order.
func (m SourceMap) Labels() []string {
	labels := make([]string, len(m))
	for i, s := range m {
		labels[i] = s.Label
	}
	return labels
}

// Lookup returns the property ID bound to a label.
func (m SourceMap) Lookup(label string) (string, bool) {
	for _, s := range m {
		if s.Label == label {
			return s.PropertyID, true
		}
	}
	return "", false
}

var propertyIDRe = regexp.MustCompile(`^properties/[0-9]+$`)

// LoadSources reads a property config file: a flat JSON object mapping
// label → "properties/<digits>", e.g.
//
//	{"US": "properties/123456789", "UK": "properties/987654321"}
//
// Entries keep their document order. The file is validated for shape only;
// whether the properties are actually reachable is deferred to query time.
func LoadSources(path string) (SourceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Reason: err.Error()}
	}

	// A plain map would lose document order, so walk the token stream.
	dec := json.NewDecoder(strings.NewReader(string(data)))
	tok, err := dec.Token()
	if err != nil {
		return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &ConfigError{Path: path, Reason: "top-level value must be a flat JSON object"}
	}

	var sources SourceMap
	seenLabels := make(map[string]struct{})
	seenIDs := make(map[string]string)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("invalid JSON: %v", err)}
		}
		label := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("invalid JSON: %v", err)}
		}
		id, ok := valTok.(string)
		if !ok {
			return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("value for %q must be a string, got %v", label, valTok)}
		}

		if strings.TrimSpace(label) == "" {
			return nil, &ConfigError{Path: path, Reason: "empty label"}
		}
		if _, dup := seenLabels[label]; dup {
			return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("duplicate label %q", label)}
		}
		if id == "" {
			return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("empty property ID for label %q", label)}
		}
		if !propertyIDRe.MatchString(id) {
			return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("property ID %q for label %q does not match properties/<digits>", id, label)}
		}
		if prev, dup := seenIDs[id]; dup {
			return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("property ID %s bound to both %q and %q", id, prev, label)}
		}

		seenLabels[label] = struct{}{}
		seenIDs[id] = label
		sources = append(sources, Source{Label: label, PropertyID: id})
	}

	if _, err := dec.Token(); err != nil {
		return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if len(sources) == 0 {
		return nil, &ConfigError{Path: path, Reason: "no sources defined"}
	}
	return sources, nil
}
