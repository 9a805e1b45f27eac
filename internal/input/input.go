// Package input loads estimate request documents. Two shapes are accepted:
// the normalized project form (service types mapped to field lists) and the
// scope-of-work analysis form, which is rewritten into normalized items by
// a rule-based normalizer before validation ever sees it.
//
// Submission order is the contract here. Both parsers preserve the order
// services appear in the document, including the key order of the services
// object, which a plain map decode would destroy.
package input

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/calcforge/calcforge/internal/ctxlog"
	"github.com/calcforge/calcforge/internal/estimate"
)

// Document is a fully loaded request: items in submission order, each
// carrying its ordinal.
type Document struct {
	ProjectName string
	Items       []estimate.Item

	// Skipped lists scope-of-work entries dropped by the normalizer because
	// they have no calculator form (zero-cost services). Always empty for
	// the normalized form.
	Skipped []string
}

// Format identifies the wire encoding of a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension. JSON is the
// default for unknown extensions.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads and parses a request document from disk.
func LoadFile(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input document: %w", err)
	}
	doc, err := Parse(ctx, data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a request document, dispatching on its shape: a top-level
// "result" key marks the scope-of-work form, a "services" key the
// normalized form.
func Parse(ctx context.Context, data []byte, format Format) (*Document, error) {
	keys, err := topLevelKeys(data, format)
	if err != nil {
		return nil, err
	}

	switch {
	case keys["result"]:
		ctxlog.FromContext(ctx).Debug("Parsing scope-of-work document.")
		return parseSOW(ctx, data, format)
	case keys["services"]:
		ctxlog.FromContext(ctx).Debug("Parsing normalized project document.")
		if format == FormatYAML {
			return parseProjectYAML(data)
		}
		return parseProjectJSON(data)
	default:
		return nil, fmt.Errorf("document has neither a %q nor a %q section", "services", "result")
	}
}

// topLevelKeys inspects the document's root object without committing to a
// full decode.
func topLevelKeys(data []byte, format Format) (map[string]bool, error) {
	keys := make(map[string]bool)
	switch format {
	case FormatYAML:
		var root map[string]yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("invalid YAML document: %w", err)
		}
		for k := range root {
			keys[k] = true
		}
	default:
		var root map[string]json.RawMessage
		if err := json.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("invalid JSON document: %w", err)
		}
		for k := range root {
			keys[k] = true
		}
	}
	return keys, nil
}
