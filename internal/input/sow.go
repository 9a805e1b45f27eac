package input

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/calcforge/calcforge/internal/ctxlog"
)

// sowDocument is the scope-of-work analysis shape: a flat list of named
// services with free-form configuration strings. The list order is the
// submission order.
type sowDocument struct {
	Result struct {
		ProjectName string     `json:"project_name" yaml:"project_name"`
		Estimate    []sowEntry `json:"estimate" yaml:"estimate"`
	} `json:"result" yaml:"result"`
}

type sowEntry struct {
	ServiceName    string         `json:"service_name" yaml:"service_name"`
	Description    string         `json:"description" yaml:"description"`
	Configurations map[string]any `json:"configurations" yaml:"configurations"`
}

// parseSOW decodes the scope-of-work form and runs every entry through the
// normalizer. Entries the normalizer cannot place still become items, under
// a best-guess service type, so they surface in the report instead of
// silently vanishing.
func parseSOW(ctx context.Context, data []byte, format Format) (*Document, error) {
	var sow sowDocument
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &sow); err != nil {
			return nil, fmt.Errorf("invalid YAML scope-of-work document: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &sow); err != nil {
			return nil, fmt.Errorf("invalid JSON scope-of-work document: %w", err)
		}
	}
	if len(sow.Result.Estimate) == 0 {
		return nil, fmt.Errorf("scope-of-work document has no estimate entries")
	}

	logger := ctxlog.FromContext(ctx)
	norm := NewNormalizer()
	doc := &Document{ProjectName: sow.Result.ProjectName}

	for _, entry := range sow.Result.Estimate {
		item, skip := norm.Normalize(ctx, entry)
		if skip {
			logger.Info("Skipping service with no calculator form.", "service", entry.ServiceName)
			doc.Skipped = append(doc.Skipped, entry.ServiceName)
			continue
		}
		item.Ordinal = len(doc.Items)
		doc.Items = append(doc.Items, item)
	}
	return doc, nil
}
