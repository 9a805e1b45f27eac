package input

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/calcforge/calcforge/internal/estimate"
)

// parseProjectYAML decodes the normalized form from a yaml.Node tree, which
// keeps mapping keys in document order.
func parseProjectYAML(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid YAML document: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML document")
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("document root must be a mapping, got %v", top.Kind)
	}

	doc := &Document{}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i], top.Content[i+1]
		switch key.Value {
		case "project_name":
			if err := value.Decode(&doc.ProjectName); err != nil {
				return nil, fmt.Errorf("decoding project_name: %w", err)
			}
		case "services":
			items, err := parseServicesYAML(value)
			if err != nil {
				return nil, err
			}
			doc.Items = items
		}
	}
	return doc, nil
}

func parseServicesYAML(node *yaml.Node) ([]estimate.Item, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("services must be a mapping, got %v at line %d", node.Kind, node.Line)
	}

	var items []estimate.Item
	for i := 0; i+1 < len(node.Content); i += 2 {
		serviceType := node.Content[i].Value
		var configs []map[string]any
		if err := node.Content[i+1].Decode(&configs); err != nil {
			return nil, fmt.Errorf("decoding configurations for %q: %w", serviceType, err)
		}
		for _, fields := range configs {
			items = append(items, estimate.Item{
				ServiceType: serviceType,
				Ordinal:     len(items),
				Fields:      fields,
			})
		}
	}
	return items, nil
}
