package input

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/calcforge/calcforge/internal/estimate"
)

// parseProjectJSON decodes the normalized form with a token walk instead of
// a map decode, so the services object's key order survives into the item
// list.
func parseProjectJSON(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("document root must be an object: %w", err)
	}

	doc := &Document{}
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case "project_name":
			if err := dec.Decode(&doc.ProjectName); err != nil {
				return nil, fmt.Errorf("decoding project_name: %w", err)
			}
		case "services":
			items, err := parseServicesJSON(dec)
			if err != nil {
				return nil, err
			}
			doc.Items = items
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("decoding %q: %w", key, err)
			}
		}
	}
	return doc, nil
}

// parseServicesJSON walks the services object in document order. Each value
// is a list of field maps; every map becomes one item.
func parseServicesJSON(dec *json.Decoder) ([]estimate.Item, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("services must be an object: %w", err)
	}

	var items []estimate.Item
	for dec.More() {
		serviceType, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		var configs []map[string]any
		if err := dec.Decode(&configs); err != nil {
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
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return items, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return s, nil
}
