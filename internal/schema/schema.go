// Package schema holds the declarative per-service field schemas and the
// read-only registry they are loaded into at process start.
package schema

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Kind is the declared value kind of a schema field.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindBool
	KindEnum
)

// ParseKind maps a manifest kind keyword to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "number":
		return KindNumber, nil
	case "string":
		return KindString, nil
	case "bool", "boolean":
		return KindBool, nil
	case "enum":
		return KindEnum, nil
	default:
		return 0, fmt.Errorf("unknown field kind %q (want number, string, bool or enum)", s)
	}
}

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	default:
		return "invalid"
	}
}

// CtyType returns the cty type values of this kind must convert to.
// Enum members are strings at the value level.
func (k Kind) CtyType() cty.Type {
	switch k {
	case KindNumber:
		return cty.Number
	case KindBool:
		return cty.Bool
	default:
		return cty.String
	}
}

// Field is one declared field of a service schema.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Default is cty.NilVal when the field has no default. Optional fields
	// without a default are simply omitted from validated configs.
	Default cty.Value
	// Values lists the allowed members for KindEnum fields.
	Values []string
}

// HasDefault reports whether the field carries a usable default value.
func (f Field) HasDefault() bool {
	return f.Default != cty.NilVal && !f.Default.IsNull()
}

// AllowsValue reports whether v is a member of an enum field's value set.
func (f Field) AllowsValue(v string) bool {
	for _, m := range f.Values {
		if m == v {
			return true
		}
	}
	return false
}

// Service is the full schema for one service type. Fields keep their
// manifest declaration order, which validation follows.
type Service struct {
	Type        string
	Description string
	Fields      []Field

	fieldIndex map[string]int
}

// Field looks up a declared field by name.
func (s *Service) Field(name string) (Field, bool) {
	i, ok := s.fieldIndex[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// RequiredFields returns the names of all required fields, in declaration order.
func (s *Service) RequiredFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

func (s *Service) reindex() error {
	s.fieldIndex = make(map[string]int, len(s.Fields))
	for i, f := range s.Fields {
		if _, dup := s.fieldIndex[f.Name]; dup {
			return fmt.Errorf("service %q: duplicate field %q", s.Type, f.Name)
		}
		s.fieldIndex[f.Name] = i
	}
	return nil
}
