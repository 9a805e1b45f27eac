// Package validate checks raw service requests against their schemas,
// coercing value kinds and filling defaults. Validation is pure: no session
// state is touched and independent requests may be validated concurrently.
package validate

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/calcforge/calcforge/internal/schema"
)

// Config is a validated, typed service configuration. It is created only by
// Validator.Validate and is immutable afterwards: every required field of
// the schema is present and every value satisfies its declared kind.
type Config struct {
	ServiceType string

	values map[string]cty.Value
	order  []string
}

// Has reports whether the named field is present.
func (c *Config) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Value returns the raw cty value of a field.
func (c *Config) Value(name string) (cty.Value, bool) {
	v, ok := c.values[name]
	return v, ok
}

// String returns the field rendered as a string, or "" when absent. Numbers
// and booleans render in their cty string form, which is what page inputs
// expect.
func (c *Config) String(name string) string {
	v, ok := c.values[name]
	if !ok {
		return ""
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return ""
	}
	return s.AsString()
}

// Number returns the field as a float64, or 0 when absent or non-numeric.
func (c *Config) Number(name string) float64 {
	v, ok := c.values[name]
	if !ok || v.Type() != cty.Number {
		return 0
	}
	f, _ := v.AsBigFloat().Float64()
	return f
}

// Bool returns the field as a bool, or false when absent.
func (c *Config) Bool(name string) bool {
	v, ok := c.values[name]
	if !ok || v.Type() != cty.Bool {
		return false
	}
	return v.True()
}

// FieldNames returns the present field names in schema declaration order.
func (c *Config) FieldNames() []string {
	return append([]string(nil), c.order...)
}

// Validator validates requests against a schema registry.
type Validator struct {
	schemas *schema.Registry
}

// New creates a Validator over the given registry.
func New(schemas *schema.Registry) *Validator {
	return &Validator{schemas: schemas}
}

// Validate checks one raw request against the schema for serviceType.
// An unknown service type surfaces the registry's not-found error before any
// field checks run; field problems come back as *ValidationError.
func (v *Validator) Validate(serviceType string, request map[string]any) (*Config, error) {
	svc, err := v.schemas.Get(serviceType)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServiceType: serviceType,
		values:      make(map[string]cty.Value, len(svc.Fields)),
	}

	for _, field := range svc.Fields {
		raw, supplied := request[field.Name]
		if !supplied {
			if field.Required {
				return nil, fieldErr(serviceType, field.Name, "missing required field")
			}
			if field.HasDefault() {
				cfg.values[field.Name] = field.Default
				cfg.order = append(cfg.order, field.Name)
			}
			continue
		}

		val, err := coerce(raw, field.Kind.CtyType())
		if err != nil {
			return nil, fieldErr(serviceType, field.Name, "expected %s: %v", field.Kind, err)
		}

		if field.Kind == schema.KindEnum && !field.AllowsValue(val.AsString()) {
			return nil, fieldErr(serviceType, field.Name, "value %q is not one of %v", val.AsString(), field.Values)
		}

		cfg.values[field.Name] = val
		cfg.order = append(cfg.order, field.Name)
	}

	// Reject request fields the schema does not declare; silent pass-through
	// would hide typos and stale mappings. Sorted so the named field is
	// deterministic.
	var unknown []string
	for name := range request {
		if _, ok := svc.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fieldErr(serviceType, unknown[0], "field is not declared in the %s schema", serviceType)
	}

	return cfg, nil
}

// coerce converts a raw request value into the wanted cty type. The cty
// conversion rules handle numeric strings ("500") and boolean strings
// ("true"); unit-suffixed strings such as "500 GB" are not accepted here,
// they must be converted by the input normalizer before validation.
func coerce(raw any, want cty.Type) (cty.Value, error) {
	var val cty.Value
	switch x := raw.(type) {
	case string:
		val = cty.StringVal(x)
	case bool:
		val = cty.BoolVal(x)
	case float64:
		val = cty.NumberFloatVal(x)
	case float32:
		val = cty.NumberFloatVal(float64(x))
	case int:
		val = cty.NumberIntVal(int64(x))
	case int64:
		val = cty.NumberIntVal(x)
	case uint64:
		val = cty.NumberUIntVal(x)
	case nil:
		return cty.NilVal, fmt.Errorf("value is null")
	default:
		return cty.NilVal, fmt.Errorf("unsupported value type %T", raw)
	}

	converted, err := convert.Convert(val, want)
	if err != nil {
		return cty.NilVal, err
	}
	return converted, nil
}
