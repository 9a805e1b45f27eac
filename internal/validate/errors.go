package validate

import "fmt"

// ValidationError is the structured rejection produced when a request does
// not satisfy its schema. It always names the offending field.
type ValidationError struct {
	ServiceType string
	Field       string
	Message     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("service %q, field %q: %s", e.ServiceType, e.Field, e.Message)
}

func fieldErr(serviceType, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		ServiceType: serviceType,
		Field:       field,
		Message:     fmt.Sprintf(format, args...),
	}
}
