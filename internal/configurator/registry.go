package configurator

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrUnsupported is returned by Resolve for service types with no
// registered configurator. A service may carry a schema and still be
// unsupported here; the two registries are checked independently.
var ErrUnsupported = errors.New("unsupported service type")

// Registry maps service-type keys to their Configurator.
type Registry struct {
	configurators map[string]Configurator
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{configurators: make(map[string]Configurator)}
}

// Register adds a configurator. Double registration of a service type is a
// programmer error.
func (r *Registry) Register(c Configurator) {
	if _, exists := r.configurators[c.ServiceType()]; exists {
		panic(fmt.Sprintf("configurator for service type %q already registered", c.ServiceType()))
	}
	slog.Debug("Registering configurator.", "service", c.ServiceType())
	r.configurators[c.ServiceType()] = c
}

// Resolve returns the configurator for a service type, or an error wrapping
// ErrUnsupported.
func (r *Registry) Resolve(serviceType string) (Configurator, error) {
	c, ok := r.configurators[serviceType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, serviceType)
	}
	return c, nil
}

// Types returns all registered service types, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.configurators))
	for t := range r.configurators {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// NewDefault builds the registry with every built-in service configurator.
func NewDefault() *Registry {
	r := New()
	r.Register(newS3())
	r.Register(newEC2())
	r.Register(newLambda())
	r.Register(newECSFargate())
	r.Register(newALB())
	r.Register(newCloudWatch())
	r.Register(newSQS())
	r.Register(newVPC())
	return r
}
