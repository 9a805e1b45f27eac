package schema

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned by Registry.Get for unknown service types.
var ErrNotFound = errors.New("service schema not found")

// Registry is the process-wide, read-only collection of service schemas.
// It is populated once by the loader and never mutated afterwards.
type Registry struct {
	services map[string]*Service
}

// Get returns the schema for a service type, or an error wrapping
// ErrNotFound when the type is unknown.
func (r *Registry) Get(serviceType string) (*Service, error) {
	svc, ok := r.services[serviceType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, serviceType)
	}
	return svc, nil
}

// Has reports whether a schema exists for the service type.
func (r *Registry) Has(serviceType string) bool {
	_, ok := r.services[serviceType]
	return ok
}

// Types returns all registered service types, sorted for stable output.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.services))
	for t := range r.services {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	return len(r.services)
}

func newRegistry() *Registry {
	return &Registry{services: make(map[string]*Service)}
}

func (r *Registry) add(svc *Service) error {
	if _, dup := r.services[svc.Type]; dup {
		return fmt.Errorf("duplicate service schema %q", svc.Type)
	}
	if err := svc.reindex(); err != nil {
		return err
	}
	r.services[svc.Type] = svc
	return nil
}
