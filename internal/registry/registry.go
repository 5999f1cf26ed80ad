package registry

import (
	"context"
	"fmt"
	"sync"

	"steward/internal/api"
)

// Handler executes one command for one service on one platform. Handlers are
// the only place platform APIs are called; everything above them is dispatch.
type Handler func(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error)

// Descriptor binds a handler to its exact dispatch triple.
type Descriptor struct {
	Command     string
	Platform    api.Platform
	ServiceType string
	Handler     Handler

	// RequiresDiscovery asks the caller to run the infrastructure discovery
	// pre-pass and populate HandlerContext.Discovered before invoking.
	RequiresDiscovery bool
}

type key struct {
	command     string
	platform    api.Platform
	serviceType string
}

// Registry is the (command, platform, service type) dispatch table. It is
// built once at process start from a closed descriptor list and never
// mutated afterwards; a duplicate key during construction is a programming
// error, not a runtime condition.
type Registry struct {
	mu       sync.RWMutex
	handlers map[key]Descriptor
}

// Resolver is the lookup surface consumed by platform strategies. Split out
// as an interface so tests can substitute counting fakes.
type Resolver interface {
	Resolve(command string, platform api.Platform, serviceType string) (Descriptor, error)
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[key]Descriptor)}
}

// NewFromDescriptors builds a registry from a closed descriptor list,
// failing on the first duplicate key.
func NewFromDescriptors(descriptors []Descriptor) (*Registry, error) {
	r := New()
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNewFromDescriptors is NewFromDescriptors for startup wiring, where a
// duplicate registration is an invariant violation worth crashing on.
func MustNewFromDescriptors(descriptors []Descriptor) *Registry {
	r, err := NewFromDescriptors(descriptors)
	if err != nil {
		panic(err)
	}
	return r
}

// Register inserts a descriptor. It fails when the descriptor is incomplete
// or its exact key is already taken.
func (r *Registry) Register(d Descriptor) error {
	if d.Command == "" {
		return fmt.Errorf("descriptor has empty command")
	}
	if !d.Platform.Valid() {
		return fmt.Errorf("descriptor for command %q has invalid platform %q", d.Command, d.Platform)
	}
	if d.ServiceType == "" {
		return fmt.Errorf("descriptor for command %q on %s has empty service type", d.Command, d.Platform)
	}
	if d.Handler == nil {
		return fmt.Errorf("descriptor for (%s, %s, %s) has nil handler", d.Command, d.Platform, d.ServiceType)
	}

	k := key{command: d.Command, platform: d.Platform, serviceType: d.ServiceType}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[k]; exists {
		return fmt.Errorf("duplicate handler registration for (%s, %s, %s)", d.Command, d.Platform, d.ServiceType)
	}
	r.handlers[k] = d
	return nil
}

// Resolve looks up the descriptor for the exact triple. There is no fallback
// chain: a new service type never silently inherits another type's handler,
// and a missing registration surfaces as an UnsupportedError the caller
// records as a per-service failure.
func (r *Registry) Resolve(command string, platform api.Platform, serviceType string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.handlers[key{command: command, platform: platform, serviceType: serviceType}]
	if !ok {
		return Descriptor{}, api.NewUnsupportedError(command, platform, serviceType, "no handler registered")
	}
	return d, nil
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
