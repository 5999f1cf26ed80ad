package platform

import (
	"context"
	"sync"

	"steward/pkg/logging"
)

// Discoverer resolves live-infrastructure identifiers (cluster names, subnet
// ids, ...) that are not derivable from naming convention. The cloud
// platform's discoverer reads them from an infrastructure stack description.
type Discoverer interface {
	Discover(ctx context.Context) (map[string]string, error)
}

// cachingDiscoverer memoizes a successful discovery for the lifetime of the
// strategy, i.e. one command invocation. Discovery results are never
// persisted: the next invocation discovers afresh.
type cachingDiscoverer struct {
	mu     sync.Mutex
	inner  Discoverer
	cached map[string]string
}

func newCachingDiscoverer(inner Discoverer) Discoverer {
	if inner == nil {
		return nil
	}
	return &cachingDiscoverer{inner: inner}
}

func (c *cachingDiscoverer) Discover(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil {
		return c.cached, nil
	}
	discovered, err := c.inner.Discover(ctx)
	if err != nil {
		return nil, err
	}
	c.cached = discovered
	logging.Debug("Discovery", "Discovered %d infrastructure identifiers", len(discovered))
	return c.cached, nil
}
