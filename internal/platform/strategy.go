package platform

import (
	"context"
	"fmt"

	"steward/internal/api"
	"steward/internal/registry"
	"steward/pkg/logging"
)

// Strategy executes the uniform verb set on one platform. It contains no
// platform API calls itself: for every verb it resolves the registered
// handler, runs the discovery pre-pass when the handler asks for it, invokes
// the handler, and normalizes whatever comes back into the common Result
// shape. The handlers are where the platform APIs live.
type Strategy struct {
	platform   api.Platform
	resolver   registry.Resolver
	discoverer Discoverer
}

// NewStrategy creates the strategy for one platform. The discoverer may be
// nil for platforms whose resource names are fully derivable from naming
// convention (process, container).
func NewStrategy(platform api.Platform, resolver registry.Resolver, discoverer Discoverer) *Strategy {
	return &Strategy{
		platform:   platform,
		resolver:   resolver,
		discoverer: newCachingDiscoverer(discoverer),
	}
}

// Platform returns the platform this strategy serves.
func (s *Strategy) Platform() api.Platform {
	return s.platform
}

// Execute runs one verb for one service. Dispatch failures come back as
// errors (the caller records them as per-service failures); handler
// execution failures are caught at the handler boundary and normalized into
// a failed Result instead.
func (s *Strategy) Execute(ctx context.Context, command string, hctx *api.HandlerContext) (*api.Result, error) {
	if hctx.Identity.Platform != s.platform {
		return nil, fmt.Errorf("strategy for %s invoked with %s identity %s", s.platform, hctx.Identity.Platform, hctx.Identity.Key())
	}

	desc, err := s.resolver.Resolve(command, s.platform, hctx.ServiceType)
	if err != nil {
		return nil, err
	}

	if desc.RequiresDiscovery {
		if s.discoverer == nil {
			return nil, fmt.Errorf("handler for (%s, %s, %s) requires discovery but the %s strategy has no discoverer",
				command, s.platform, hctx.ServiceType, s.platform)
		}
		discovered, err := s.discoverer.Discover(ctx)
		if err != nil {
			return nil, fmt.Errorf("infrastructure discovery failed: %w", err)
		}
		hctx.Discovered = discovered
	}

	logging.Debug("Platform", "Dispatching %s for %s (%s/%s)", command, hctx.Identity.Key(), s.platform, hctx.ServiceType)

	result, err := desc.Handler(ctx, hctx)
	if err != nil {
		// The handler boundary: platform call failures become failed
		// results, never panics or batch aborts.
		if hctx.Verbose {
			logging.Error("Platform", err, "Handler %s/%s/%s failed for %s", command, s.platform, hctx.ServiceType, hctx.Identity.Key())
		}
		return api.FailureResult(err), nil
	}
	if result == nil {
		result = &api.Result{Success: true, Status: api.StatusUnknown}
	}
	return result, nil
}
