package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/api"
	"steward/internal/registry"
)

type fakeDiscoverer struct {
	calls  int
	result map[string]string
	err    error
}

func (d *fakeDiscoverer) Discover(ctx context.Context) (map[string]string, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.result, nil
}

func handlerContext(platform api.Platform, serviceType string) *api.HandlerContext {
	return &api.HandlerContext{
		Identity: api.ServiceIdentity{
			Environment: "local",
			Service:     "web",
			Platform:    platform,
		},
		ServiceType: serviceType,
	}
}

func mustRegistry(t *testing.T, descriptors ...registry.Descriptor) *registry.Registry {
	t.Helper()
	r, err := registry.NewFromDescriptors(descriptors)
	require.NoError(t, err)
	return r
}

func TestExecute_PlatformGuard(t *testing.T) {
	s := NewStrategy(api.PlatformProcess, mustRegistry(t), nil)

	_, err := s.Execute(context.Background(), api.CommandCheck, handlerContext(api.PlatformCloud, "web"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoked with cloud identity")
}

func TestExecute_UnregisteredCombinationIsAnError(t *testing.T) {
	s := NewStrategy(api.PlatformProcess, mustRegistry(t), nil)

	_, err := s.Execute(context.Background(), api.CommandCheck, handlerContext(api.PlatformProcess, "web"))
	require.Error(t, err)
	assert.True(t, api.IsUnsupported(err))
}

func TestExecute_HandlerErrorBecomesFailedResult(t *testing.T) {
	reg := mustRegistry(t, registry.Descriptor{
		Command:     api.CommandStart,
		Platform:    api.PlatformProcess,
		ServiceType: "web",
		Handler: func(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
			return nil, errors.New("spawn: permission denied")
		},
	})
	s := NewStrategy(api.PlatformProcess, reg, nil)

	result, err := s.Execute(context.Background(), api.CommandStart, handlerContext(api.PlatformProcess, "web"))
	require.NoError(t, err, "handler failures are normalized, not propagated")
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "permission denied")
}

func TestExecute_DiscoveryPrePass(t *testing.T) {
	discovered := map[string]string{"cluster": "prod-cluster", "region": "eu-west-1"}

	newStrategy := func(t *testing.T, d Discoverer) *Strategy {
		reg := mustRegistry(t,
			registry.Descriptor{
				Command:           api.CommandCheck,
				Platform:          api.PlatformCloud,
				ServiceType:       "web",
				RequiresDiscovery: true,
				Handler: func(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
					return &api.Result{
						Success: true,
						Status:  api.StatusRunning,
						Metadata: map[string]any{
							"cluster": hctx.Discovered["cluster"],
						},
					}, nil
				},
			},
			registry.Descriptor{
				Command:     api.CommandStop,
				Platform:    api.PlatformCloud,
				ServiceType: "web",
				Handler: func(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
					require.Nil(t, hctx.Discovered)
					return &api.Result{Success: true, Status: api.StatusStopped}, nil
				},
			},
		)
		return NewStrategy(api.PlatformCloud, reg, d)
	}

	t.Run("discovered identifiers reach the handler", func(t *testing.T) {
		d := &fakeDiscoverer{result: discovered}
		s := newStrategy(t, d)

		hctx := handlerContext(api.PlatformCloud, "web")
		result, err := s.Execute(context.Background(), api.CommandCheck, hctx)
		require.NoError(t, err)
		assert.Equal(t, "prod-cluster", result.Metadata["cluster"])
		assert.Equal(t, discovered, hctx.Discovered)
	})

	t.Run("discovery is memoized per strategy", func(t *testing.T) {
		d := &fakeDiscoverer{result: discovered}
		s := newStrategy(t, d)

		for i := 0; i < 3; i++ {
			_, err := s.Execute(context.Background(), api.CommandCheck, handlerContext(api.PlatformCloud, "web"))
			require.NoError(t, err)
		}
		assert.Equal(t, 1, d.calls)
	})

	t.Run("handlers without the flag skip discovery", func(t *testing.T) {
		d := &fakeDiscoverer{result: discovered}
		s := newStrategy(t, d)

		_, err := s.Execute(context.Background(), api.CommandStop, handlerContext(api.PlatformCloud, "web"))
		require.NoError(t, err)
		assert.Equal(t, 0, d.calls)
	})

	t.Run("discovery failure aborts the dispatch", func(t *testing.T) {
		d := &fakeDiscoverer{err: errors.New("stack not found")}
		s := newStrategy(t, d)

		_, err := s.Execute(context.Background(), api.CommandCheck, handlerContext(api.PlatformCloud, "web"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "infrastructure discovery failed")
	})

	t.Run("missing discoverer is a configuration error", func(t *testing.T) {
		s := newStrategy(t, nil)
		_, err := s.Execute(context.Background(), api.CommandCheck, handlerContext(api.PlatformCloud, "web"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires discovery")
	})
}

func TestExecute_NilHandlerResultNormalized(t *testing.T) {
	reg := mustRegistry(t, registry.Descriptor{
		Command:     api.CommandTest,
		Platform:    api.PlatformProcess,
		ServiceType: "web",
		Handler: func(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
			return nil, nil
		},
	})
	s := NewStrategy(api.PlatformProcess, reg, nil)

	result, err := s.Execute(context.Background(), api.CommandTest, handlerContext(api.PlatformProcess, "web"))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
}
