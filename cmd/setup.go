package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"steward/internal/api"
	"steward/internal/cli"
	"steward/internal/config"
	"steward/internal/orchestrator"
	"steward/internal/platform"
	"steward/internal/platform/awsapi"
	"steward/internal/platform/dockerapi"
	"steward/internal/registry"
	"steward/internal/rollout"
	"steward/internal/service"
	"steward/internal/state"
)

// runtime bundles everything a verb command needs after startup wiring.
type runtime struct {
	env          *config.EnvironmentConfig
	orchestrator *orchestrator.Orchestrator
	renderer     *cli.Renderer
	progress     *cli.RolloutProgress
}

// environmentPlatforms returns the set of platforms the environment's
// services are bound to, so only the needed adapters are constructed.
func environmentPlatforms(env *config.EnvironmentConfig) map[api.Platform]bool {
	platforms := make(map[api.Platform]bool)
	for name := range env.Services {
		platforms[env.PlatformFor(name)] = true
	}
	return platforms
}

// buildRuntime loads the environment and wires the full engine: handler
// registry, one strategy per bound platform, state store and orchestrator.
// Registration problems (duplicate descriptors) surface here, at startup,
// never during a verb.
func buildRuntime(ctx context.Context, out io.Writer) (*runtime, error) {
	env, err := config.LoadEnvironment(flagProjectRoot, flagEnvironment)
	if err != nil {
		return nil, err
	}

	store := state.NewStore(config.NewStorage(flagProjectRoot))
	platforms := environmentPlatforms(env)
	progress := cli.NewRolloutProgress(flagQuiet)

	var descriptors []registry.Descriptor
	strategies := make(map[api.Platform]service.Executor)

	if platforms[api.PlatformProcess] {
		logDir := filepath.Join(flagProjectRoot, config.DefaultDirName, "logs")
		descriptors = append(descriptors, platform.ProcessDescriptors(logDir)...)
	}
	if platforms[api.PlatformContainer] {
		docker, err := dockerapi.New()
		if err != nil {
			return nil, fmt.Errorf("container platform unavailable: %w", err)
		}
		descriptors = append(descriptors, docker.Descriptors()...)
	}

	var discoverer platform.Discoverer
	if platforms[api.PlatformCloud] {
		aws, err := awsapi.New(ctx, awsapi.Options{
			Region:    env.Cloud.Region,
			StackName: env.Cloud.StackName,
			Cluster:   env.Cloud.Cluster,
			Domain:    env.Site.Domain,
		})
		if err != nil {
			return nil, fmt.Errorf("cloud platform unavailable: %w", err)
		}
		descriptors = append(descriptors, aws.Descriptors(rollout.Options{}, progress.Sink())...)
		discoverer = aws
	}

	reg, err := registry.NewFromDescriptors(descriptors)
	if err != nil {
		return nil, fmt.Errorf("handler registration: %w", err)
	}

	if platforms[api.PlatformProcess] {
		strategies[api.PlatformProcess] = platform.NewStrategy(api.PlatformProcess, reg, nil)
	}
	if platforms[api.PlatformContainer] {
		strategies[api.PlatformContainer] = platform.NewStrategy(api.PlatformContainer, reg, nil)
	}
	if platforms[api.PlatformCloud] {
		strategies[api.PlatformCloud] = platform.NewStrategy(api.PlatformCloud, reg, discoverer)
	}

	orch := orchestrator.New(flagProjectRoot, env, store, strategies, service.Hooks{})
	return &runtime{
		env:          env,
		orchestrator: orch,
		renderer:     cli.NewRenderer(out, flagQuiet),
		progress:     progress,
	}, nil
}
