package config

import (
	"fmt"

	"steward/internal/api"
)

// Validate checks an environment config for structural problems. Problems
// are collected rather than fail-fast so a single run reports everything
// wrong with the file. A non-nil return is always an *api.ConfigError.
func Validate(env *EnvironmentConfig) error {
	var problems []string

	if env.Deployment.Default == "" {
		problems = append(problems, "deployment.default platform is required")
	} else if !env.Deployment.Default.Valid() {
		problems = append(problems, fmt.Sprintf("deployment.default platform %q is not one of process, container, cloud", env.Deployment.Default))
	}

	if len(env.Services) == 0 {
		problems = append(problems, "at least one service must be configured")
	}

	for name, svc := range env.Services {
		if svc.Type == "" {
			problems = append(problems, fmt.Sprintf("service %q: type is required", name))
		}
		if svc.Platform != "" && !svc.Platform.Valid() {
			problems = append(problems, fmt.Sprintf("service %q: platform %q is not one of process, container, cloud", name, svc.Platform))
		}
		if svc.Port < 0 || svc.Port > 65535 {
			problems = append(problems, fmt.Sprintf("service %q: port %d is out of range", name, svc.Port))
		}

		effective := svc.Platform
		if effective == "" {
			effective = env.Deployment.Default
		}
		switch effective {
		case api.PlatformProcess:
			if len(svc.Command) == 0 {
				problems = append(problems, fmt.Sprintf("service %q: process platform requires a command", name))
			}
		case api.PlatformContainer:
			if svc.Image == "" {
				problems = append(problems, fmt.Sprintf("service %q: container platform requires an image", name))
			}
		}
	}

	if env.Deployment.Default == api.PlatformCloud || anyCloudService(env) {
		if env.Cloud.Region == "" {
			problems = append(problems, "cloud.region is required when any service targets the cloud platform")
		}
		if env.Cloud.StackName == "" && env.Cloud.Cluster == "" {
			problems = append(problems, "one of cloud.stackName or cloud.cluster is required when any service targets the cloud platform")
		}
	}

	if len(problems) > 0 {
		return &api.ConfigError{Environment: env.Name, Problems: problems}
	}
	return nil
}

func anyCloudService(env *EnvironmentConfig) bool {
	for _, svc := range env.Services {
		if svc.Platform == api.PlatformCloud {
			return true
		}
	}
	return false
}
