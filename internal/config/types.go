package config

import (
	"sort"

	"steward/internal/api"
	"steward/internal/requirements"
)

// ServiceConfig is the per-service section of an environment file.
type ServiceConfig struct {
	// Platform overrides the environment's default platform for this service.
	Platform api.Platform `yaml:"platform,omitempty" json:"platform,omitempty"`

	// Type is the service type (web, api, worker, database, filesystem,
	// function). Handler registration is keyed on it.
	Type string `yaml:"type" json:"type"`

	Port  int    `yaml:"port,omitempty" json:"port,omitempty"`
	Image string `yaml:"image,omitempty" json:"image,omitempty"`

	// Command and WorkDir apply to the process platform.
	Command []string `yaml:"command,omitempty" json:"command,omitempty"`
	WorkDir string   `yaml:"workDir,omitempty" json:"workDir,omitempty"`

	// TestCommand is what the test verb runs for this service.
	TestCommand []string `yaml:"testCommand,omitempty" json:"testCommand,omitempty"`

	// ServiceName and DBInstance override the cloud-side resource names
	// when they differ from the logical service name.
	ServiceName string `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
	DBInstance  string `yaml:"dbInstance,omitempty" json:"dbInstance,omitempty"`

	// DesiredCount is the task count the cloud start verb scales to.
	DesiredCount int `yaml:"desiredCount,omitempty" json:"desiredCount,omitempty"`

	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`

	// Requirements carries explicit overrides of the type-derived defaults.
	Requirements *requirements.ServiceRequirements `yaml:"requirements,omitempty" json:"requirements,omitempty"`
}

// HandlerSettings flattens the service configuration into the loose map
// handlers receive. Only set fields appear so handlers can distinguish
// "configured" from "absent".
func (s ServiceConfig) HandlerSettings() map[string]any {
	settings := make(map[string]any)
	if s.Port > 0 {
		settings["port"] = s.Port
	}
	if s.Image != "" {
		settings["image"] = s.Image
	}
	if len(s.Command) > 0 {
		settings["command"] = s.Command
	}
	if s.WorkDir != "" {
		settings["workDir"] = s.WorkDir
	}
	if len(s.TestCommand) > 0 {
		settings["testCommand"] = s.TestCommand
	}
	if s.ServiceName != "" {
		settings["serviceName"] = s.ServiceName
	}
	if s.DBInstance != "" {
		settings["dbInstance"] = s.DBInstance
	}
	if s.DesiredCount > 0 {
		settings["desiredCount"] = s.DesiredCount
	}
	return settings
}

// DeploymentConfig holds environment-wide deployment settings.
type DeploymentConfig struct {
	// Default is the platform used by services that declare none.
	Default api.Platform `yaml:"default" json:"default"`
}

// SiteConfig holds the environment's public surface settings.
type SiteConfig struct {
	Domain string `yaml:"domain,omitempty" json:"domain,omitempty"`
}

// CloudConfig holds the managed-cloud settings shared by every cloud-bound
// service in an environment.
type CloudConfig struct {
	Region string `yaml:"region,omitempty" json:"region,omitempty"`

	// StackName names the infrastructure stack whose outputs the discovery
	// pre-pass reads (cluster name, subnet ids, ...).
	StackName string `yaml:"stackName,omitempty" json:"stackName,omitempty"`

	// Cluster may be set explicitly to skip stack discovery.
	Cluster string `yaml:"cluster,omitempty" json:"cluster,omitempty"`
}

// EnvironmentConfig is the merged configuration for one named environment.
// The orchestration engine treats it as an opaque input; producing it (file
// discovery, merging) is this package's loader.
type EnvironmentConfig struct {
	Name       string                   `yaml:"name" json:"name"`
	Deployment DeploymentConfig         `yaml:"deployment" json:"deployment"`
	Site       SiteConfig               `yaml:"site,omitempty" json:"site,omitempty"`
	Cloud      CloudConfig              `yaml:"cloud,omitempty" json:"cloud,omitempty"`
	Services   map[string]ServiceConfig `yaml:"services" json:"services"`
}

// PlatformFor resolves the effective platform for a named service.
func (e *EnvironmentConfig) PlatformFor(service string) api.Platform {
	svc, ok := e.Services[service]
	if ok && svc.Platform != "" {
		return svc.Platform
	}
	return e.Deployment.Default
}

// ServiceNames returns the configured service names in sorted order so that
// selector expansion is deterministic.
func (e *EnvironmentConfig) ServiceNames() []string {
	names := make([]string, 0, len(e.Services))
	for name := range e.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
