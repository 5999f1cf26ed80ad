package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"steward/internal/api"
	"steward/pkg/logging"
)

// environmentsDir is the entity directory environment files live in.
const environmentsDir = "environments"

// LoadEnvironment loads and merges the configuration for a named environment.
//
// Two layers are consulted, lowest precedence first:
//
//  1. the user layer: ~/.config/steward/environments/<name>.yaml
//  2. the project layer: <projectRoot>/.steward/environments/<name>.yaml
//
// The project layer wins per service and per top-level section. A missing
// user layer is fine; a missing project layer is fine as long as the user
// layer defines the environment. Neither existing is a NotFoundError.
func LoadEnvironment(projectRoot, name string) (*EnvironmentConfig, error) {
	merged := &EnvironmentConfig{Name: name, Services: map[string]ServiceConfig{}}
	found := false

	for _, dir := range []string{userConfigDir(), filepath.Join(projectRoot, DefaultDirName)} {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, environmentsDir, name+".yaml")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read environment file %s: %w", path, err)
		}

		var layer EnvironmentConfig
		if err := yaml.Unmarshal(data, &layer); err != nil {
			return nil, fmt.Errorf("failed to parse environment file %s: %w", path, err)
		}
		mergeLayer(merged, &layer)
		found = true
		logging.Debug("Config", "Loaded environment layer %s", path)
	}

	if !found {
		return nil, api.NewNotFoundError("environment", name)
	}

	merged.Name = name
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// mergeLayer overlays layer onto base. Top-level sections replace when set;
// services merge per name.
func mergeLayer(base, layer *EnvironmentConfig) {
	if layer.Deployment.Default != "" {
		base.Deployment = layer.Deployment
	}
	if layer.Site.Domain != "" {
		base.Site = layer.Site
	}
	if layer.Cloud != (CloudConfig{}) {
		base.Cloud = layer.Cloud
	}
	for name, svc := range layer.Services {
		base.Services[name] = svc
	}
}

func userConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "steward")
}
