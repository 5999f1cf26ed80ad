package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/api"
)

func writeEnvironmentFile(t *testing.T, dir, name, content string) {
	t.Helper()
	envDir := filepath.Join(dir, environmentsDir)
	require.NoError(t, os.MkdirAll(envDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, name+".yaml"), []byte(content), 0644))
}

const projectLayer = `
deployment:
  default: process
services:
  web:
    type: web
    port: 3000
    command: ["npm", "start"]
`

func TestLoadEnvironment(t *testing.T) {
	t.Run("project layer alone", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		root := t.TempDir()
		writeEnvironmentFile(t, filepath.Join(root, DefaultDirName), "local", projectLayer)

		env, err := LoadEnvironment(root, "local")
		require.NoError(t, err)
		assert.Equal(t, "local", env.Name)
		assert.Equal(t, api.PlatformProcess, env.Deployment.Default)
		require.Contains(t, env.Services, "web")
		assert.Equal(t, 3000, env.Services["web"].Port)
	})

	t.Run("unknown environment is a not-found error", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		_, err := LoadEnvironment(t.TempDir(), "nope")
		assert.True(t, api.IsNotFound(err))
	})

	t.Run("project layer wins over the user layer", func(t *testing.T) {
		userBase := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", userBase)
		writeEnvironmentFile(t, filepath.Join(userBase, "steward"), "local", `
deployment:
  default: process
site:
  domain: user.example.com
services:
  web:
    type: web
    port: 8080
    command: ["user-serve"]
  cache:
    type: worker
    command: ["redis-server"]
`)
		root := t.TempDir()
		writeEnvironmentFile(t, filepath.Join(root, DefaultDirName), "local", projectLayer)

		env, err := LoadEnvironment(root, "local")
		require.NoError(t, err)
		assert.Equal(t, 3000, env.Services["web"].Port, "project service definition replaces the user one")
		assert.Contains(t, env.Services, "cache", "user-only services survive the merge")
		assert.Equal(t, "user.example.com", env.Site.Domain, "user sections the project does not set are kept")
	})

	t.Run("malformed yaml is a parse error", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		root := t.TempDir()
		writeEnvironmentFile(t, filepath.Join(root, DefaultDirName), "local", "{{{ not yaml")

		_, err := LoadEnvironment(root, "local")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse environment file")
	})

	t.Run("validation runs on the merged result", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		root := t.TempDir()
		writeEnvironmentFile(t, filepath.Join(root, DefaultDirName), "local", `
deployment:
  default: process
services:
  web:
    type: web
`)
		_, err := LoadEnvironment(root, "local")
		require.Error(t, err)
		assert.True(t, api.IsConfigError(err))
	})
}

func TestValidate(t *testing.T) {
	valid := func() *EnvironmentConfig {
		return &EnvironmentConfig{
			Name:       "local",
			Deployment: DeploymentConfig{Default: api.PlatformProcess},
			Services: map[string]ServiceConfig{
				"web": {Type: "web", Port: 3000, Command: []string{"npm", "start"}},
			},
		}
	}

	t.Run("a valid environment passes", func(t *testing.T) {
		assert.NoError(t, Validate(valid()))
	})

	t.Run("problems are collected, not fail-fast", func(t *testing.T) {
		env := &EnvironmentConfig{
			Name:       "broken",
			Deployment: DeploymentConfig{Default: "vm"},
			Services: map[string]ServiceConfig{
				"web": {Port: 99999},
			},
		}
		err := Validate(env)
		require.Error(t, err)
		require.True(t, api.IsConfigError(err))
		msg := err.Error()
		assert.Contains(t, msg, `platform "vm"`)
		assert.Contains(t, msg, "type is required")
		assert.Contains(t, msg, "port 99999 is out of range")
	})

	t.Run("process platform requires a command", func(t *testing.T) {
		env := valid()
		svc := env.Services["web"]
		svc.Command = nil
		env.Services["web"] = svc
		err := Validate(env)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires a command")
	})

	t.Run("container platform requires an image", func(t *testing.T) {
		env := valid()
		env.Services["db"] = ServiceConfig{Type: "database", Platform: api.PlatformContainer}
		err := Validate(env)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires an image")
	})

	t.Run("cloud services require region and a cluster source", func(t *testing.T) {
		env := valid()
		env.Services["api"] = ServiceConfig{Type: "api", Platform: api.PlatformCloud}
		err := Validate(env)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cloud.region is required")
		assert.Contains(t, err.Error(), "cloud.stackName or cloud.cluster")

		env.Cloud = CloudConfig{Region: "eu-west-1", Cluster: "prod"}
		assert.NoError(t, Validate(env))
	})
}

func TestHandlerSettings(t *testing.T) {
	cfg := ServiceConfig{
		Type:         "web",
		Port:         3000,
		Image:        "registry.example.com/web:2",
		Command:      []string{"npm", "start"},
		DesiredCount: 2,
	}
	settings := cfg.HandlerSettings()
	assert.Equal(t, 3000, settings["port"])
	assert.Equal(t, "registry.example.com/web:2", settings["image"])
	assert.Equal(t, 2, settings["desiredCount"])
	assert.NotContains(t, settings, "workDir", "unset fields do not appear")
	assert.NotContains(t, settings, "dbInstance")
}
