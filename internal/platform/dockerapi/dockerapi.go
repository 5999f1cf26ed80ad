// Package dockerapi implements the container-platform handlers against the
// Docker Engine API. It is the only package that talks to the container
// runtime; the platform strategy above it sees nothing but the handler
// contract.
package dockerapi

import (
	"fmt"

	"github.com/moby/moby/client"
)

// Adapter owns the Docker Engine client shared by all container handlers.
type Adapter struct {
	client *client.Client
}

// New initializes the adapter from the environment (DOCKER_HOST and
// friends), with API version negotiation.
func New() (*Adapter, error) {
	c, err := client.New(
		client.FromEnv,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{client: c}, nil
}

// containerName returns the environment-scoped container name for a service.
// Scoping by environment lets two environments run the same service on one
// daemon.
func containerName(environment, service string) string {
	return environment + "-" + service
}

// labels attached to every container steward creates, used to recognize our
// own containers during check and update.
func stewardLabels(environment, service string) map[string]string {
	return map[string]string{
		"steward.io/environment": environment,
		"steward.io/service":     service,
	}
}
