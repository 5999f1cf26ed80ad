package dockerapi

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"

	"github.com/containerd/errdefs"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"

	"steward/internal/api"
	"steward/internal/registry"
	"steward/internal/requirements"
	"steward/pkg/logging"
)

// containerServiceTypes are the service types the container platform
// handles. Functions and managed filesystems have no container rendition
// here.
var containerServiceTypes = []string{
	requirements.TypeWeb,
	requirements.TypeAPI,
	requirements.TypeWorker,
	requirements.TypeDatabase,
}

// Descriptors returns the handler registrations for the container platform.
func (a *Adapter) Descriptors() []registry.Descriptor {
	var descriptors []registry.Descriptor
	for _, serviceType := range containerServiceTypes {
		descriptors = append(descriptors,
			registry.Descriptor{Command: api.CommandStart, Platform: api.PlatformContainer, ServiceType: serviceType, Handler: a.start},
			registry.Descriptor{Command: api.CommandStop, Platform: api.PlatformContainer, ServiceType: serviceType, Handler: a.stop},
			registry.Descriptor{Command: api.CommandCheck, Platform: api.PlatformContainer, ServiceType: serviceType, Handler: a.check},
			registry.Descriptor{Command: api.CommandUpdate, Platform: api.PlatformContainer, ServiceType: serviceType, Handler: a.update},
		)
	}
	return descriptors
}

// start creates and starts the service's container. An existing container
// with our name is removed first so a crashed leftover never blocks a start.
func (a *Adapter) start(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	image, _ := hctx.ServiceConfig["image"].(string)
	if image == "" && hctx.Requirements.Build != nil {
		image = hctx.Requirements.Build.Prebuilt
	}
	if image == "" {
		return nil, fmt.Errorf("service %s has no image configured", hctx.Identity.Service)
	}

	name := containerName(hctx.Identity.Environment, hctx.Identity.Service)

	// Remove a stale container of the same name, keeping volumes.
	if inspect, err := a.client.ContainerInspect(ctx, name, client.ContainerInspectOptions{}); err == nil {
		if inspect.Container.State != nil && inspect.Container.State.Running {
			result := &api.Result{
				Success:   true,
				Status:    api.StatusRunning,
				Resources: api.NewContainerRef(inspect.Container.ID, image),
			}
			result.SetMetadata("alreadyRunning", true)
			return result, nil
		}
		_, _ = a.client.ContainerStop(ctx, name, client.ContainerStopOptions{})
		if _, err := a.client.ContainerRemove(ctx, name, client.ContainerRemoveOptions{Force: true, RemoveVolumes: false}); err != nil {
			return nil, fmt.Errorf("remove existing container %q: %w", name, err)
		}
	} else if !errdefs.IsNotFound(err) {
		return nil, fmt.Errorf("inspect container %q: %w", name, err)
	}

	exposed, portMap, err := portConfig(hctx)
	if err != nil {
		return nil, err
	}

	cCfg := &container.Config{
		Image:        image,
		Env:          envList(hctx.Requirements.Environment),
		Labels:       stewardLabels(hctx.Identity.Environment, hctx.Identity.Service),
		ExposedPorts: exposed,
	}
	hCfg := &container.HostConfig{
		PortBindings: portMap,
		RestartPolicy: container.RestartPolicy{
			Name: container.RestartPolicyUnlessStopped,
		},
	}

	created, err := a.client.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     cCfg,
		HostConfig: hCfg,
		Name:       name,
		Image:      image,
	})
	if err != nil {
		return nil, fmt.Errorf("create container %q: %w", name, err)
	}

	if _, err := a.client.ContainerStart(ctx, created.ID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("start container %q: %w", name, err)
	}

	logging.Info("DockerPlatform", "Started %s as container %s", hctx.Identity.Service, created.ID[:12])

	result := &api.Result{
		Success:   true,
		Status:    api.StatusRunning,
		Resources: api.NewContainerRef(created.ID, image),
	}
	if port := hostPort(hctx); port > 0 {
		result.Endpoint = fmt.Sprintf("http://localhost:%d", port)
	}
	return result, nil
}

// stop stops and removes the service's container. Volumes survive.
func (a *Adapter) stop(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	name := containerName(hctx.Identity.Environment, hctx.Identity.Service)

	_, err := a.client.ContainerInspect(ctx, name, client.ContainerInspectOptions{})
	if err != nil {
		if errdefs.IsNotFound(err) {
			result := &api.Result{Success: true, Status: api.StatusStopped}
			result.SetMetadata("alreadyStopped", true)
			return result, nil
		}
		return nil, fmt.Errorf("inspect container %q: %w", name, err)
	}

	if _, err := a.client.ContainerStop(ctx, name, client.ContainerStopOptions{}); err != nil {
		return nil, fmt.Errorf("stop container %q: %w", name, err)
	}
	if _, err := a.client.ContainerRemove(ctx, name, client.ContainerRemoveOptions{Force: true, RemoveVolumes: false}); err != nil {
		return nil, fmt.Errorf("remove container %q: %w", name, err)
	}

	logging.Info("DockerPlatform", "Stopped %s", hctx.Identity.Service)
	return &api.Result{Success: true, Status: api.StatusStopped}, nil
}

// check inspects the service's container and normalizes its state.
func (a *Adapter) check(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	name := containerName(hctx.Identity.Environment, hctx.Identity.Service)

	inspect, err := a.client.ContainerInspect(ctx, name, client.ContainerInspectOptions{})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return &api.Result{Success: true, Status: api.StatusStopped}, nil
		}
		return nil, fmt.Errorf("inspect container %q: %w", name, err)
	}

	image := ""
	if inspect.Container.Config != nil {
		image = inspect.Container.Config.Image
	}

	result := &api.Result{Success: true, Resources: api.NewContainerRef(inspect.Container.ID, image)}
	if inspect.Container.State != nil && inspect.Container.State.Running {
		result.Status = api.StatusRunning
		result.Health = api.HealthUnknown
		if !hctx.SkipHealthCheck && inspect.Container.State.Health != nil {
			switch inspect.Container.State.Health.Status {
			case container.Healthy:
				result.Health = api.HealthHealthy
			case container.Unhealthy:
				result.Health = api.HealthUnhealthy
			}
		}
		if port := hostPort(hctx); port > 0 {
			result.Endpoint = fmt.Sprintf("http://localhost:%d", port)
		}
	} else {
		result.Status = api.StatusStopped
	}
	return result, nil
}

// update recreates the container from the currently configured image. The
// container platform has no rollout to monitor: the operation is a
// stop-recreate, reported with the restart strategy unless the image
// changed.
func (a *Adapter) update(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	previousImage := ""
	if hctx.SavedState != nil && hctx.SavedState.Resources.Container != nil {
		previousImage = hctx.SavedState.Resources.Container.Image
	}

	if _, err := a.stop(ctx, hctx); err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	result, err := a.start(ctx, hctx)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	newImage := ""
	if result.Resources != nil && result.Resources.Container != nil {
		newImage = result.Resources.Container.Image
	}
	if previousImage != "" && previousImage != newImage {
		result.Strategy = "upgrade"
		result.PreviousVersion = previousImage
		result.NewVersion = newImage
	} else {
		result.Strategy = "restart"
	}
	return result, nil
}

// portConfig builds the exposed-port set and host bindings from the
// service's network requirements.
func portConfig(hctx *api.HandlerContext) (network.PortSet, network.PortMap, error) {
	exposed := network.PortSet{}
	portMap := network.PortMap{}

	if hctx.Requirements.Network == nil {
		return exposed, portMap, nil
	}

	proto := network.IPProtocol("tcp")
	if hctx.Requirements.Network.Protocol == requirements.ProtocolUDP {
		proto = network.IPProtocol("udp")
	}

	hostIP, err := netip.ParseAddr("0.0.0.0")
	if err != nil {
		return nil, nil, err
	}

	for _, p := range hctx.Requirements.Network.Ports {
		port, _ := network.PortFrom(uint16(p), proto)
		exposed[port] = struct{}{}
		portMap[port] = append(portMap[port], network.PortBinding{
			HostIP:   hostIP,
			HostPort: strconv.Itoa(p),
		})
	}
	return exposed, portMap, nil
}

func hostPort(hctx *api.HandlerContext) int {
	if hctx.Requirements.Network != nil && len(hctx.Requirements.Network.Ports) > 0 {
		return hctx.Requirements.Network.Ports[0]
	}
	if port, ok := hctx.ServiceConfig["port"].(int); ok {
		return port
	}
	return 0
}

func envList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	return list
}
