package api

import "fmt"

// ProcessResource locates a local process instance.
type ProcessResource struct {
	PID  int `yaml:"pid" json:"pid"`
	Port int `yaml:"port,omitempty" json:"port,omitempty"`
}

// ContainerResource locates a container instance.
type ContainerResource struct {
	ContainerID string `yaml:"containerId" json:"containerId"`
	Image       string `yaml:"image,omitempty" json:"image,omitempty"`
}

// CloudResource locates a managed-cloud instance. Depending on the service
// type either ARN or InstanceID may be the stable identifier; some resources
// rotate one while preserving the other, so both are carried.
type CloudResource struct {
	ARN        string `yaml:"arn,omitempty" json:"arn,omitempty"`
	InstanceID string `yaml:"instanceId,omitempty" json:"instanceId,omitempty"`
	TaskID     string `yaml:"taskId,omitempty" json:"taskId,omitempty"`
	Region     string `yaml:"region,omitempty" json:"region,omitempty"`
}

// ResourceRef is a tagged union carrying the platform-native identifiers
// needed to re-locate a running instance. Platform is the tag; exactly the
// matching variant pointer is non-nil. Consumption sites must switch on the
// tag; comparing identifiers across differently-tagged refs is never
// meaningful.
type ResourceRef struct {
	Platform  Platform           `yaml:"platform" json:"platform"`
	Process   *ProcessResource   `yaml:"process,omitempty" json:"process,omitempty"`
	Container *ContainerResource `yaml:"container,omitempty" json:"container,omitempty"`
	Cloud     *CloudResource     `yaml:"cloud,omitempty" json:"cloud,omitempty"`
}

// NewProcessRef builds a process-tagged ResourceRef.
func NewProcessRef(pid, port int) *ResourceRef {
	return &ResourceRef{Platform: PlatformProcess, Process: &ProcessResource{PID: pid, Port: port}}
}

// NewContainerRef builds a container-tagged ResourceRef.
func NewContainerRef(containerID, image string) *ResourceRef {
	return &ResourceRef{Platform: PlatformContainer, Container: &ContainerResource{ContainerID: containerID, Image: image}}
}

// NewCloudRef builds a cloud-tagged ResourceRef.
func NewCloudRef(arn, instanceID, taskID, region string) *ResourceRef {
	return &ResourceRef{Platform: PlatformCloud, Cloud: &CloudResource{ARN: arn, InstanceID: instanceID, TaskID: taskID, Region: region}}
}

// Validate checks that the tag and the populated variant agree.
func (r *ResourceRef) Validate() error {
	if r == nil {
		return fmt.Errorf("resource ref is nil")
	}
	switch r.Platform {
	case PlatformProcess:
		if r.Process == nil || r.Container != nil || r.Cloud != nil {
			return fmt.Errorf("resource ref tagged %s has mismatched variants", r.Platform)
		}
	case PlatformContainer:
		if r.Container == nil || r.Process != nil || r.Cloud != nil {
			return fmt.Errorf("resource ref tagged %s has mismatched variants", r.Platform)
		}
	case PlatformCloud:
		if r.Cloud == nil || r.Process != nil || r.Container != nil {
			return fmt.Errorf("resource ref tagged %s has mismatched variants", r.Platform)
		}
	default:
		return fmt.Errorf("resource ref has unknown platform tag %q", r.Platform)
	}
	return nil
}

// Describe renders the ref's primary identifier for logs and diagnostics.
func (r *ResourceRef) Describe() string {
	if r == nil {
		return "<none>"
	}
	switch r.Platform {
	case PlatformProcess:
		if r.Process != nil {
			return fmt.Sprintf("pid %d", r.Process.PID)
		}
	case PlatformContainer:
		if r.Container != nil {
			return fmt.Sprintf("container %s", shortID(r.Container.ContainerID))
		}
	case PlatformCloud:
		if r.Cloud != nil {
			if r.Cloud.ARN != "" {
				return r.Cloud.ARN
			}
			return r.Cloud.InstanceID
		}
	}
	return fmt.Sprintf("<invalid %s ref>", r.Platform)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
