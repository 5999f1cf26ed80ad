package requirements

// Protocol identifies the L4 protocol a service's ports speak.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// NetworkRequirements describes the ports a service listens on.
type NetworkRequirements struct {
	Ports           []int    `yaml:"ports,omitempty" json:"ports,omitempty"`
	Protocol        Protocol `yaml:"protocol,omitempty" json:"protocol,omitempty"`
	HealthCheckPort int      `yaml:"healthCheckPort,omitempty" json:"healthCheckPort,omitempty"`
}

// StorageRequirement describes one volume or filesystem the service needs.
type StorageRequirement struct {
	Name       string `yaml:"name" json:"name"`
	MountPath  string `yaml:"mountPath,omitempty" json:"mountPath,omitempty"`
	Persistent bool   `yaml:"persistent" json:"persistent"`
	SizeHint   string `yaml:"sizeHint,omitempty" json:"sizeHint,omitempty"` // e.g. "20Gi", advisory only
}

// ResourceRequirements describes compute sizing.
type ResourceRequirements struct {
	CPU    string `yaml:"cpu,omitempty" json:"cpu,omitempty"`
	Memory string `yaml:"memory,omitempty" json:"memory,omitempty"`
}

// BuildRequirements describes how the service's image is produced.
type BuildRequirements struct {
	Dockerfile   string `yaml:"dockerfile,omitempty" json:"dockerfile,omitempty"`
	BuildContext string `yaml:"buildContext,omitempty" json:"buildContext,omitempty"`
	Prebuilt     string `yaml:"prebuilt,omitempty" json:"prebuilt,omitempty"` // image reference when no build is needed
}

// SecurityRequirements describes the service's security posture.
type SecurityRequirements struct {
	Secrets                  []string `yaml:"secrets,omitempty" json:"secrets,omitempty"`
	RunAsUser                int      `yaml:"runAsUser,omitempty" json:"runAsUser,omitempty"`
	AllowPrivilegeEscalation bool     `yaml:"allowPrivilegeEscalation,omitempty" json:"allowPrivilegeEscalation,omitempty"`
}

// DependencyRequirements names the services that must be running first.
type DependencyRequirements struct {
	Services []string `yaml:"services,omitempty" json:"services,omitempty"`
}

// ServiceRequirements is the complete declarative description of what a
// service needs from its platform and which commands it supports. It is pure
// data; interpretation happens in the resolver and the platform strategies.
type ServiceRequirements struct {
	Network      *NetworkRequirements    `yaml:"network,omitempty" json:"network,omitempty"`
	Storage      []StorageRequirement    `yaml:"storage,omitempty" json:"storage,omitempty"`
	Resources    *ResourceRequirements   `yaml:"resources,omitempty" json:"resources,omitempty"`
	Build        *BuildRequirements      `yaml:"build,omitempty" json:"build,omitempty"`
	Security     *SecurityRequirements   `yaml:"security,omitempty" json:"security,omitempty"`
	Environment  map[string]string       `yaml:"environment,omitempty" json:"environment,omitempty"`
	Dependencies *DependencyRequirements `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`

	// Annotations carry capability declarations as "true"/"false" strings,
	// keyed by capability name (see capability.go). A missing key means the
	// capability is unsupported.
	Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}
