package api

import (
	"time"

	"steward/internal/requirements"
)

// Platform identifies the execution substrate a service is bound to.
type Platform string

const (
	PlatformProcess   Platform = "process"
	PlatformContainer Platform = "container"
	PlatformCloud     Platform = "cloud"
)

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformProcess, PlatformContainer, PlatformCloud:
		return true
	}
	return false
}

// Command names making up the uniform verb set. Every platform strategy
// accepts all of them; whether a given (command, platform, service type)
// triple actually works is decided by handler registration and capability
// annotations, not by this list.
const (
	CommandStart     = "start"
	CommandStop      = "stop"
	CommandCheck     = "check"
	CommandUpdate    = "update"
	CommandProvision = "provision"
	CommandPublish   = "publish"
	CommandBackup    = "backup"
	CommandRestore   = "restore"
	CommandExec      = "exec"
	CommandTest      = "test"
)

// Commands lists every verb in a stable order.
func Commands() []string {
	return []string{
		CommandStart, CommandStop, CommandCheck, CommandUpdate,
		CommandProvision, CommandPublish, CommandBackup, CommandRestore,
		CommandExec, CommandTest,
	}
}

// ServiceStatus is the normalized live status a check reports.
type ServiceStatus string

const (
	StatusRunning  ServiceStatus = "running"
	StatusStopped  ServiceStatus = "stopped"
	StatusDegraded ServiceStatus = "degraded"
	StatusUnknown  ServiceStatus = "unknown"
)

// HealthStatus is the normalized health signal attached to check results.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// ServiceIdentity is the immutable key identifying one service instance in
// one environment. All registry, state store and guard lookups use it.
type ServiceIdentity struct {
	ProjectRoot string   `yaml:"projectRoot" json:"projectRoot"`
	Environment string   `yaml:"environment" json:"environment"`
	Service     string   `yaml:"service" json:"service"`
	Platform    Platform `yaml:"platform" json:"platform"`
}

// Key returns the identity's stable string form, used for state filenames
// and single-flight grouping.
func (id ServiceIdentity) Key() string {
	return id.Environment + "." + id.Service
}

// Result is the common shape every verb's outcome is normalized into.
// Success and Status are always populated; the remaining fields are
// verb-specific and zero when a verb has nothing to say about them.
type Result struct {
	Success  bool           `json:"success"`
	Status   ServiceStatus  `json:"status,omitempty"`
	Health   HealthStatus   `json:"health,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Resources identifies the live platform instance, when known.
	Resources *ResourceRef `json:"resources,omitempty"`

	// Endpoint is the address the service is reachable at, when known.
	Endpoint string `json:"endpoint,omitempty"`

	// Update-specific fields.
	Strategy        string `json:"strategy,omitempty"` // "upgrade" or "restart"
	PreviousVersion string `json:"previousVersion,omitempty"`
	NewVersion      string `json:"newVersion,omitempty"`

	// Backup-specific field.
	BackupID string `json:"backupId,omitempty"`
}

// SetMetadata stores a key/value on the result, allocating the map lazily.
func (r *Result) SetMetadata(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// FailureResult builds a failed Result from an error.
func FailureResult(err error) *Result {
	return &Result{Success: false, Status: StatusUnknown, Error: err.Error()}
}

// HandlerContext is everything a handler gets to work with. Behavior flags
// are explicit fields so handlers never read process-wide environment state.
type HandlerContext struct {
	Identity     ServiceIdentity
	ServiceType  string
	Requirements requirements.ServiceRequirements

	// ServiceConfig carries the raw per-service settings from the
	// environment config (image, port, resource overrides, ...).
	ServiceConfig map[string]any

	// Discovered holds infrastructure identifiers resolved by the discovery
	// pre-pass for handlers registered with RequiresDiscovery. Nil otherwise.
	Discovered map[string]string

	// SavedState is the persisted record for this identity, nil when the
	// store has none. Handlers treat it as read-only; the façade owns
	// persistence.
	SavedState *ServiceState

	// ExecArgs carries the command line for the exec verb.
	ExecArgs []string

	// BackupID identifies the snapshot to restore for the restore verb.
	BackupID string

	// WaitForCompletion asks long operations (update) to block until the
	// platform reports a terminal outcome.
	WaitForCompletion bool

	// SkipHealthCheck suppresses health probing during check/update.
	SkipHealthCheck bool

	Verbose bool
	DryRun  bool
}

// ServiceState is the persisted record of a running service instance.
// Exactly zero or one record exists per ServiceIdentity.
type ServiceState struct {
	Version   int            `yaml:"version" json:"version"`
	Identity  ServiceMeta    `yaml:"entity" json:"entity"`
	StartTime time.Time      `yaml:"startTime" json:"startTime"`
	Resources ResourceRef    `yaml:"resources" json:"resources"`
	Endpoint  string         `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Metadata  map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// StateSchemaVersion is written into every persisted record so the schema
// can evolve without breaking drift comparison against old files.
const StateSchemaVersion = 1

// ServiceMeta is the identity portion of a persisted state record.
type ServiceMeta struct {
	Service     string   `yaml:"service" json:"service"`
	Environment string   `yaml:"environment" json:"environment"`
	Platform    Platform `yaml:"platform" json:"platform"`
}
