package requirements

// Service types known to the default requirement sets. These are open-ended:
// a service may declare any type as long as handlers are registered for it,
// but the types below get sensible requirement defaults for free.
const (
	TypeWeb        = "web"
	TypeAPI        = "api"
	TypeWorker     = "worker"
	TypeDatabase   = "database"
	TypeFilesystem = "filesystem"
	TypeFunction   = "function"
)

// Defaults builds the default ServiceRequirements for a service type, using
// only the service's configured port and environment variables as inputs.
// There is deliberately no table keyed by service name: two services of the
// same type with the same port get identical defaults, and anything more
// specific must be declared explicitly in the environment config.
func Defaults(serviceType string, port int, env map[string]string) ServiceRequirements {
	var req ServiceRequirements

	if port > 0 {
		req.Network = &NetworkRequirements{
			Ports:           []int{port},
			Protocol:        ProtocolTCP,
			HealthCheckPort: port,
		}
	}
	if len(env) > 0 {
		req.Environment = make(map[string]string, len(env))
		for k, v := range env {
			req.Environment[k] = v
		}
	}

	switch serviceType {
	case TypeWeb, TypeAPI:
		return req.WithCapabilities(CapabilityPublish, CapabilityExec, CapabilityTest)
	case TypeWorker:
		return req.WithCapabilities(CapabilityExec, CapabilityTest)
	case TypeDatabase:
		req.Storage = []StorageRequirement{{Name: "data", Persistent: true}}
		return req.WithCapabilities(CapabilityBackup, CapabilityRestore, CapabilityExec)
	case TypeFilesystem:
		req.Storage = []StorageRequirement{{Name: "content", Persistent: true}}
		return req.WithCapabilities(CapabilityBackup, CapabilityRestore)
	case TypeFunction:
		return req.WithCapabilities(CapabilityPublish, CapabilityTest)
	default:
		// Unknown types support only the universal commands.
		return req
	}
}

// Effective computes the requirements a service actually runs with: the
// type-derived defaults overlaid with its explicit declarations, if any.
func Effective(serviceType string, port int, env map[string]string, explicit *ServiceRequirements) ServiceRequirements {
	defaults := Defaults(serviceType, port, env)
	if explicit == nil {
		return defaults
	}
	return Merge(defaults, *explicit)
}

// Merge overlays explicit declarations onto defaults. Explicit sub-records
// replace the default wholesale rather than field-merging: a service that
// declares network requirements owns all of them.
func Merge(defaults, explicit ServiceRequirements) ServiceRequirements {
	out := defaults
	if explicit.Network != nil {
		out.Network = explicit.Network
	}
	if explicit.Storage != nil {
		out.Storage = explicit.Storage
	}
	if explicit.Resources != nil {
		out.Resources = explicit.Resources
	}
	if explicit.Build != nil {
		out.Build = explicit.Build
	}
	if explicit.Security != nil {
		out.Security = explicit.Security
	}
	if explicit.Environment != nil {
		out.Environment = explicit.Environment
	}
	if explicit.Dependencies != nil {
		out.Dependencies = explicit.Dependencies
	}
	if explicit.Annotations != nil {
		// Explicit annotations override per-key so a service can turn one
		// default capability off without redeclaring the rest.
		merged := make(map[string]string, len(out.Annotations)+len(explicit.Annotations))
		for k, v := range out.Annotations {
			merged[k] = v
		}
		for k, v := range explicit.Annotations {
			merged[k] = v
		}
		out.Annotations = merged
	}
	return out
}
