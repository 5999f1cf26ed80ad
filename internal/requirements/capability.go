package requirements

// Capability annotation keys. Each declares whether a service supports the
// correspondingly named command. The values are the strings "true" or
// "false"; anything else, including absence, reads as unsupported.
const (
	CapabilityPublish = "steward.io/publish"
	CapabilityBackup  = "steward.io/backup"
	CapabilityRestore = "steward.io/restore"
	CapabilityExec    = "steward.io/exec"
	CapabilityTest    = "steward.io/test"
)

// capabilityForCommand maps command names to the annotation that gates them.
// Commands without an entry (start, stop, check, update, provision) are
// universal and every configured service is selected for them.
var capabilityForCommand = map[string]string{
	"publish": CapabilityPublish,
	"backup":  CapabilityBackup,
	"restore": CapabilityRestore,
	"exec":    CapabilityExec,
	"test":    CapabilityTest,
}

// CapabilityForCommand returns the annotation key gating the given command,
// or "" if the command is universal.
func CapabilityForCommand(command string) string {
	return capabilityForCommand[command]
}

// SupportsCommand reports whether these requirements declare support for the
// given command. Universal commands are always supported; gated commands are
// supported only when the annotation is present with the exact value "true"
// (fail closed).
func (r *ServiceRequirements) SupportsCommand(command string) bool {
	key := CapabilityForCommand(command)
	if key == "" {
		return true
	}
	if r == nil || r.Annotations == nil {
		return false
	}
	return r.Annotations[key] == "true"
}

// WithCapabilities returns a copy of r with the given capabilities declared
// as supported. Used by service type defaults to assemble their annotation
// sets without mutating shared values.
func (r ServiceRequirements) WithCapabilities(keys ...string) ServiceRequirements {
	annotations := make(map[string]string, len(r.Annotations)+len(keys))
	for k, v := range r.Annotations {
		annotations[k] = v
	}
	for _, k := range keys {
		annotations[k] = "true"
	}
	r.Annotations = annotations
	return r
}
