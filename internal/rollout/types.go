package rollout

import (
	"context"
	"time"
)

// Mode distinguishes the two operations the monitor can track.
type Mode string

const (
	// ModeUpgrade rolls the service to a newer revision.
	ModeUpgrade Mode = "upgrade"

	// ModeRestart force-recreates instances of the current revision.
	ModeRestart Mode = "restart"
)

// Phase is the monitor's lifecycle phase.
type Phase string

const (
	PhasePolling   Phase = "polling"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// TaskCounts partitions task instances by lifecycle stage.
type TaskCounts struct {
	Total   int
	Running int
	Healthy int
	Pending int
}

// StoppedTask carries the diagnostics of one stopped task instance. The
// adapter fills in everything it can get cheaply; LogTail may be empty when
// logs are not reachable.
type StoppedTask struct {
	ID           string
	DeploymentID string
	StopReason   string
	ExitCode     *int
	LogTail      []string
}

// DeploymentInfo describes one entry of the service's deployment list.
type DeploymentInfo struct {
	ID           string
	Revision     string
	Status       string // "active", "inactive", ...
	DesiredCount int

	// SteadyState is the platform's typed signal that this deployment has
	// reached its desired state. The adapter derives it (for ECS from the
	// rollout state, falling back to the steady-state service event) so the
	// state machine never pattern-matches event text itself.
	SteadyState bool
}

// DeploymentStatusActive is the status value of a deployment that is still
// in play. Anything else on the tracked deployment means it was superseded.
const DeploymentStatusActive = "active"

// Observation is one tick's snapshot of the platform, produced by the
// adapter and consumed by the pure transition function.
type Observation struct {
	Time time.Time

	// Deployments is the service's current deployment list.
	Deployments []DeploymentInfo

	// ImagePulling reports whether an image pull was seen in the events
	// since the previous tick.
	ImagePulling bool

	// StoppedTasks are recently stopped task instances. Tasks already seen
	// in earlier ticks may reappear; the state machine dedupes by ID.
	StoppedTasks []StoppedTask

	// NewTasks counts running task instances belonging to the tracked
	// deployment; OldTasks counts those belonging to prior ones.
	NewTasks TaskCounts
	OldTasks TaskCounts
}

// State is the monitor's working state for one rollout, advanced one
// Observation at a time by Transition. It is created by Start and discarded
// when the loop exits.
type State struct {
	DeploymentID string
	Mode         Mode
	StartedAt    time.Time

	OriginalTimeout  time.Duration
	EffectiveTimeout time.Duration

	ImagePullDetected       bool
	ConsecutiveTaskFailures int
	SeenFailedTaskIDs       map[string]bool

	NewCounts TaskCounts
	OldCounts TaskCounts

	Phase Phase

	// RestartedSameRevision marks a success that was a recreate of an
	// unchanged revision rather than a version upgrade.
	RestartedSameRevision bool

	// FailureReason is set when Phase is PhaseFailed.
	FailureReason string

	// FailedTaskCount is the total number of distinct failed tasks observed,
	// independent of the consecutive counter.
	FailedTaskCount int
}

// EventKind classifies the events the transition function emits for
// rendering.
type EventKind string

const (
	EventProgress        EventKind = "progress"
	EventTaskFailed      EventKind = "task-failed"
	EventTimeoutExtended EventKind = "timeout-extended"
	EventSucceeded       EventKind = "succeeded"
	EventFailed          EventKind = "failed"
)

// Event is a renderable occurrence during a rollout. Task is set only for
// EventTaskFailed.
type Event struct {
	Kind    EventKind
	Message string
	Task    *StoppedTask
}

// StartResult is what the platform reports when a rollout is initiated.
type StartResult struct {
	DeploymentID    string
	Mode            Mode
	DesiredCount    int
	PreviousVersion string
	NewVersion      string
}

// API is the platform contract the monitor polls. The managed-cloud adapter
// implements it against the real orchestrator; tests implement it with
// scripted observations.
type API interface {
	// Start determines whether a newer revision exists, instructs the
	// platform to upgrade to it (or to force-recreate the current revision
	// when there is none), and returns the tracked deployment identifier.
	Start(ctx context.Context) (StartResult, error)

	// Observe fetches the current deployment list, new events, and stopped
	// and running task partitions for one polling tick.
	Observe(ctx context.Context, deploymentID string) (Observation, error)
}

// Options tunes the monitor. Zero values select the defaults.
type Options struct {
	PollInterval   time.Duration
	Timeout        time.Duration
	ImagePullGrace time.Duration
}

const (
	// DefaultPollInterval is the fixed delay between observation ticks.
	DefaultPollInterval = 5 * time.Second

	// DefaultTimeout bounds the whole rollout before the image-pull grace.
	DefaultTimeout = 10 * time.Minute

	// DefaultImagePullGrace extends the timeout once when an image pull is
	// detected; slow pulls are a known false-timeout cause.
	DefaultImagePullGrace = 4 * time.Minute

	// MaxConsecutiveTaskFailures aborts the rollout: past this many stopped
	// tasks without a recovery, further waiting is not productive.
	MaxConsecutiveTaskFailures = 3
)

func (o Options) withDefaults() Options {
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ImagePullGrace == 0 {
		o.ImagePullGrace = DefaultImagePullGrace
	}
	return o
}
