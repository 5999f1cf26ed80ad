package rollout

import (
	"fmt"
	"time"
)

// NewState builds the initial working state for a tracked deployment.
func NewState(start StartResult, startedAt time.Time, opts Options) State {
	opts = opts.withDefaults()
	return State{
		DeploymentID:      start.DeploymentID,
		Mode:              start.Mode,
		StartedAt:         startedAt,
		OriginalTimeout:   opts.Timeout,
		EffectiveTimeout:  opts.Timeout,
		SeenFailedTaskIDs: make(map[string]bool),
		Phase:             PhasePolling,
	}
}

// Transition advances the rollout state by one observation. It is pure
// beyond the input state copy: no clocks, no I/O, no rendering. Emitted
// events describe what a renderer should show, the outer loop decides how.
//
// The checks run in a fixed order: tracked-deployment liveness, image-pull
// timeout extension, stopped-task accounting, the failure threshold, the
// running-task recovery reset, the completion test, and finally the timeout.
// A terminal phase short-circuits the remaining checks.
func Transition(s State, obs Observation, grace time.Duration) (State, []Event) {
	if s.Phase != PhasePolling {
		return s, nil
	}

	var events []Event

	tracked, found := findDeployment(obs.Deployments, s.DeploymentID)
	if !found {
		return fail(s, fmt.Sprintf("deployment %s disappeared from the deployment list (rolled back or replaced externally)", s.DeploymentID), &events)
	}
	if tracked.Status != DeploymentStatusActive {
		return fail(s, fmt.Sprintf("deployment %s became %s", s.DeploymentID, tracked.Status), &events)
	}

	// Extend the timeout exactly once on the first image-pull sighting.
	// Later pull events change nothing: one pull phase per rollout is the
	// slow part worth the grace.
	if obs.ImagePulling && !s.ImagePullDetected {
		s.ImagePullDetected = true
		s.EffectiveTimeout = s.OriginalTimeout + grace
		events = append(events, Event{
			Kind:    EventTimeoutExtended,
			Message: fmt.Sprintf("image pull in progress, extending timeout to %s", s.EffectiveTimeout),
		})
	}

	// Record stopped tasks belonging to the tracked deployment that we have
	// not seen before, surfacing their diagnostics immediately.
	for i := range obs.StoppedTasks {
		task := obs.StoppedTasks[i]
		if task.DeploymentID != s.DeploymentID || s.SeenFailedTaskIDs[task.ID] {
			continue
		}
		s.SeenFailedTaskIDs[task.ID] = true
		s.ConsecutiveTaskFailures++
		s.FailedTaskCount++
		events = append(events, Event{
			Kind:    EventTaskFailed,
			Message: describeStoppedTask(task),
			Task:    &task,
		})
	}

	if s.ConsecutiveTaskFailures >= MaxConsecutiveTaskFailures {
		return fail(s, fmt.Sprintf("%d consecutive task failures, aborting rollout", s.ConsecutiveTaskFailures), &events)
	}

	s.NewCounts = obs.NewTasks
	s.OldCounts = obs.OldTasks

	// A running new-partition task means the rollout is recovering; a
	// recovering rollout should not stay flagged.
	if s.NewCounts.Running > 0 {
		s.ConsecutiveTaskFailures = 0
	}

	if done, restarted := completionTest(s, tracked, obs.Deployments); done {
		s.Phase = PhaseSucceeded
		s.RestartedSameRevision = restarted
		if restarted {
			events = append(events, Event{
				Kind:    EventSucceeded,
				Message: fmt.Sprintf("restart complete: %d/%d tasks running (same revision %s)", s.NewCounts.Running, tracked.DesiredCount, tracked.Revision),
			})
		} else {
			events = append(events, Event{
				Kind:    EventSucceeded,
				Message: fmt.Sprintf("rollout complete: %d/%d tasks running, old revision drained", s.NewCounts.Running, tracked.DesiredCount),
			})
		}
		return s, events
	}

	if obs.Time.Sub(s.StartedAt) > s.EffectiveTimeout {
		return fail(s, fmt.Sprintf("timed out after %ds: new tasks %d/%d running (%d pending), old tasks %d still running, %d failed tasks",
			int(s.EffectiveTimeout.Seconds()), s.NewCounts.Running, tracked.DesiredCount, s.NewCounts.Pending, s.OldCounts.Running, s.FailedTaskCount), &events)
	}

	events = append(events, Event{
		Kind: EventProgress,
		Message: fmt.Sprintf("new tasks %d/%d running (%d pending), old tasks %d running",
			s.NewCounts.Running, tracked.DesiredCount, s.NewCounts.Pending, s.OldCounts.Running),
	})
	return s, events
}

// completionTest decides whether the rollout is done, and if so whether it
// completed as a same-revision restart. Running-count parity alone is not
// enough: the same deployment list can represent a version upgrade still
// draining its predecessor or a no-op restart of unchanged code, and
// operators must be able to tell the two apart.
func completionTest(s State, tracked DeploymentInfo, deployments []DeploymentInfo) (done, restarted bool) {
	if tracked.DesiredCount <= 0 || s.NewCounts.Running != tracked.DesiredCount {
		return false, false
	}

	otherActive := 0
	othersSameRevision := true
	for _, d := range deployments {
		if d.ID == s.DeploymentID || d.Status != DeploymentStatusActive {
			continue
		}
		otherActive++
		if d.Revision != tracked.Revision {
			othersSameRevision = false
		}
	}

	// (a) upgrade: every old instance drained, only the tracked deployment
	// remains active.
	if otherActive == 0 {
		return true, false
	}

	// (b) restart: the "other" deployments are the same revision, so there
	// is no old revision to drain; completion additionally needs the
	// platform's steady-state signal.
	if othersSameRevision && tracked.SteadyState {
		return true, true
	}

	return false, false
}

func fail(s State, reason string, events *[]Event) (State, []Event) {
	s.Phase = PhaseFailed
	s.FailureReason = reason
	*events = append(*events, Event{Kind: EventFailed, Message: reason})
	return s, *events
}

func findDeployment(deployments []DeploymentInfo, id string) (DeploymentInfo, bool) {
	for _, d := range deployments {
		if d.ID == id {
			return d, true
		}
	}
	return DeploymentInfo{}, false
}

func describeStoppedTask(t StoppedTask) string {
	msg := fmt.Sprintf("task %s stopped", t.ID)
	if t.StopReason != "" {
		msg += ": " + t.StopReason
	}
	if t.ExitCode != nil {
		msg += fmt.Sprintf(" (exit code %d)", *t.ExitCode)
	}
	return msg
}
