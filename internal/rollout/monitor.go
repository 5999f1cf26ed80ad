package rollout

import (
	"context"
	"fmt"
	"time"

	"steward/pkg/logging"
)

// Sink receives events for rendering as they are emitted. The monitor calls
// it synchronously from the polling goroutine; implementations should be
// fast. A nil sink discards events.
type Sink func(Event)

// Outcome is the monitor's final report.
type Outcome struct {
	State           State
	PreviousVersion string
	NewVersion      string
	Duration        time.Duration
}

// Succeeded reports whether the rollout reached a successful terminal phase.
func (o *Outcome) Succeeded() bool {
	return o.State.Phase == PhaseSucceeded
}

// Monitor drives a rollout to completion: it starts the operation, then
// sleeps, observes, applies the pure transition and renders emitted events
// until a terminal phase, timeout, or context cancellation.
type Monitor struct {
	api  API
	opts Options
	sink Sink

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewMonitor creates a Monitor over the given platform API.
func NewMonitor(api API, opts Options, sink Sink) *Monitor {
	return &Monitor{
		api:   api,
		opts:  opts.withDefaults(),
		sink:  sink,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Run executes the rollout and polls it to a terminal state. The returned
// error is non-nil only for infrastructure problems (the platform API
// failing, the context being cancelled); a rollout that completes as Failed
// is reported through the Outcome, not the error.
func (m *Monitor) Run(ctx context.Context) (*Outcome, error) {
	start, err := m.api.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate rollout: %w", err)
	}

	startedAt := m.now()
	s := NewState(start, startedAt, m.opts)
	logging.Info("RolloutMonitor", "Tracking deployment %s (%s, timeout %s)", s.DeploymentID, s.Mode, s.EffectiveTimeout)

	for s.Phase == PhasePolling {
		if err := m.sleep(ctx, m.opts.PollInterval); err != nil {
			return nil, fmt.Errorf("rollout monitoring cancelled: %w", err)
		}

		obs, err := m.api.Observe(ctx, s.DeploymentID)
		if err != nil {
			return nil, fmt.Errorf("failed to observe deployment %s: %w", s.DeploymentID, err)
		}
		if obs.Time.IsZero() {
			obs.Time = m.now()
		}

		var events []Event
		s, events = Transition(s, obs, m.opts.ImagePullGrace)
		for _, e := range events {
			m.emit(e)
		}
	}

	return &Outcome{
		State:           s,
		PreviousVersion: start.PreviousVersion,
		NewVersion:      start.NewVersion,
		Duration:        m.now().Sub(startedAt),
	}, nil
}

func (m *Monitor) emit(e Event) {
	switch e.Kind {
	case EventTaskFailed:
		logging.Warn("RolloutMonitor", "%s", e.Message)
		if e.Task != nil {
			for _, line := range e.Task.LogTail {
				logging.Warn("RolloutMonitor", "  | %s", line)
			}
		}
	case EventFailed:
		logging.Error("RolloutMonitor", nil, "%s", e.Message)
	case EventProgress:
		logging.Debug("RolloutMonitor", "%s", e.Message)
	default:
		logging.Info("RolloutMonitor", "%s", e.Message)
	}
	if m.sink != nil {
		m.sink(e)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
