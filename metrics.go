package reactor

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key store events.
type MetricsProvider interface {
	// OnStatusChange is called when the store transitions between statuses.
	OnStatusChange(from, to Status)

	// OnPatchApplied is called when a patch is committed. Origin is the
	// source or action name; duration covers pipeline, merge, and commit.
	OnPatchApplied(origin string, duration time.Duration)

	// OnPatchRejected is called when a patch fails. Stage indicates where:
	// "source", "pipeline", "validate", or "action".
	OnPatchRejected(origin, stage string, duration time.Duration)

	// OnActionDispatched is called when a value is pushed into an action
	// channel.
	OnActionDispatched(name string)

	// OnEffectRun is called each time an effect callback runs.
	OnEffectRun(name string, duration time.Duration)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStatusChange(_, _ Status)                   {}
func (NoOpMetricsProvider) OnPatchApplied(_ string, _ time.Duration)     {}
func (NoOpMetricsProvider) OnPatchRejected(_, _ string, _ time.Duration) {}
func (NoOpMetricsProvider) OnActionDispatched(_ string)                  {}
func (NoOpMetricsProvider) OnEffectRun(_ string, _ time.Duration)        {}
