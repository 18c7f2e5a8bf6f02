package domain

import (
	"context"
	"time"
)

// PolicyStore provides durable access to the blocking policy.
// Reads never fail: missing keys yield the documented defaults
// (empty set / false / empty list). Writes are atomic per field -
// a concurrent reader observes either the old or the new value.
type PolicyStore interface {
	// Snapshot returns the current policy as a parsed, typed value.
	// The returned state must not be mutated by the caller.
	Snapshot() PolicyState

	SetBlockedPackages(pkgs []string) error
	SetBlockingActive(active bool) error
	SetFocusModeActive(active bool) error
	SetFocusModeApps(pkgs []string) error
	SetAppGroups(groups []AppGroup) error
	SetContentBlockEnabled(enabled bool) error
}

// UsageLog is the write side of the usage-stats store: one append per
// completed foreground session.
type UsageLog interface {
	// AppendSession records a completed foreground session.
	AppendSession(ctx context.Context, s UsageSession) error

	// Close releases the underlying storage.
	Close() error
}

// UsageStatsProvider is the read side of the usage-stats store. It returns
// per-package foreground time clamped to the window, which may be open-ended
// (End == now) or a fixed historical interval.
type UsageStatsProvider interface {
	ForegroundTimes(ctx context.Context, window UsageWindow) (map[string]time.Duration, error)
}

// UsageAggregator answers the time-budget questions the decision engine and
// the display surface ask.
type UsageAggregator interface {
	// TotalForegroundTime sums foreground time of any package in pkgs
	// within the window. Packages in overlapping groups contribute to
	// each group's total independently.
	TotalForegroundTime(ctx context.Context, pkgs []string, window UsageWindow) (time.Duration, error)

	// DeviceScreenTime sums foreground time over all packages in the
	// window, excluding the app itself and launcher/system-UI surfaces.
	DeviceScreenTime(ctx context.Context, window UsageWindow) (time.Duration, map[string]time.Duration, error)
}

// HomeActions performs global OS navigation actions through the
// accessibility bridge.
type HomeActions interface {
	// GoHome sends the user to the home screen.
	GoHome() error
}

// Presenter launches the warning interstitial. Implementations must collapse
// duplicate concurrent invocations into one visible interstitial
// (task-clear semantics).
type Presenter interface {
	// ShowWarning presents the interstitial for the offending package.
	ShowWarning(pkg string) error
}

// EventSource delivers accessibility events in arrival order.
type EventSource interface {
	// Next blocks until an event is available or the source is closed.
	Next() (DecisionEvent, error)
}

// ProcessProbe inspects OS processes.
// Implementation: uses gopsutil for cross-platform support.
type ProcessProbe interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// CurrentPID returns the current process PID.
	CurrentPID() int
}

// ListenerRegistry persists the listener daemon's state for discovery by
// the CLI. Implementation: hidden JSON file with advisory locking.
type ListenerRegistry interface {
	// Register saves the listener's PID and start time.
	Register(state ListenerState) error

	// UpdateHeartbeat refreshes the liveness timestamp.
	UpdateHeartbeat() error

	// UpdateDisplayState stores the periodically recomputed
	// blocking-active flag and remaining minutes for status output.
	UpdateDisplayState(blockingActive bool, remainingMinutes int) error

	// Get returns the persisted state, or nil if never registered.
	Get() (*ListenerState, error)

	// Clear removes the registry file (for clean restart).
	Clear() error
}
