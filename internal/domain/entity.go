// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// EventKind identifies the type of accessibility notification.
type EventKind string

const (
	EventWindowStateChanged EventKind = "window_state_changed"
	EventContentChanged     EventKind = "content_changed"
	EventViewScrolled       EventKind = "view_scrolled"
)

// DecisionEvent is one foreground/content notification delivered by the OS
// bridge. Content is only populated for content-change and scroll events.
type DecisionEvent struct {
	PackageName string       `json:"packageName"`
	Kind        EventKind    `json:"eventKind"`
	Timestamp   time.Time    `json:"timestamp"`
	Content     *ContentNode `json:"content,omitempty"`
}

// ContentNode is one node of the accessible view hierarchy snapshot attached
// to a content event. ViewID carries the platform resource identifier
// (e.g. "com.instagram.android:id/root_clips_layout"); it may be empty.
type ContentNode struct {
	ViewID   string         `json:"viewId,omitempty"`
	Children []*ContentNode `json:"children,omitempty"`
}

// DecisionKind is the outcome variant of a single evaluation.
type DecisionKind int

const (
	// DecisionNoOp leaves the foreground app alone.
	DecisionNoOp DecisionKind = iota
	// DecisionRedirectHome bounces the user to the home screen silently.
	DecisionRedirectHome
	// DecisionRedirectHomeAndWarn bounces home and shows the warning
	// interstitial explaining why the app was blocked.
	DecisionRedirectHomeAndWarn
)

// Decision is produced once per DecisionEvent and consumed immediately.
// Package is set only for the warn variant.
type Decision struct {
	Kind    DecisionKind
	Package string
}

// NoOp reports whether the decision requires no intervention.
func (d Decision) NoOp() bool { return d.Kind == DecisionNoOp }

// AppGroup is a named set of packages sharing one daily time budget.
// Name is unique among persisted groups; Members may overlap across groups.
type AppGroup struct {
	Name              string   `json:"name"`
	Members           []string `json:"apps"`
	DailyLimitMinutes int      `json:"timeLimit"`
}

// Contains reports whether pkg is a member of the group.
func (g AppGroup) Contains(pkg string) bool {
	for _, m := range g.Members {
		if m == pkg {
			return true
		}
	}
	return false
}

// DailyLimit returns the group's budget as a duration.
func (g AppGroup) DailyLimit() time.Duration {
	return time.Duration(g.DailyLimitMinutes) * time.Minute
}

// PolicyState is the full blocking policy read by the decision engines.
// It is mutated only through the settings surface; the engines treat a
// snapshot as immutable for the duration of one decision.
type PolicyState struct {
	BlockedPackages     map[string]struct{}
	BlockingActive      bool
	FocusModeActive     bool
	FocusModeApps       map[string]struct{}
	AppGroups           []AppGroup
	ContentBlockEnabled bool
}

// UsageWindow is a half-open time interval [Start, End) over which foreground
// time is aggregated. The blocking path always uses [local midnight, now);
// display callers may use closed historical windows.
type UsageWindow struct {
	Start time.Time
	End   time.Time
}

// TodayWindow returns the window from local midnight of now's day up to now.
func TodayWindow(now time.Time) UsageWindow {
	y, m, d := now.Date()
	return UsageWindow{
		Start: time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		End:   now,
	}
}

// DayWindow returns the closed window covering one whole local day.
func DayWindow(year int, month time.Month, day int, loc *time.Location) UsageWindow {
	start := time.Date(year, month, day, 0, 0, 0, 0, loc)
	return UsageWindow{Start: start, End: start.AddDate(0, 0, 1)}
}

// UsageSession is one continuous foreground interval attributed to a package.
// Sessions are recorded by the listener as the foreground app changes and
// form the raw data behind every usage aggregation.
type UsageSession struct {
	ID      string
	Package string
	Start   time.Time
	End     time.Time
}

// Duration returns the session length; zero for degenerate sessions.
func (s UsageSession) Duration() time.Duration {
	if s.End.Before(s.Start) {
		return 0
	}
	return s.End.Sub(s.Start)
}

// ListenerState is the persisted record of the running listener daemon,
// used for liveness checks and the status command.
type ListenerState struct {
	Version          int    `json:"version"`
	PID              int    `json:"pid"`
	StartedAt        int64  `json:"started_at"`
	LastHeartbeat    int64  `json:"last_heartbeat"`
	AppVersion       string `json:"app_version,omitempty"`
	BlockingActive   bool   `json:"blocking_active"`
	RemainingMinutes int    `json:"remaining_minutes"`
}
