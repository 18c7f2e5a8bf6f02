package usecase

import (
	"context"
	"time"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

// mockPolicyStore implements domain.PolicyStore for testing.
type mockPolicyStore struct {
	state domain.PolicyState
	err   error

	setGroups [][]domain.AppGroup
}

func newMockPolicyStore() *mockPolicyStore {
	return &mockPolicyStore{state: domain.PolicyState{
		BlockedPackages: map[string]struct{}{},
		FocusModeApps:   map[string]struct{}{},
	}}
}

func (m *mockPolicyStore) Snapshot() domain.PolicyState { return m.state }

func (m *mockPolicyStore) SetBlockedPackages(pkgs []string) error {
	if m.err != nil {
		return m.err
	}
	m.state.BlockedPackages = toSet(pkgs)
	return nil
}

func (m *mockPolicyStore) SetBlockingActive(active bool) error {
	if m.err != nil {
		return m.err
	}
	m.state.BlockingActive = active
	return nil
}

func (m *mockPolicyStore) SetFocusModeActive(active bool) error {
	if m.err != nil {
		return m.err
	}
	m.state.FocusModeActive = active
	return nil
}

func (m *mockPolicyStore) SetFocusModeApps(pkgs []string) error {
	if m.err != nil {
		return m.err
	}
	m.state.FocusModeApps = toSet(pkgs)
	return nil
}

func (m *mockPolicyStore) SetAppGroups(groups []domain.AppGroup) error {
	if m.err != nil {
		return m.err
	}
	m.setGroups = append(m.setGroups, groups)
	m.state.AppGroups = groups
	return nil
}

func (m *mockPolicyStore) SetContentBlockEnabled(enabled bool) error {
	if m.err != nil {
		return m.err
	}
	m.state.ContentBlockEnabled = enabled
	return nil
}

func toSet(pkgs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(pkgs))
	for _, p := range pkgs {
		set[p] = struct{}{}
	}
	return set
}

// mockAggregator implements domain.UsageAggregator for testing.
type mockAggregator struct {
	total   time.Duration
	err     error
	queried [][]string
}

func (m *mockAggregator) TotalForegroundTime(_ context.Context, pkgs []string, _ domain.UsageWindow) (time.Duration, error) {
	m.queried = append(m.queried, pkgs)
	if m.err != nil {
		return 0, m.err
	}
	return m.total, nil
}

func (m *mockAggregator) DeviceScreenTime(_ context.Context, _ domain.UsageWindow) (time.Duration, map[string]time.Duration, error) {
	if m.err != nil {
		return 0, nil, m.err
	}
	return m.total, nil, nil
}

// mockHome implements domain.HomeActions for testing.
type mockHome struct {
	err   error
	calls int
}

func (m *mockHome) GoHome() error {
	m.calls++
	return m.err
}

// mockPresenter implements domain.Presenter for testing.
type mockPresenter struct {
	err      error
	packages []string
}

func (m *mockPresenter) ShowWarning(pkg string) error {
	m.packages = append(m.packages, pkg)
	return m.err
}

// mockUsageLog implements domain.UsageLog for testing.
type mockUsageLog struct {
	err      error
	sessions []domain.UsageSession
}

func (m *mockUsageLog) AppendSession(_ context.Context, s domain.UsageSession) error {
	if m.err != nil {
		return m.err
	}
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *mockUsageLog) Close() error { return nil }

// mockStatsProvider implements domain.UsageStatsProvider for testing.
type mockStatsProvider struct {
	times map[string]time.Duration
	err   error
}

func (m *mockStatsProvider) ForegroundTimes(_ context.Context, _ domain.UsageWindow) (map[string]time.Duration, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.times, nil
}
