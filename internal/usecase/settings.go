package usecase

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

// ErrGroupExists is returned when saving an app group whose name collides
// with an already-persisted group.
var ErrGroupExists = errors.New("group name already exists")

// Settings is the write surface over the policy store. It is the only
// writer of policy state; the decision engines only read.
type Settings struct {
	store  domain.PolicyStore
	logger *zap.Logger
}

// NewSettings creates the settings service.
func NewSettings(store domain.PolicyStore, logger *zap.Logger) *Settings {
	return &Settings{store: store, logger: logger}
}

// SetBlockedApps replaces the deny-list. Duplicates and blanks are dropped.
func (s *Settings) SetBlockedApps(pkgs []string) error {
	return s.store.SetBlockedPackages(normalizePackages(pkgs))
}

// SetBlockingActive toggles the deny-list master switch.
func (s *Settings) SetBlockingActive(active bool) error {
	return s.store.SetBlockingActive(active)
}

// SetFocusMode toggles focus mode.
func (s *Settings) SetFocusMode(active bool) error {
	return s.store.SetFocusModeActive(active)
}

// SetFocusModeApps replaces the focus-mode app set.
func (s *Settings) SetFocusModeApps(pkgs []string) error {
	return s.store.SetFocusModeApps(normalizePackages(pkgs))
}

// SetContentBlockEnabled toggles the content decision engine.
func (s *Settings) SetContentBlockEnabled(enabled bool) error {
	return s.store.SetContentBlockEnabled(enabled)
}

// AppGroups returns the persisted groups in order.
func (s *Settings) AppGroups() []domain.AppGroup {
	return s.store.Snapshot().AppGroups
}

// SaveAppGroup validates and appends a new app group. A duplicate name is
// rejected before persistence and leaves the existing groups untouched.
func (s *Settings) SaveAppGroup(name string, apps []string, limitMinutes int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("group name must not be empty")
	}
	if limitMinutes < 0 {
		return fmt.Errorf("time limit must not be negative: %d", limitMinutes)
	}

	members := normalizePackages(apps)
	if len(members) == 0 {
		return errors.New("group must contain at least one app")
	}

	groups := s.store.Snapshot().AppGroups
	for _, g := range groups {
		if g.Name == name {
			return fmt.Errorf("%w: %s", ErrGroupExists, name)
		}
	}

	if limitMinutes == 0 {
		// Legal but degenerate: blocks the group on first use today.
		s.logger.Warn("saving group with zero time limit",
			zap.String("group", name))
	}

	updated := make([]domain.AppGroup, len(groups), len(groups)+1)
	copy(updated, groups)
	updated = append(updated, domain.AppGroup{
		Name:              name,
		Members:           members,
		DailyLimitMinutes: limitMinutes,
	})

	return s.store.SetAppGroups(updated)
}

// DeleteAppGroup removes a group by name. Unknown names are an error.
func (s *Settings) DeleteAppGroup(name string) error {
	groups := s.store.Snapshot().AppGroups
	updated := make([]domain.AppGroup, 0, len(groups))
	found := false
	for _, g := range groups {
		if g.Name == name {
			found = true
			continue
		}
		updated = append(updated, g)
	}
	if !found {
		return fmt.Errorf("group not found: %s", name)
	}
	return s.store.SetAppGroups(updated)
}

// normalizePackages trims blanks and drops duplicates, preserving order.
func normalizePackages(pkgs []string) []string {
	out := make([]string, 0, len(pkgs))
	seen := make(map[string]struct{}, len(pkgs))
	for _, pkg := range pkgs {
		pkg = strings.TrimSpace(pkg)
		if pkg == "" {
			continue
		}
		if _, dup := seen[pkg]; dup {
			continue
		}
		seen[pkg] = struct{}{}
		out = append(out, pkg)
	}
	return out
}
