package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

// systemUIPrefix matches every system-UI surface package.
const systemUIPrefix = "com.android.systemui"

// Aggregator implements domain.UsageAggregator over a stats provider.
// Per-group queries are scoped by the caller's package set; whole-device
// totals exclude the app itself and launcher/system-UI surfaces.
type Aggregator struct {
	provider   domain.UsageStatsProvider
	ownPackage string
	excluded   map[string]struct{}
	logger     *zap.Logger
}

// NewAggregator creates a usage aggregator. excludedPackages carries the
// launcher and any OEM surfaces that must never count as screen time.
func NewAggregator(
	provider domain.UsageStatsProvider,
	ownPackage string,
	excludedPackages []string,
	logger *zap.Logger,
) *Aggregator {
	excluded := make(map[string]struct{}, len(excludedPackages))
	for _, pkg := range excludedPackages {
		excluded[pkg] = struct{}{}
	}
	return &Aggregator{
		provider:   provider,
		ownPackage: ownPackage,
		excluded:   excluded,
		logger:     logger,
	}
}

// TotalForegroundTime sums foreground time of any package in pkgs within the
// window. A package in two groups contributes independently to each group's
// total; no cross-group reconciliation happens here.
func (a *Aggregator) TotalForegroundTime(ctx context.Context, pkgs []string, window domain.UsageWindow) (time.Duration, error) {
	times, err := a.provider.ForegroundTimes(ctx, window)
	if err != nil {
		return 0, err
	}

	var total time.Duration
	for _, pkg := range pkgs {
		total += times[pkg]
	}
	return total, nil
}

// DeviceScreenTime sums foreground time over the whole device in the window,
// excluding the app's own package and launcher/system-UI surfaces. Returns
// the total and the per-package breakdown used by display callers.
func (a *Aggregator) DeviceScreenTime(ctx context.Context, window domain.UsageWindow) (time.Duration, map[string]time.Duration, error) {
	times, err := a.provider.ForegroundTimes(ctx, window)
	if err != nil {
		return 0, nil, err
	}

	var total time.Duration
	perApp := make(map[string]time.Duration, len(times))
	for pkg, d := range times {
		if a.isExcluded(pkg) {
			continue
		}
		total += d
		perApp[pkg] = d
	}
	return total, perApp, nil
}

func (a *Aggregator) isExcluded(pkg string) bool {
	if pkg == a.ownPackage {
		return true
	}
	if strings.HasPrefix(pkg, systemUIPrefix) {
		return true
	}
	_, ok := a.excluded[pkg]
	return ok
}

// Ensure Aggregator implements domain.UsageAggregator.
var _ domain.UsageAggregator = (*Aggregator)(nil)
