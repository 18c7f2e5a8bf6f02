// Package usecase contains application business logic.
package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

// AppBlocker is the foreground-app decision engine. It evaluates one
// window-state-changed event against the persisted policy and decides
// whether the foreground app must be interrupted.
//
// The engine is stateless per call: repeated identical events yield the
// same decision. Suppressing duplicate interstitials is the presenter's
// responsibility.
type AppBlocker struct {
	store  domain.PolicyStore
	usage  domain.UsageAggregator
	exempt map[string]struct{}
	now    func() time.Time
	logger *zap.Logger
}

// NewAppBlocker creates the foreground-app decision engine. ownPackage and
// exemptPackages form the fixed allow-list that is never blocked.
func NewAppBlocker(
	store domain.PolicyStore,
	usage domain.UsageAggregator,
	ownPackage string,
	exemptPackages []string,
	logger *zap.Logger,
) *AppBlocker {
	exempt := make(map[string]struct{}, len(exemptPackages)+1)
	exempt[ownPackage] = struct{}{}
	for _, pkg := range exemptPackages {
		exempt[pkg] = struct{}{}
	}
	return &AppBlocker{
		store:  store,
		usage:  usage,
		exempt: exempt,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock overrides the engine's time source (for testing).
func (b *AppBlocker) WithClock(now func() time.Time) *AppBlocker {
	b.now = now
	return b
}

// Evaluate decides, for one foreground-change event, whether to intervene.
// Usage-query failures fail open: a transient stats error never blocks the
// user by itself.
func (b *AppBlocker) Evaluate(ctx context.Context, event domain.DecisionEvent) domain.Decision {
	pkg := event.PackageName

	// Fixed allow-list: own app, system UI, home launcher.
	if _, ok := b.exempt[pkg]; ok {
		return domain.Decision{Kind: domain.DecisionNoOp}
	}

	policy := b.store.Snapshot()

	if policy.BlockingActive {
		if _, blocked := policy.BlockedPackages[pkg]; blocked {
			b.logger.Info("blocking denied app", zap.String("package", pkg))
			return domain.Decision{Kind: domain.DecisionRedirectHomeAndWarn, Package: pkg}
		}
	}

	// Focus mode is a second independent trigger, not a deny-list variant.
	if policy.FocusModeActive {
		if _, focused := policy.FocusModeApps[pkg]; focused {
			b.logger.Info("blocking focus-mode app", zap.String("package", pkg))
			return domain.Decision{Kind: domain.DecisionRedirectHomeAndWarn, Package: pkg}
		}
	}

	// Time-budget check: persisted group order, first exceeded group wins.
	window := domain.TodayWindow(b.now())
	for _, group := range policy.AppGroups {
		if !group.Contains(pkg) {
			continue
		}

		total, err := b.usage.TotalForegroundTime(ctx, group.Members, window)
		if err != nil {
			// Fail open: treat the group as not exceeded.
			b.logger.Warn("usage query failed, treating group as not exceeded",
				zap.String("group", group.Name),
				zap.Error(err))
			continue
		}

		if total >= group.DailyLimit() {
			b.logger.Info("group time limit exceeded",
				zap.String("package", pkg),
				zap.String("group", group.Name),
				zap.Duration("used", total),
				zap.Duration("limit", group.DailyLimit()))
			return domain.Decision{Kind: domain.DecisionRedirectHomeAndWarn, Package: pkg}
		}
	}

	return domain.Decision{Kind: domain.DecisionNoOp}
}
