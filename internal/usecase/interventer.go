package usecase

import (
	"time"

	"go.uber.org/zap"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

// Interventer executes the side effects of a non-NoOp decision.
//
// Ordering is deliberate: home-redirect first, then the warning interstitial
// after a short settle delay, so the blocked app is never left on screen even
// if the interstitial fails to launch. The delay is scheduled, never a
// blocking sleep - the event-delivery path returns immediately.
type Interventer struct {
	home      domain.HomeActions
	presenter domain.Presenter
	settle    time.Duration
	schedule  func(d time.Duration, f func())
	logger    *zap.Logger
}

// NewInterventer creates an interventer with the given settle delay.
func NewInterventer(
	home domain.HomeActions,
	presenter domain.Presenter,
	settle time.Duration,
	logger *zap.Logger,
) *Interventer {
	return &Interventer{
		home:      home,
		presenter: presenter,
		settle:    settle,
		schedule:  func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		logger:    logger,
	}
}

// WithScheduler overrides delayed execution (for testing).
func (i *Interventer) WithScheduler(schedule func(d time.Duration, f func())) *Interventer {
	i.schedule = schedule
	return i
}

// Apply performs the decision's side effects. A home-redirect failure does
// not suppress the warning attempt, and a warning failure does not roll back
// the redirect: the user ends up at the home screen at worst.
func (i *Interventer) Apply(decision domain.Decision) {
	if decision.NoOp() {
		return
	}

	if err := i.home.GoHome(); err != nil {
		i.logger.Warn("home redirect failed", zap.Error(err))
	}

	if decision.Kind != domain.DecisionRedirectHomeAndWarn {
		return
	}

	pkg := decision.Package
	i.schedule(i.settle, func() {
		if err := i.presenter.ShowWarning(pkg); err != nil {
			i.logger.Warn("warning interstitial failed to launch",
				zap.String("package", pkg),
				zap.Error(err))
		}
	})
}
