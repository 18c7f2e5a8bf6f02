package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

// syncScheduler runs scheduled work immediately and records the delay.
type syncScheduler struct {
	delays []time.Duration
}

func (s *syncScheduler) schedule(d time.Duration, f func()) {
	s.delays = append(s.delays, d)
	f()
}

func newTestInterventer(home *mockHome, presenter *mockPresenter) (*Interventer, *syncScheduler) {
	sched := &syncScheduler{}
	i := NewInterventer(home, presenter, 50*time.Millisecond, zap.NewNop()).
		WithScheduler(sched.schedule)
	return i, sched
}

func TestInterventer_NoOpDoesNothing(t *testing.T) {
	home := &mockHome{}
	presenter := &mockPresenter{}
	i, _ := newTestInterventer(home, presenter)

	i.Apply(domain.Decision{Kind: domain.DecisionNoOp})

	assert.Zero(t, home.calls)
	assert.Empty(t, presenter.packages)
}

func TestInterventer_RedirectHomeOnly(t *testing.T) {
	home := &mockHome{}
	presenter := &mockPresenter{}
	i, _ := newTestInterventer(home, presenter)

	i.Apply(domain.Decision{Kind: domain.DecisionRedirectHome})

	assert.Equal(t, 1, home.calls)
	assert.Empty(t, presenter.packages, "silent redirect must not launch the interstitial")
}

func TestInterventer_WarnAfterSettleDelay(t *testing.T) {
	home := &mockHome{}
	presenter := &mockPresenter{}
	i, sched := newTestInterventer(home, presenter)

	i.Apply(domain.Decision{Kind: domain.DecisionRedirectHomeAndWarn, Package: "com.x.social"})

	assert.Equal(t, 1, home.calls)
	assert.Equal(t, []string{"com.x.social"}, presenter.packages)
	assert.Equal(t, []time.Duration{50 * time.Millisecond}, sched.delays)
}

func TestInterventer_HomeFailureStillWarns(t *testing.T) {
	home := &mockHome{err: errors.New("bridge gone")}
	presenter := &mockPresenter{}
	i, _ := newTestInterventer(home, presenter)

	i.Apply(domain.Decision{Kind: domain.DecisionRedirectHomeAndWarn, Package: "com.x.social"})

	assert.Equal(t, 1, home.calls)
	assert.Equal(t, []string{"com.x.social"}, presenter.packages)
}

func TestInterventer_PresenterFailureDoesNotPanic(t *testing.T) {
	home := &mockHome{}
	presenter := &mockPresenter{err: errors.New("activity launch rejected")}
	i, _ := newTestInterventer(home, presenter)

	assert.NotPanics(t, func() {
		i.Apply(domain.Decision{Kind: domain.DecisionRedirectHomeAndWarn, Package: "com.x.social"})
	})
	assert.Equal(t, 1, home.calls, "home redirect must not be rolled back")
}

func TestInterventer_ExactlyOnePresenterInvocationPerDecision(t *testing.T) {
	home := &mockHome{}
	presenter := &mockPresenter{}
	i, _ := newTestInterventer(home, presenter)

	i.Apply(domain.Decision{Kind: domain.DecisionRedirectHomeAndWarn, Package: "com.x.social"})

	assert.Len(t, presenter.packages, 1)
}
