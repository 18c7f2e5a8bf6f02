// Package daemon implements the blocking listener daemon.
package daemon

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
	"github.com/lorenzoconte/exizt/blockd/internal/usecase"
)

// ListenerConfig holds listener daemon configuration.
type ListenerConfig struct {
	HeartbeatInterval time.Duration // How often to update the registry heartbeat
	RefreshInterval   time.Duration // How often to recompute display state
}

// DefaultListenerConfig returns default listener configuration.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		HeartbeatInterval: 30 * time.Second,
		RefreshInterval:   60 * time.Second,
	}
}

// Listener is the main blocking daemon. It consumes accessibility events
// from the bridge, runs them through the decision engines, applies the
// resulting interventions, and records foreground sessions to the usage
// log. Events are handled serially in arrival order.
type Listener struct {
	config         ListenerConfig
	events         domain.EventSource
	appBlocker     *usecase.AppBlocker
	contentBlocker *usecase.ContentBlocker
	interventer    *usecase.Interventer
	recorder       *usecase.Recorder
	store          domain.PolicyStore
	usage          domain.UsageAggregator
	registry       domain.ListenerRegistry
	probe          domain.ProcessProbe
	appVersion     string
	logger         *zap.Logger

	now func() time.Time
}

// NewListener creates a new listener daemon.
func NewListener(
	config ListenerConfig,
	events domain.EventSource,
	appBlocker *usecase.AppBlocker,
	contentBlocker *usecase.ContentBlocker,
	interventer *usecase.Interventer,
	recorder *usecase.Recorder,
	store domain.PolicyStore,
	usage domain.UsageAggregator,
	registry domain.ListenerRegistry,
	probe domain.ProcessProbe,
	appVersion string,
	logger *zap.Logger,
) *Listener {
	return &Listener{
		config:         config,
		events:         events,
		appBlocker:     appBlocker,
		contentBlocker: contentBlocker,
		interventer:    interventer,
		recorder:       recorder,
		store:          store,
		usage:          usage,
		registry:       registry,
		probe:          probe,
		appVersion:     appVersion,
		logger:         logger,
		now:            time.Now,
	}
}

// WithClock overrides the listener's clock. For tests.
func (l *Listener) WithClock(now func() time.Time) *Listener {
	l.now = now
	return l
}

// Run starts the listener loop. It blocks until the context is canceled or
// the event source is exhausted.
func (l *Listener) Run(ctx context.Context) error {
	pid := l.probe.CurrentPID()
	if err := l.registry.Register(domain.ListenerState{
		PID:        pid,
		StartedAt:  l.now().Unix(),
		AppVersion: l.appVersion,
	}); err != nil {
		l.logger.Error("failed to register listener", zap.Error(err))
		return err
	}

	l.logger.Info("listener started",
		zap.Int("pid", pid),
		zap.String("version", l.appVersion))

	l.refreshDisplayState(ctx)

	eventCh := make(chan domain.DecisionEvent)
	errCh := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go l.readEvents(eventCh, errCh, done)

	heartbeatTicker := time.NewTicker(l.config.HeartbeatInterval)
	refreshTicker := time.NewTicker(l.config.RefreshInterval)
	defer func() {
		heartbeatTicker.Stop()
		refreshTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("listener stopping")
			l.shutdown(ctx)
			return ctx.Err()

		case event := <-eventCh:
			l.handleEvent(ctx, event)

		case err := <-errCh:
			l.shutdown(ctx)
			if errors.Is(err, io.EOF) {
				l.logger.Info("event source closed")
				return nil
			}
			l.logger.Error("event source failed", zap.Error(err))
			return err

		case <-heartbeatTicker.C:
			if err := l.registry.UpdateHeartbeat(); err != nil {
				l.logger.Warn("failed to update heartbeat", zap.Error(err))
			}

		case <-refreshTicker.C:
			l.refreshDisplayState(ctx)
		}
	}
}

// readEvents pumps the blocking event source into a channel so the main
// loop can also service tickers. The done channel unblocks pending sends
// once the main loop has stopped draining.
func (l *Listener) readEvents(eventCh chan<- domain.DecisionEvent, errCh chan<- error, done <-chan struct{}) {
	for {
		event, err := l.events.Next()
		if err != nil {
			select {
			case errCh <- err:
			case <-done:
			}
			return
		}
		select {
		case eventCh <- event:
		case <-done:
			return
		}
	}
}

// handleEvent runs one event through the matching decision engine and
// applies the outcome. Window-state changes additionally advance the
// usage recorder.
func (l *Listener) handleEvent(ctx context.Context, event domain.DecisionEvent) {
	switch event.Kind {
	case domain.EventWindowStateChanged:
		l.recorder.OnForeground(ctx, event.PackageName, event.Timestamp)
		l.interventer.Apply(l.appBlocker.Evaluate(ctx, event))

	case domain.EventContentChanged, domain.EventViewScrolled:
		l.interventer.Apply(l.contentBlocker.Evaluate(event))

	default:
		l.logger.Debug("ignoring unknown event kind",
			zap.String("kind", string(event.Kind)))
	}
}

// refreshDisplayState recomputes the blocking-active flag and the minimum
// remaining group budget for the status surface. Display only: it never
// produces an intervention.
func (l *Listener) refreshDisplayState(ctx context.Context) {
	now := l.now()
	l.recorder.Checkpoint(ctx, now)

	state := l.store.Snapshot()
	remaining := l.minRemainingMinutes(ctx, state, now)

	active := state.BlockingActive || state.FocusModeActive || remaining == 0

	if err := l.registry.UpdateDisplayState(active, remaining); err != nil {
		l.logger.Warn("failed to update display state", zap.Error(err))
	}
}

// minRemainingMinutes returns the smallest remaining daily budget across
// all app groups, in whole minutes, or -1 when no group is configured.
// Aggregation failures leave the display optimistic rather than wrong.
func (l *Listener) minRemainingMinutes(ctx context.Context, state domain.PolicyState, now time.Time) int {
	if len(state.AppGroups) == 0 {
		return -1
	}

	window := domain.TodayWindow(now)
	min := -1
	for _, group := range state.AppGroups {
		used, err := l.usage.TotalForegroundTime(ctx, group.Members, window)
		if err != nil {
			l.logger.Warn("failed to aggregate group usage",
				zap.String("group", group.Name),
				zap.Error(err))
			continue
		}

		left := group.DailyLimit() - used
		if left < 0 {
			left = 0
		}
		minutes := int(left / time.Minute)
		if min == -1 || minutes < min {
			min = minutes
		}
	}
	return min
}

// shutdown flushes the open usage session and clears the registry entry.
func (l *Listener) shutdown(ctx context.Context) {
	l.recorder.Flush(ctx, l.now())
	if err := l.registry.Clear(); err != nil {
		l.logger.Warn("failed to clear listener registry", zap.Error(err))
	}
}
