package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

// Recorder derives foreground sessions from the window-state event stream
// and appends them to the usage log. A session for package A is closed the
// moment a different package B comes to the foreground; B's session opens
// at the same instant, so sessions tile the timeline without gaps.
type Recorder struct {
	log   domain.UsageLog
	newID func() string

	current string
	since   time.Time

	logger *zap.Logger
}

// NewRecorder creates a usage recorder.
func NewRecorder(log domain.UsageLog, logger *zap.Logger) *Recorder {
	return &Recorder{
		log:    log,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// OnForeground notes that pkg came to the foreground at ts, closing the
// previous session if any. Append failures are logged and dropped - a lost
// session degrades accuracy, never the event loop.
func (r *Recorder) OnForeground(ctx context.Context, pkg string, ts time.Time) {
	if r.current == pkg {
		return
	}

	r.closeSession(ctx, ts)
	r.current = pkg
	r.since = ts
}

// Checkpoint persists the open session up to now and restarts it, so that
// aggregations over the log include usage accrued since the last window
// change. Called by the periodic display refresh.
func (r *Recorder) Checkpoint(ctx context.Context, now time.Time) {
	r.closeSession(ctx, now)
	if r.current != "" {
		r.since = now
	}
}

// Flush closes the open session, if any. Called on shutdown.
func (r *Recorder) Flush(ctx context.Context, now time.Time) {
	r.closeSession(ctx, now)
	r.current = ""
}

func (r *Recorder) closeSession(ctx context.Context, end time.Time) {
	if r.current == "" {
		return
	}
	if !end.After(r.since) {
		return
	}

	session := domain.UsageSession{
		ID:      r.newID(),
		Package: r.current,
		Start:   r.since,
		End:     end,
	}
	if err := r.log.AppendSession(ctx, session); err != nil {
		r.logger.Warn("failed to record usage session",
			zap.String("package", session.Package),
			zap.Error(err))
	}
}
