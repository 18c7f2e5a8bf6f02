package infra

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

// maxEventLine bounds one serialized event; content snapshots of deep view
// hierarchies can run large. Lines beyond the bound are discarded whole.
const maxEventLine = 4 * 1024 * 1024

// EventStream implements domain.EventSource over an NDJSON stream written by
// the platform accessibility service: one event per line, in delivery order.
// Malformed, unknown-kind and oversized lines are skipped, never fatal - a
// bad event from the bridge must not stop the listener.
type EventStream struct {
	reader *bufio.Reader
	closer io.Closer
	now    func() time.Time
}

// NewEventStream creates an event stream over r.
func NewEventStream(r io.Reader) *EventStream {
	return &EventStream{reader: bufio.NewReaderSize(r, 64*1024), now: time.Now}
}

// OpenEventStream opens the bridge event endpoint (a named pipe or file).
func OpenEventStream(path string) (*EventStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	s := NewEventStream(f)
	s.closer = f
	return s, nil
}

// Next returns the next well-formed event, blocking until one arrives.
// Returns io.EOF when the stream ends.
func (s *EventStream) Next() (domain.DecisionEvent, error) {
	for {
		line, err := s.nextLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return domain.DecisionEvent{}, io.EOF
			}
			return domain.DecisionEvent{}, fmt.Errorf("event stream read failed: %w", err)
		}
		if len(line) == 0 {
			continue
		}

		var event domain.DecisionEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		if !knownEventKind(event.Kind) || event.PackageName == "" {
			continue
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = s.now()
		}
		return event, nil
	}
}

// nextLine returns the next newline-delimited line without its terminator.
// A line exceeding maxEventLine is discarded up to the next newline and
// returned empty, so the stream resynchronizes instead of failing.
func (s *EventStream) nextLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if len(line)+len(chunk) > maxEventLine {
			return nil, s.discardLine(err)
		}
		line = append(line, chunk...)

		switch {
		case err == nil:
			return bytes.TrimRight(line, "\r\n"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(line) == 0 {
				return nil, io.EOF
			}
			return line, nil
		default:
			return nil, err
		}
	}
}

// discardLine consumes the remainder of an oversized line. err is the
// ReadSlice error for the chunk that tripped the bound.
func (s *EventStream) discardLine(err error) error {
	for errors.Is(err, bufio.ErrBufferFull) {
		_, err = s.reader.ReadSlice('\n')
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Close releases the underlying endpoint.
func (s *EventStream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func knownEventKind(kind domain.EventKind) bool {
	switch kind {
	case domain.EventWindowStateChanged, domain.EventContentChanged, domain.EventViewScrolled:
		return true
	}
	return false
}

// bridgeAction is one command for the platform side to execute.
type bridgeAction struct {
	Action    string `json:"action"`
	Package   string `json:"package,omitempty"`
	ClearTask bool   `json:"clearTask,omitempty"`
}

// ActionWriter implements domain.HomeActions and domain.Presenter by writing
// NDJSON actions to the bridge. Safe for concurrent use: the interventer's
// settle-delay timer fires on its own goroutine.
//
// Warning launches always carry clearTask, so the platform replaces any
// interstitial already on screen instead of stacking a second one.
type ActionWriter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// NewActionWriter creates an action writer over w.
func NewActionWriter(w io.Writer) *ActionWriter {
	return &ActionWriter{enc: json.NewEncoder(w)}
}

// OpenActionWriter opens the bridge action endpoint (a named pipe or file).
func OpenActionWriter(path string) (*ActionWriter, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open action stream: %w", err)
	}
	w := NewActionWriter(f)
	w.closer = f
	return w, nil
}

// GoHome issues the global home action.
func (w *ActionWriter) GoHome() error {
	return w.write(bridgeAction{Action: "home"})
}

// ShowWarning launches the warning interstitial for pkg with task-clear
// semantics.
func (w *ActionWriter) ShowWarning(pkg string) error {
	return w.write(bridgeAction{Action: "warn", Package: pkg, ClearTask: true})
}

func (w *ActionWriter) write(a bridgeAction) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(a); err != nil {
		return fmt.Errorf("failed to write bridge action: %w", err)
	}
	return nil
}

// Close releases the underlying endpoint.
func (w *ActionWriter) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// Ensure the bridge types implement the domain interfaces.
var (
	_ domain.EventSource = (*EventStream)(nil)
	_ domain.HomeActions = (*ActionWriter)(nil)
	_ domain.Presenter   = (*ActionWriter)(nil)
)
