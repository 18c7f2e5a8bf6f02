// Package fixtures provides helpers for scripting the accessibility bridge
// in integration tests.
package fixtures

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

// EventScript accumulates accessibility events and writes them as an NDJSON
// file the listener can consume end to end.
type EventScript struct {
	events []domain.DecisionEvent
}

func NewEventScript() *EventScript {
	return &EventScript{}
}

// WindowState appends a foreground-change event for pkg.
func (s *EventScript) WindowState(pkg string, at time.Time) *EventScript {
	s.events = append(s.events, domain.DecisionEvent{
		PackageName: pkg,
		Kind:        domain.EventWindowStateChanged,
		Timestamp:   at,
	})
	return s
}

// ContentWithView appends a content-change event carrying a small view tree
// with viewID nested one level below the root.
func (s *EventScript) ContentWithView(pkg, viewID string, at time.Time) *EventScript {
	s.events = append(s.events, domain.DecisionEvent{
		PackageName: pkg,
		Kind:        domain.EventContentChanged,
		Timestamp:   at,
		Content: &domain.ContentNode{
			Children: []*domain.ContentNode{{ViewID: viewID}},
		},
	})
	return s
}

// Scrolled appends a scroll event with an empty view tree.
func (s *EventScript) Scrolled(pkg string, at time.Time) *EventScript {
	s.events = append(s.events, domain.DecisionEvent{
		PackageName: pkg,
		Kind:        domain.EventViewScrolled,
		Timestamp:   at,
		Content:     &domain.ContentNode{},
	})
	return s
}

// WriteTo writes the script as NDJSON to path.
func (s *EventScript) WriteTo(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create event script: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, event := range s.events {
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

// Action mirrors one NDJSON line of the bridge action stream.
type Action struct {
	Action    string `json:"action"`
	Package   string `json:"package,omitempty"`
	ClearTask bool   `json:"clearTask,omitempty"`
}

// ReadActions parses the action stream written by the listener. A missing
// file yields an empty slice: the listener only creates it on first write.
func ReadActions(path string) ([]Action, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var actions []Action
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var a Action
		if err := json.Unmarshal(scanner.Bytes(), &a); err != nil {
			return nil, fmt.Errorf("malformed action line %q: %w", scanner.Text(), err)
		}
		actions = append(actions, a)
	}
	return actions, scanner.Err()
}
