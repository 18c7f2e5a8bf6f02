package infra

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

func TestEventStream_ReadsEventsInOrder(t *testing.T) {
	input := strings.Join([]string{
		`{"packageName":"com.a","eventKind":"window_state_changed","timestamp":"2026-03-14T12:00:00Z"}`,
		`{"packageName":"com.b","eventKind":"content_changed","content":{"viewId":"root"}}`,
		`{"packageName":"com.c","eventKind":"view_scrolled"}`,
	}, "\n")

	s := NewEventStream(strings.NewReader(input))

	ev, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "com.a", ev.PackageName)
	assert.Equal(t, domain.EventWindowStateChanged, ev.Kind)
	assert.Equal(t, time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC), ev.Timestamp)

	ev, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, domain.EventContentChanged, ev.Kind)
	require.NotNil(t, ev.Content)
	assert.Equal(t, "root", ev.Content.ViewID)

	ev, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, domain.EventViewScrolled, ev.Kind)
	assert.False(t, ev.Timestamp.IsZero(), "missing timestamp must be filled in")

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestEventStream_SkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{broken json`,
		``,
		`{"packageName":"com.a","eventKind":"launched_into_space"}`,
		`{"eventKind":"window_state_changed"}`,
		`{"packageName":"com.ok","eventKind":"window_state_changed"}`,
	}, "\n")

	s := NewEventStream(strings.NewReader(input))

	ev, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "com.ok", ev.PackageName)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestEventStream_SkipsOversizedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"packageName":"com.huge","eventKind":"content_changed","content":{"viewId":"` + strings.Repeat("x", maxEventLine) + `"}}`,
		`{"packageName":"com.ok","eventKind":"window_state_changed"}`,
	}, "\n")

	s := NewEventStream(strings.NewReader(input))

	ev, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "com.ok", ev.PackageName)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestEventStream_OversizedLineAtEOF(t *testing.T) {
	s := NewEventStream(strings.NewReader(strings.Repeat("x", maxEventLine+1)))

	_, err := s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestEventStream_NestedContentTree(t *testing.T) {
	input := `{"packageName":"com.instagram.android","eventKind":"content_changed","content":{"viewId":"a","children":[{"viewId":"b","children":[{"viewId":"com.instagram.android:id/root_clips_layout"}]}]}}`

	s := NewEventStream(strings.NewReader(input))
	ev, err := s.Next()
	require.NoError(t, err)

	require.NotNil(t, ev.Content)
	require.Len(t, ev.Content.Children, 1)
	require.Len(t, ev.Content.Children[0].Children, 1)
	assert.Equal(t, "com.instagram.android:id/root_clips_layout", ev.Content.Children[0].Children[0].ViewID)
}

func TestActionWriter_GoHome(t *testing.T) {
	var buf bytes.Buffer
	w := NewActionWriter(&buf)

	require.NoError(t, w.GoHome())

	var a map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &a))
	assert.Equal(t, "home", a["action"])
	assert.NotContains(t, a, "package")
}

func TestActionWriter_ShowWarningCarriesClearTask(t *testing.T) {
	var buf bytes.Buffer
	w := NewActionWriter(&buf)

	require.NoError(t, w.ShowWarning("com.x.social"))

	var a map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &a))
	assert.Equal(t, "warn", a["action"])
	assert.Equal(t, "com.x.social", a["package"])
	assert.Equal(t, true, a["clearTask"])
}

func TestActionWriter_ConcurrentWritesStayLineAtomic(t *testing.T) {
	var buf bytes.Buffer
	w := NewActionWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.GoHome()
			_ = w.ShowWarning("com.x.social")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 40)
	for _, line := range lines {
		var a bridgeAction
		require.NoError(t, json.Unmarshal([]byte(line), &a), "line %q", line)
	}
}
