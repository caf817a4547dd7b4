package server

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/argus/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readDataFrame reads lines from an SSE stream until a data frame arrives.
func readDataFrame(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsStreamDeliversEvents(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	handler := NewEventsStreamHandler(bus, zerolog.Nop())

	srv := httptest.NewServer(handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/?types=SCAN_COMPLETED", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	frame := readDataFrame(t, reader)
	assert.Contains(t, frame, `"type":"connected"`)

	// Subscriptions are registered before the connected message is written.
	require.Equal(t, 1, bus.SubscriberCount(events.ScanCompleted))

	bus.Emit(events.ScanCompleted, "georisk", map[string]interface{}{"scan_id": "scan-123"})

	frame = readDataFrame(t, reader)
	assert.Contains(t, frame, `"type":"SCAN_COMPLETED"`)
	assert.Contains(t, frame, `"module":"georisk"`)
	assert.Contains(t, frame, "scan-123")

	cancel()

	// Disconnecting removes the per-connection subscriptions.
	require.Eventually(t, func() bool {
		return bus.SubscriberCount(events.ScanCompleted) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventsStreamTypeFilter(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	handler := NewEventsStreamHandler(bus, zerolog.Nop())

	srv := httptest.NewServer(handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/?types=JOB_COMPLETED,JOB_FAILED,bogus", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readDataFrame(t, reader)

	assert.Equal(t, 1, bus.SubscriberCount(events.JobCompleted))
	assert.Equal(t, 1, bus.SubscriberCount(events.JobFailed))
	assert.Equal(t, 0, bus.SubscriberCount(events.ScanStarted))
	assert.Equal(t, 0, bus.SubscriberCount(events.CorpusUpdated))

	cancel()

	require.Eventually(t, func() bool {
		return bus.SubscriberCount(events.JobCompleted) == 0 &&
			bus.SubscriberCount(events.JobFailed) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventsStreamSubscribesAllTypesByDefault(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	handler := NewEventsStreamHandler(bus, zerolog.Nop())

	srv := httptest.NewServer(handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readDataFrame(t, reader)

	for _, eventType := range streamableEventTypes {
		assert.Equal(t, 1, bus.SubscriberCount(eventType), "type %s", eventType)
	}
}

func TestEventsStreamRejectsNonGet(t *testing.T) {
	handler := NewEventsStreamHandler(events.NewBus(zerolog.Nop()), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/events/stream", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
