package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/analytics/models"
)

func decode(t *testing.T, s string) models.Event {
	t.Helper()
	var e models.Event
	require.NoError(t, json.Unmarshal([]byte(s), &e))
	return e
}

func TestRenderEvents(t *testing.T) {
	events := []models.Event{
		decode(t, `{"type":"page_view","visitorId":"visitor_1234567890abc","sessionId":"s","timestamp":0,"path":"/","title":"Home","language":"en-US","screenResolution":"1920x1080"}`),
		decode(t, `{"type":"interaction","visitorId":"v","sessionId":"s","timestamp":0,"url":"https://x.dev/p","interaction":{"type":"click","timeOnPage":2500}}`),
		decode(t, `{"type":"page_exit","visitorId":"v","sessionId":"s","timestamp":0,"path":"/","timeSpent":4400,"maxScrollDepth":80,"totalInteractions":3}`),
	}

	var buf bytes.Buffer
	renderEvents(&buf, events, time.UTC)
	out := buf.String()

	assert.Contains(t, out, "Found 3 events:")
	assert.Contains(t, out, "PAGE_VIEW")
	assert.Contains(t, out, "visitor_1234...")
	assert.Contains(t, out, "Direct")
	assert.Contains(t, out, "1920x1080")
	assert.Contains(t, out, "1970-01-01 00:00:00")
	assert.Contains(t, out, "https://x.dev/p")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "3s")
	assert.Contains(t, out, "4s")
	assert.Contains(t, out, "80%")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderEvents(&buf, nil, time.UTC)
	assert.Contains(t, buf.String(), "No events found yet")
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	renderSummary(&buf, &models.Summary{TotalEvents: 5, UniqueVisitors: 2, PageViews: 3, AvgTimePerPage: 7, Interactions: 1})
	out := buf.String()
	assert.Contains(t, out, "SUMMARY:")
	assert.Contains(t, out, "7s")
}

func TestCustomEvent(t *testing.T) {
	e, err := customEvent("signup", []string{"plan=pro", "seats=3"}, "v1", "")
	require.NoError(t, err)
	assert.Equal(t, models.EventTypeCustom, e.Type)
	assert.NotEmpty(t, e.SessionID)
	assert.Equal(t, "signup", e.ExtraString("eventName"))
	assert.Equal(t, map[string]any{"plan": "pro", "seats": "3"}, e.ExtraObject("eventData"))

	_, err = customEvent("x", []string{"novalue"}, "v1", "s1")
	assert.Error(t, err)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootUnreachableFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out, err := run(t, "--server", url)
	assert.Error(t, err)
	assert.Contains(t, out, "Make sure the analytics server is running")
}

func TestRootPrintsEventsAndSummary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/analytics", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"type":"page_view","visitorId":"v1","sessionId":"s1","timestamp":1,"path":"/"}]`))
	})
	mux.HandleFunc("/api/analytics/summary", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalEvents":1,"uniqueVisitors":1,"pageViews":1}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := run(t, "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "PAGE_VIEW")
	assert.Contains(t, out, "SUMMARY:")
}

func TestTrackQueuesWhenServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	queue := filepath.Join(t.TempDir(), "queue.json")
	out, err := run(t, "--server", url, "track", "signup", "--queue", queue, "plan=pro")
	require.NoError(t, err)
	assert.Contains(t, out, "event queued (1 pending)")
	assert.FileExists(t, queue)
}
