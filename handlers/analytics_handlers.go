// handlers/analytics_handlers.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio/analytics/analytics"
	"portfolio/analytics/models"
	"portfolio/analytics/store"
)

const (
	storeTimeout = 10 * time.Second
	sinkTimeout  = 5 * time.Second
)

var errBodyTooLarge = errors.New("request body too large")

// EventLog is the durable event sequence the handlers read and append to.
type EventLog interface {
	Append(ctx context.Context, events ...models.Event) ([]models.Event, error)
	LoadAll(ctx context.Context) ([]models.Event, error)
}

type AnalyticsHandlers struct {
	Events EventLog
	Sink   store.EventSink // optional mirror, may be nil

	now func() time.Time
}

func NewAnalyticsHandlers(events EventLog, sink store.EventSink) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		Events: events,
		Sink:   sink,
		now:    time.Now,
	}
}

// TrackEvent accepts one event object or an array of them. The body is parsed whatever
// its content type, since navigator.sendBeacon posts text/plain.
func (h *AnalyticsHandlers) TrackEvent(c *gin.Context) {
	body, err := readBody(c)
	if errors.Is(err, errBodyTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "Payload too large"})
		return
	}
	if err != nil {
		log.Printf("Error reading analytics request body: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	events, err := decodeEvents(body)
	if err != nil {
		log.Printf("Error decoding analytics payload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	stored, err := h.Events.Append(ctx, events...)
	if err != nil {
		log.Printf("Error processing analytics data: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	h.mirror(stored)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Data received"})
}

// mirror forwards stored events to the sink without holding up the response.
func (h *AnalyticsHandlers) mirror(events []models.Event) {
	if h.Sink == nil || len(events) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()

		if err := h.Sink.InsertEvents(ctx, events); err != nil {
			log.Printf("Failed to mirror %d analytics events: %v", len(events), err)
		}
	}()
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	return body, nil
}

// decodeEvents reads an object or an array of objects. An empty body is an empty event,
// as a JSON body parser would hand it over.
func decodeEvents(body []byte) ([]models.Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []models.Event{{}}, nil
	}
	if trimmed[0] == '[' {
		var events []models.Event
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, err
		}
		return events, nil
	}

	var event models.Event
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, err
	}
	return []models.Event{event}, nil
}

func (h *AnalyticsHandlers) GetEvents(c *gin.Context) {
	events, ok := h.loadEvents(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *AnalyticsHandlers) GetSummary(c *gin.Context) {
	events, ok := h.loadEvents(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.Summarize(events))
}

func (h *AnalyticsHandlers) GetSessions(c *gin.Context) {
	events, ok := h.loadEvents(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.ReconstructSessions(events))
}

func (h *AnalyticsHandlers) loadEvents(c *gin.Context) ([]models.Event, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	events, err := h.Events.LoadAll(ctx)
	if err != nil {
		log.Printf("Error retrieving analytics data for %s: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}
	return events, true
}

func (h *AnalyticsHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": h.now().UTC().Format(models.ISOLayout),
	})
}
