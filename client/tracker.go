package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"portfolio/analytics/models"
)

// MaxQueued bounds the undelivered-event queue; the oldest entries are dropped first.
const MaxQueued = 100

// Tracker delivers events and keeps the ones the server could not take. The queue is
// flushed as one batch after the next successful send.
type Tracker struct {
	client    *Client
	queuePath string // "" keeps the queue in memory only

	mu    sync.Mutex
	queue []models.Event
	now   func() time.Time
}

// NewTracker loads any queue left at queuePath by an earlier run.
func NewTracker(c *Client, queuePath string) (*Tracker, error) {
	t := &Tracker{client: c, queuePath: queuePath, now: time.Now}
	if queuePath == "" {
		return t, nil
	}

	data, err := os.ReadFile(queuePath)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading queue %s: %w", queuePath, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &t.queue); err != nil {
			log.Printf("Discarding unreadable queue %s: %v", queuePath, err)
			t.queue = nil
		}
	}
	return t, nil
}

// Pending returns the number of queued events.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Track sends e. A retryable failure queues e and is still returned to the caller; a
// success drains the queue.
func (t *Tracker) Track(ctx context.Context, e models.Event) error {
	if e.Timestamp == 0 {
		e.Timestamp = t.now().UnixMilli()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.Send(ctx, e); err != nil {
		if Retryable(err) {
			t.enqueue(e)
		}
		return err
	}
	return t.flushLocked(ctx)
}

// Flush tries to deliver the queue now.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked(ctx)
}

func (t *Tracker) flushLocked(ctx context.Context) error {
	if len(t.queue) == 0 {
		return nil
	}
	n := len(t.queue)
	if err := t.client.Send(ctx, t.queue...); err != nil {
		if !Retryable(err) {
			log.Printf("Dropping %d queued events rejected by server: %v", n, err)
			t.queue = nil
			t.persist()
		}
		return fmt.Errorf("flushing %d queued events: %w", n, err)
	}
	t.queue = nil
	t.persist()
	return nil
}

func (t *Tracker) enqueue(e models.Event) {
	t.queue = append(t.queue, e)
	if over := len(t.queue) - MaxQueued; over > 0 {
		t.queue = append([]models.Event(nil), t.queue[over:]...)
	}
	t.persist()
}

func (t *Tracker) persist() {
	if t.queuePath == "" {
		return
	}
	if len(t.queue) == 0 {
		if err := os.Remove(t.queuePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("Could not clear queue %s: %v", t.queuePath, err)
		}
		return
	}

	data, err := json.Marshal(t.queue)
	if err != nil {
		log.Printf("Could not encode queue: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.queuePath), 0o755); err != nil {
		log.Printf("Could not create queue directory: %v", err)
		return
	}
	if err := os.WriteFile(t.queuePath, data, 0o644); err != nil {
		log.Printf("Could not write queue %s: %v", t.queuePath, err)
	}
}
