// store/event_store.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"portfolio/analytics/models"
)

var (
	ErrStoreRead  = errors.New("event store read failed")
	ErrStoreWrite = errors.New("event store write failed")
)

// EventStore persists every tracked event as one pretty-printed JSON array.
// Appends are a full load-append-save cycle serialized by mu; readers share mu
// so they never observe a half-written file.
type EventStore struct {
	path string
	mu   sync.RWMutex

	now   func() time.Time
	newID func() string
}

// NewEventStore creates dir and an empty array file inside it when missing.
func NewEventStore(dir, file string) (*EventStore, error) {
	s := &EventStore{
		path:  filepath.Join(dir, file),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	if err := s.ensure(); err != nil {
		return nil, err
	}
	log.Printf("Event store ready at %s", s.path)
	return s, nil
}

func (s *EventStore) Path() string {
	return s.path
}

func (s *EventStore) ensure() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: creating data directory: %w", ErrStoreWrite, err)
	}
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: checking %s: %w", ErrStoreRead, s.path, err)
	}
	return s.save([]models.Event{})
}

// Append stamps each event with an eventId and serverTimestamp and adds them to the
// end of the log in one write. The stamped events are returned in append order.
func (s *EventStore) Append(ctx context.Context, events ...models.Event) ([]models.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(); err != nil {
		return nil, err
	}
	existing, err := s.load()
	if err != nil {
		return nil, err
	}

	receivedAt := s.now()
	stamped := make([]models.Event, len(events))
	for i, event := range events {
		event.Stamp(s.newID(), receivedAt)
		stamped[i] = event
	}

	if err := s.save(append(existing, stamped...)); err != nil {
		return nil, err
	}
	return stamped, nil
}

// LoadAll returns every stored event in append order. A missing file reads as empty.
func (s *EventStore) LoadAll(ctx context.Context) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

func (s *EventStore) load() ([]models.Event, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrStoreRead, s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Event{}, nil
	}

	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrStoreRead, s.path, err)
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

// save replaces the file through a rename so a crash mid-write leaves the old copy intact.
func (s *EventStore) save(events []models.Event) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding events: %w", ErrStoreWrite, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrStoreWrite, err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		log.Printf("Could not set permissions on %s: %v", tmpName, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing %s: %w", ErrStoreWrite, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing %s: %w", ErrStoreWrite, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replacing %s: %w", ErrStoreWrite, s.path, err)
	}
	return nil
}
