// store/clickhouse_sink.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"portfolio/analytics/database"
	"portfolio/analytics/models"
)

// EventSink receives events after they have been written to the event store.
type EventSink interface {
	InsertEvents(ctx context.Context, events []models.Event) error
}

// ClickHouseSink mirrors stored events into the analytics_events table.
type ClickHouseSink struct {
	DB *database.ClickHouseClient
}

func NewClickHouseSink(chClient *database.ClickHouseClient) *ClickHouseSink {
	return &ClickHouseSink{
		DB: chClient,
	}
}

func (s *ClickHouseSink) InsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Column order must match database.analyticsEventsDDL.
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO analytics_events (
			event_id, event_type, visitor_id, session_id, client_timestamp, server_timestamp,
			url, path, referrer, user_agent, language, time_spent_ms, payload
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		payload, err := json.Marshal(event.Extra)
		if err != nil {
			log.Printf("Error encoding payload for event %s: %v", event.EventID, err)
			payload = []byte("{}")
		}

		var timeSpent float64
		if event.TimeSpent != nil {
			timeSpent = *event.TimeSpent
		}

		err = batch.Append(
			event.EventID,
			event.Type,
			event.VisitorLabel(),
			event.SessionLabel(),
			event.Time(),
			event.ServerTimestamp,
			event.URL,
			event.Path,
			event.Referrer,
			event.UserAgent,
			event.Language,
			timeSpent,
			string(payload),
		)
		if err != nil {
			log.Printf("Error appending event to batch (EventID: %s): %v", event.EventID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Mirrored %d analytics events to ClickHouse.", len(events))
	return nil
}
