package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical wrapper for every event the service publishes.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// CatalogBuiltEvent announces a completed catalog refresh.
type CatalogBuiltEvent struct {
	RunID         uuid.UUID      `json:"run_id"`
	Products      int            `json:"products"`
	Offers        int            `json:"offers"`
	Sources       map[Source]int `json:"sources"`
	FailedRecords int            `json:"failed_records"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
}
