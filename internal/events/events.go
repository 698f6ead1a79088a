package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pricewatch/pricewatch/internal/database"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypePriceRecorded is published for every stored price observation
	EventTypePriceRecorded EventType = "PRICE_RECORDED"
	// EventTypePriceChanged is published when the stored price differs from the previous one
	EventTypePriceChanged EventType = "PRICE_CHANGED"
)

// PricePayload is the payload carried by price events
type PricePayload struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	ProductID     string    `json:"product_id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Price         float64   `json:"price"`
	PreviousPrice *float64  `json:"previous_price,omitempty"`
	Source        string    `json:"source"`
}

func (pl *PricePayload) fillDefaults(eventType EventType) {
	if pl.EventID == "" {
		pl.EventID = uuid.New().String()
	}
	if pl.EventType == "" {
		pl.EventType = string(eventType)
	}
	if pl.Timestamp.IsZero() {
		pl.Timestamp = time.Now()
	}
	if pl.Source == "" {
		pl.Source = "pricewatch"
	}
}

// newEvent builds an outbox row for a price event. Callers hand the result
// to the store so it is inserted in the same transaction as the price write.
func newEvent(eventType EventType, payload *PricePayload) (*database.OutboxEvent, error) {
	payload.fillDefaults(eventType)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return &database.OutboxEvent{
		AggregateType: "product",
		AggregateID:   payload.ProductID,
		EventType:     string(eventType),
		Payload:       data,
		TargetStream:  database.DefaultTargetStream,
	}, nil
}

// NewPriceRecorded builds a PRICE_RECORDED outbox event.
func NewPriceRecorded(payload *PricePayload) (*database.OutboxEvent, error) {
	return newEvent(EventTypePriceRecorded, payload)
}

// NewPriceChanged builds a PRICE_CHANGED outbox event. PreviousPrice should
// carry the price before the change.
func NewPriceChanged(payload *PricePayload) (*database.OutboxEvent, error) {
	return newEvent(EventTypePriceChanged, payload)
}
