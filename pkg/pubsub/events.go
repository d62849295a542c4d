package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// DomainEvent is the envelope published on the domain topic.
type DomainEvent struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// SheetRecalcPayload asks the worker to recompute one pricing sheet.
type SheetRecalcPayload struct {
	SheetID   string `json:"sheet_id"`
	Actor     string `json:"actor,omitempty"`
	Requested string `json:"requested,omitempty"`
}

// PlanLifecyclePayload announces load plan submit/cancel transitions.
type PlanLifecyclePayload struct {
	PlanID      string   `json:"plan_id"`
	Status      string   `json:"status"`
	ShipmentIDs []string `json:"shipment_ids,omitempty"`
}

// PublishDomainEvent marshals the payload and publishes it on the domain topic
// with the event type set as a message attribute for subscriber filtering.
func (c *Client) PublishDomainEvent(ctx context.Context, eventType string, payload any) error {
	publisher := c.DomainPublisher()
	if publisher == nil {
		return errors.New("domain publisher not configured")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", eventType, err)
	}
	event := DomainEvent{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", eventType, err)
	}

	result := publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event_type": eventType},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing %s: %w", eventType, err)
	}
	return nil
}
