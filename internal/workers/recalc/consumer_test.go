package recalc

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orderlift/orderlift-backend/internal/pricing"
	"github.com/orderlift/orderlift-backend/pkg/db/models"
	"github.com/orderlift/orderlift-backend/pkg/enums"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
	"github.com/orderlift/orderlift-backend/pkg/logger"
	olpubsub "github.com/orderlift/orderlift-backend/pkg/pubsub"
)

type stubPricing struct {
	pricing.Service
	recalculated []uuid.UUID
	err          error
}

func (s *stubPricing) Recalculate(_ context.Context, sheetID uuid.UUID) (*models.PricingSheet, error) {
	s.recalculated = append(s.recalculated, sheetID)
	if s.err != nil {
		return nil, s.err
	}
	return &models.PricingSheet{ID: sheetID}, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{
		ServiceName: "recalc-test",
		Level:       zerolog.ErrorLevel,
		Output:      io.Discard,
	})
}

func recalcMessage(t *testing.T, sheetID string) *pubsub.Message {
	t.Helper()
	payload, err := json.Marshal(olpubsub.SheetRecalcPayload{SheetID: sheetID})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	data, err := json.Marshal(olpubsub.DomainEvent{
		Type:    string(enums.EventSheetRecalcRequested),
		Payload: payload,
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &pubsub.Message{
		ID:         "msg-1",
		Data:       data,
		Attributes: map[string]string{"event_type": string(enums.EventSheetRecalcRequested)},
	}
}

func newTestConsumer(t *testing.T, svc pricing.Service) *Consumer {
	t.Helper()
	// The subscription is only touched by Run; process is exercised directly.
	return &Consumer{pricing: svc, logg: testLogger(t)}
}

func TestProcessRecomputesSheet(t *testing.T) {
	t.Parallel()
	svc := &stubPricing{}
	consumer := newTestConsumer(t, svc)
	sheetID := uuid.New()

	if ack := consumer.process(context.Background(), recalcMessage(t, sheetID.String())); !ack {
		t.Fatal("expected ack after successful recompute")
	}
	if len(svc.recalculated) != 1 || svc.recalculated[0] != sheetID {
		t.Fatalf("recalculated = %v, want [%s]", svc.recalculated, sheetID)
	}
}

func TestProcessSkipsForeignEvents(t *testing.T) {
	t.Parallel()
	svc := &stubPricing{}
	consumer := newTestConsumer(t, svc)

	msg := recalcMessage(t, uuid.NewString())
	msg.Attributes["event_type"] = string(enums.EventQuotationExported)
	if ack := consumer.process(context.Background(), msg); !ack {
		t.Fatal("foreign events must be acked, not retried")
	}
	if len(svc.recalculated) != 0 {
		t.Fatal("foreign event must not trigger a recompute")
	}
}

func TestProcessAcksMalformedPayload(t *testing.T) {
	t.Parallel()
	svc := &stubPricing{}
	consumer := newTestConsumer(t, svc)

	msg := recalcMessage(t, "not-a-uuid")
	if ack := consumer.process(context.Background(), msg); !ack {
		t.Fatal("malformed payloads must be acked to stop redelivery")
	}
	if len(svc.recalculated) != 0 {
		t.Fatal("malformed payload must not trigger a recompute")
	}
}

func TestProcessNacksTransientFailure(t *testing.T) {
	t.Parallel()
	svc := &stubPricing{err: pkgerrors.New(pkgerrors.CodeInternal, "db down")}
	consumer := newTestConsumer(t, svc)

	if ack := consumer.process(context.Background(), recalcMessage(t, uuid.NewString())); ack {
		t.Fatal("transient failures must be nacked for redelivery")
	}
}

func TestProcessAcksDeterministicFailure(t *testing.T) {
	t.Parallel()
	svc := &stubPricing{err: pkgerrors.New(pkgerrors.CodeConfiguration, "no scenario")}
	consumer := newTestConsumer(t, svc)

	if ack := consumer.process(context.Background(), recalcMessage(t, uuid.NewString())); !ack {
		t.Fatal("deterministic failures must be acked, redelivery cannot heal them")
	}
}
