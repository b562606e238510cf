package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/pkg/logger"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox/idempotency"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox/payloads"
)

type fakeIdempotencyStore struct {
	setNXResult bool
	setNXError  error
}

func (f *fakeIdempotencyStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeIdempotencyStore) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	return f.setNXResult, f.setNXError
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "lp:idempotency:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(context.Context, ...string) error {
	return nil
}

type stubMailer struct {
	sent []payloads.OrderCompletedEvent
	err  error
}

func (s *stubMailer) SendOrderAccess(ctx context.Context, event payloads.OrderCompletedEvent) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, event)
	return nil
}

type stubGamification struct {
	purchases map[uuid.UUID]int64
	sales     map[uuid.UUID]int64
}

func newStubGamification() *stubGamification {
	return &stubGamification{
		purchases: map[uuid.UUID]int64{},
		sales:     map[uuid.UUID]int64{},
	}
}

func (s *stubGamification) AwardPurchase(ctx context.Context, buyerID uuid.UUID, points int64) error {
	s.purchases[buyerID] += points
	return nil
}

func (s *stubGamification) AwardSale(ctx context.Context, producerID uuid.UUID, points int64) error {
	s.sales[producerID] += points
	return nil
}

type stubPayoutNotifier struct {
	notified []payloads.PayoutCompletedEvent
}

func (s *stubPayoutNotifier) NotifyPayout(ctx context.Context, event payloads.PayoutCompletedEvent) error {
	s.notified = append(s.notified, event)
	return nil
}

type consumerFixture struct {
	consumer     *Consumer
	mailer       *stubMailer
	gamification *stubGamification
	payouts      *stubPayoutNotifier
}

func newConsumerFixture(t *testing.T, store *fakeIdempotencyStore) *consumerFixture {
	t.Helper()

	manager, err := idempotency.NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	f := &consumerFixture{
		mailer:       &stubMailer{},
		gamification: newStubGamification(),
		payouts:      &stubPayoutNotifier{},
	}
	f.consumer = &Consumer{
		idempotency:  manager,
		mailer:       f.mailer,
		gamification: f.gamification,
		payouts:      f.payouts,
		logg: logger.New(logger.Options{
			ServiceName: "notifications-test",
			Level:       zerolog.Disabled,
			Output:      io.Discard,
		}),
	}
	return f
}

func envelopeMessage(t *testing.T, eventType string, payload any) *pubsub.Message {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.New().String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:         "m-1",
		Data:       envelope,
		Attributes: map[string]string{"event_type": eventType},
	}
}

func completedEvent(producerID *uuid.UUID) payloads.OrderCompletedEvent {
	return payloads.OrderCompletedEvent{
		OrderID:        uuid.New(),
		BuyerID:        uuid.New(),
		ProducerID:     producerID,
		Amount:         decimal.RequireFromString("100.00"),
		ProducerAmount: decimal.RequireFromString("97.00"),
		PaidAt:         time.Now().UTC(),
	}
}

func TestProcessOrderCompletedFansOut(t *testing.T) {
	f := newConsumerFixture(t, &fakeIdempotencyStore{setNXResult: true})
	producerID := uuid.New()
	event := completedEvent(&producerID)

	result := f.consumer.process(context.Background(), envelopeMessage(t, "order.completed", event))
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected access email, got %d", len(f.mailer.sent))
	}
	if f.gamification.purchases[event.BuyerID] != 100 {
		t.Fatalf("expected 100 buyer points, got %d", f.gamification.purchases[event.BuyerID])
	}
	if f.gamification.sales[producerID] != 97 {
		t.Fatalf("expected 97 producer points, got %d", f.gamification.sales[producerID])
	}
}

func TestProcessOrderCompletedWithoutProducerSkipsSalePoints(t *testing.T) {
	f := newConsumerFixture(t, &fakeIdempotencyStore{setNXResult: true})
	event := completedEvent(nil)

	result := f.consumer.process(context.Background(), envelopeMessage(t, "order.completed", event))
	if !result.ack {
		t.Fatalf("expected ack")
	}
	if len(f.gamification.sales) != 0 {
		t.Fatalf("direct orders award no sale points")
	}
}

func TestProcessPayoutCompletedNotifiesProducer(t *testing.T) {
	f := newConsumerFixture(t, &fakeIdempotencyStore{setNXResult: true})
	event := payloads.PayoutCompletedEvent{
		BatchID:     uuid.New(),
		ProducerID:  uuid.New(),
		Amount:      decimal.RequireFromString("35.00"),
		ProcessedAt: time.Now().UTC(),
	}

	result := f.consumer.process(context.Background(), envelopeMessage(t, "payout.completed", event))
	if !result.ack {
		t.Fatalf("expected ack")
	}
	if len(f.payouts.notified) != 1 || f.payouts.notified[0].BatchID != event.BatchID {
		t.Fatalf("expected payout notification, got %+v", f.payouts.notified)
	}
}

func TestProcessDuplicateEventAcksWithoutSideEffects(t *testing.T) {
	f := newConsumerFixture(t, &fakeIdempotencyStore{setNXResult: false})
	producerID := uuid.New()

	result := f.consumer.process(context.Background(), envelopeMessage(t, "order.completed", completedEvent(&producerID)))
	if !result.ack {
		t.Fatalf("expected ack for duplicate")
	}
	if len(f.mailer.sent) != 0 || len(f.gamification.purchases) != 0 {
		t.Fatalf("duplicates must not run side effects")
	}
}

func TestProcessNacksOnIdempotencyFailure(t *testing.T) {
	f := newConsumerFixture(t, &fakeIdempotencyStore{setNXError: errors.New("redis down")})
	producerID := uuid.New()

	result := f.consumer.process(context.Background(), envelopeMessage(t, "order.completed", completedEvent(&producerID)))
	if !result.nack {
		t.Fatalf("expected nack so the broker retries")
	}
}

func TestProcessAcksUnknownEventType(t *testing.T) {
	f := newConsumerFixture(t, &fakeIdempotencyStore{setNXResult: true})

	msg := &pubsub.Message{
		ID:         "m-2",
		Data:       []byte("{}"),
		Attributes: map[string]string{"event_type": "something.else"},
	}
	result := f.consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("unknown event types must be acked")
	}
}

func TestProcessAcksMalformedEnvelope(t *testing.T) {
	f := newConsumerFixture(t, &fakeIdempotencyStore{setNXResult: true})

	msg := &pubsub.Message{
		ID:         "m-3",
		Data:       []byte("not json"),
		Attributes: map[string]string{"event_type": "order.completed"},
	}
	result := f.consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("malformed envelopes are poison, ack them")
	}
}

func TestProcessMailerFailureStillAcks(t *testing.T) {
	f := newConsumerFixture(t, &fakeIdempotencyStore{setNXResult: true})
	f.mailer.err = errors.New("smtp down")
	producerID := uuid.New()

	result := f.consumer.process(context.Background(), envelopeMessage(t, "order.completed", completedEvent(&producerID)))
	if !result.ack {
		t.Fatalf("side-effect failures are logged, never retried")
	}
}

func TestPointsFloor(t *testing.T) {
	if pointsFor(0) != 1 {
		t.Fatalf("zero-unit orders still award one point")
	}
	if pointsFor(-5) != 1 {
		t.Fatalf("negative units floor at one point")
	}
	if pointsFor(42) != 42 {
		t.Fatalf("expected one point per unit")
	}
}
