package payments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/internal/orders"
	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
	"github.com/lumeplay/lumeplay-backend/pkg/mercadopago"
)

type stubLookup struct {
	payment *mercadopago.Payment
	err     error
	calls   int
}

func (s *stubLookup) GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.payment, nil
}

type stubLifecycle struct {
	order       *models.Order
	getErr      error
	transitions []orders.TransitionInput
}

func (s *stubLifecycle) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.order, nil
}

func (s *stubLifecycle) Transition(ctx context.Context, input orders.TransitionInput) error {
	s.transitions = append(s.transitions, input)
	return nil
}

type stubStaleLister struct {
	orders []models.Order
}

func (s *stubStaleLister) ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	return s.orders, nil
}

func newPaymentsService(t *testing.T, lookup *stubLookup, lifecycle *stubLifecycle, stale *stubStaleLister) Service {
	t.Helper()

	logg := logger.New(logger.Options{
		ServiceName: "payments-test",
		Level:       zerolog.Disabled,
		Output:      io.Discard,
	})
	svc, err := NewService(lookup, lifecycle, stale, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func approvedPayment(orderID uuid.UUID) *mercadopago.Payment {
	return &mercadopago.Payment{
		ID:                12345,
		Status:            "approved",
		ExternalReference: orderID.String(),
		TransactionAmount: decimal.RequireFromString("100.00"),
	}
}

func TestHandleNotificationAppliesApprovedPayment(t *testing.T) {
	orderID := uuid.New()
	lookup := &stubLookup{payment: approvedPayment(orderID)}
	lifecycle := &stubLifecycle{order: &models.Order{ID: orderID, Status: enums.OrderStatusPending}}
	svc := newPaymentsService(t, lookup, lifecycle, &stubStaleLister{})

	err := svc.HandleNotification(context.Background(), Notification{Type: "payment", DataID: "12345"})
	if err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if len(lifecycle.transitions) != 1 {
		t.Fatalf("expected one transition, got %d", len(lifecycle.transitions))
	}
	transition := lifecycle.transitions[0]
	if transition.Target != enums.OrderStatusCompleted {
		t.Fatalf("expected completed target, got %s", transition.Target)
	}
	if transition.PaymentRef == nil || *transition.PaymentRef != "12345" {
		t.Fatalf("expected payment ref 12345, got %v", transition.PaymentRef)
	}
}

func TestHandleNotificationProviderStatusMapping(t *testing.T) {
	tests := []struct {
		status string
		target enums.OrderStatus
	}{
		{"approved", enums.OrderStatusCompleted},
		{"pending", enums.OrderStatusProcessing},
		{"in_process", enums.OrderStatusProcessing},
		{"rejected", enums.OrderStatusCancelled},
		{"cancelled", enums.OrderStatusCancelled},
		{"refunded", enums.OrderStatusRefunded},
		{"charged_back", enums.OrderStatusRefunded},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			orderID := uuid.New()
			payment := approvedPayment(orderID)
			payment.Status = tt.status
			lifecycle := &stubLifecycle{order: &models.Order{ID: orderID, Status: enums.OrderStatusPending}}
			svc := newPaymentsService(t, &stubLookup{payment: payment}, lifecycle, &stubStaleLister{})

			if err := svc.HandleNotification(context.Background(), Notification{Type: "payment", DataID: "1"}); err != nil {
				t.Fatalf("handle notification: %v", err)
			}
			if len(lifecycle.transitions) != 1 || lifecycle.transitions[0].Target != tt.target {
				t.Fatalf("expected target %s, got %+v", tt.target, lifecycle.transitions)
			}
		})
	}
}

func TestHandleNotificationDropsUnknownProviderStatus(t *testing.T) {
	orderID := uuid.New()
	payment := approvedPayment(orderID)
	payment.Status = "mystery"
	lifecycle := &stubLifecycle{order: &models.Order{ID: orderID, Status: enums.OrderStatusPending}}
	svc := newPaymentsService(t, &stubLookup{payment: payment}, lifecycle, &stubStaleLister{})

	if err := svc.HandleNotification(context.Background(), Notification{Type: "payment", DataID: "1"}); err != nil {
		t.Fatalf("unknown status must be dropped, got %v", err)
	}
	if len(lifecycle.transitions) != 0 {
		t.Fatalf("unknown status must not transition")
	}
}

func TestHandleNotificationIgnoresNonPaymentTypes(t *testing.T) {
	lookup := &stubLookup{}
	svc := newPaymentsService(t, lookup, &stubLifecycle{}, &stubStaleLister{})

	if err := svc.HandleNotification(context.Background(), Notification{Type: "plan", DataID: "1"}); err != nil {
		t.Fatalf("non-payment notification: %v", err)
	}
	if lookup.calls != 0 {
		t.Fatalf("non-payment notifications must not hit the provider")
	}
}

func TestHandleNotificationDropsUnknownOrder(t *testing.T) {
	lookup := &stubLookup{payment: approvedPayment(uuid.New())}
	lifecycle := &stubLifecycle{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc := newPaymentsService(t, lookup, lifecycle, &stubStaleLister{})

	if err := svc.HandleNotification(context.Background(), Notification{Type: "payment", DataID: "1"}); err != nil {
		t.Fatalf("unknown order must be dropped, got %v", err)
	}
	if len(lifecycle.transitions) != 0 {
		t.Fatalf("unknown order must not transition")
	}
}

func TestHandleNotificationDropsUnresolvableReference(t *testing.T) {
	payment := approvedPayment(uuid.New())
	payment.ExternalReference = "not-a-uuid"
	lifecycle := &stubLifecycle{}
	svc := newPaymentsService(t, &stubLookup{payment: payment}, lifecycle, &stubStaleLister{})

	if err := svc.HandleNotification(context.Background(), Notification{Type: "payment", DataID: "1"}); err != nil {
		t.Fatalf("unresolvable reference must be dropped, got %v", err)
	}
	if len(lifecycle.transitions) != 0 {
		t.Fatalf("unresolvable reference must not transition")
	}
}

func TestHandleNotificationDropsMissingProviderPayment(t *testing.T) {
	lookup := &stubLookup{err: pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")}
	svc := newPaymentsService(t, lookup, &stubLifecycle{}, &stubStaleLister{})

	if err := svc.HandleNotification(context.Background(), Notification{Type: "payment", DataID: "404"}); err != nil {
		t.Fatalf("missing provider payment must be dropped, got %v", err)
	}
}

func TestHandleNotificationPropagatesProviderOutage(t *testing.T) {
	lookup := &stubLookup{err: pkgerrors.New(pkgerrors.CodeDependency, "provider unavailable")}
	svc := newPaymentsService(t, lookup, &stubLifecycle{}, &stubStaleLister{})

	err := svc.HandleNotification(context.Background(), Notification{Type: "payment", DataID: "1"})
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
}

func TestReconcileStaleAppliesProviderState(t *testing.T) {
	orderID := uuid.New()
	paymentRef := "777"
	stale := &stubStaleLister{orders: []models.Order{
		{ID: orderID, Status: enums.OrderStatusProcessing, PaymentRef: &paymentRef},
		{ID: uuid.New(), Status: enums.OrderStatusProcessing},
	}}
	payment := approvedPayment(orderID)
	payment.ID = 777
	lifecycle := &stubLifecycle{order: &models.Order{ID: orderID, Status: enums.OrderStatusProcessing}}
	svc := newPaymentsService(t, &stubLookup{payment: payment}, lifecycle, stale)

	reconciled, err := svc.ReconcileStale(context.Background(), time.Hour, 10)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if reconciled != 1 {
		t.Fatalf("expected 1 reconciled order, got %d", reconciled)
	}
	if len(lifecycle.transitions) != 1 || lifecycle.transitions[0].Target != enums.OrderStatusCompleted {
		t.Fatalf("expected completed transition, got %+v", lifecycle.transitions)
	}
}
