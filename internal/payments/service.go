package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumeplay/lumeplay-backend/internal/orders"
	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
	"github.com/lumeplay/lumeplay-backend/pkg/mercadopago"
)

// Notification is the provider webhook body reduced to what the processor
// acts on.
type Notification struct {
	Type   string
	DataID string
}

type paymentLookup interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type orderLifecycle interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Transition(ctx context.Context, input orders.TransitionInput) error
}

type staleOrderLister interface {
	ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
}

// Service turns provider payment notifications into order transitions.
type Service interface {
	HandleNotification(ctx context.Context, notification Notification) error
	ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type service struct {
	lookup paymentLookup
	orders orderLifecycle
	stale  staleOrderLister
	logg   *logger.Logger
}

// NewService builds a payments service with the required dependencies.
func NewService(lookup paymentLookup, orderSvc orderLifecycle, stale staleOrderLister, logg *logger.Logger) (Service, error) {
	if lookup == nil {
		return nil, fmt.Errorf("payment lookup required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order lifecycle required")
	}
	if stale == nil {
		return nil, fmt.Errorf("stale order lister required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		lookup: lookup,
		orders: orderSvc,
		stale:  stale,
		logg:   logg,
	}, nil
}

// HandleNotification resolves the authoritative payment state from the
// provider and applies the mapped transition. Notifications that reference
// nothing actionable are logged and dropped, never failed.
func (s *service) HandleNotification(ctx context.Context, notification Notification) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"notification_type": notification.Type,
		"payment_id":        notification.DataID,
	})

	if !strings.EqualFold(notification.Type, "payment") {
		s.logg.Info(logCtx, "skipping non-payment notification")
		return nil
	}
	if strings.TrimSpace(notification.DataID) == "" {
		s.logg.Warn(logCtx, "payment notification missing data id")
		return nil
	}

	payment, err := s.lookup.GetPayment(ctx, notification.DataID)
	if err != nil {
		if domainErr := pkgerrors.As(err); domainErr != nil && domainErr.Code() == pkgerrors.CodeNotFound {
			s.logg.Warn(logCtx, "provider has no payment for notification")
			return nil
		}
		return err
	}

	return s.applyPayment(logCtx, payment)
}

func (s *service) applyPayment(ctx context.Context, payment *mercadopago.Payment) error {
	orderID, err := uuid.Parse(strings.TrimSpace(payment.ExternalReference))
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "external_reference", payment.ExternalReference),
			"payment carries no resolvable order reference")
		return nil
	}
	logCtx := s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.orders.Get(logCtx, orderID)
	if err != nil {
		if domainErr := pkgerrors.As(err); domainErr != nil && domainErr.Code() == pkgerrors.CodeNotFound {
			s.logg.Warn(logCtx, "payment references unknown order")
			return nil
		}
		return err
	}

	target, ok := targetForProviderStatus(payment.Status)
	if !ok {
		s.logg.Warn(s.logg.WithField(logCtx, "provider_status", payment.Status),
			"ignoring unknown provider payment status")
		return nil
	}

	paymentRef := fmt.Sprintf("%d", payment.ID)
	providerStatus := payment.Status
	input := orders.TransitionInput{
		OrderID:       order.ID,
		Target:        target,
		PaymentRef:    &paymentRef,
		PaymentStatus: &providerStatus,
	}
	if target == enums.OrderStatusCancelled {
		reason := payment.StatusDetail
		if reason == "" {
			reason = payment.Status
		}
		input.Reason = &reason
	}

	if err := s.orders.Transition(logCtx, input); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(logCtx, "status", target.String()), "payment notification applied")
	return nil
}

// ReconcileStale re-queries the provider for orders stuck in PROCESSING and
// applies whatever state the provider reports now.
func (s *service) ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	stale, err := s.stale.ListStaleProcessing(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale orders")
	}

	reconciled := 0
	for _, order := range stale {
		if order.PaymentRef == nil {
			continue
		}
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		payment, err := s.lookup.GetPayment(logCtx, *order.PaymentRef)
		if err != nil {
			s.logg.Error(logCtx, "stale payment lookup failed", err)
			continue
		}
		if err := s.applyPayment(logCtx, payment); err != nil {
			s.logg.Error(logCtx, "stale payment reconciliation failed", err)
			continue
		}
		reconciled++
	}
	return reconciled, nil
}

func targetForProviderStatus(status string) (enums.OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved":
		return enums.OrderStatusCompleted, true
	case "pending", "in_process":
		return enums.OrderStatusProcessing, true
	case "rejected", "cancelled":
		return enums.OrderStatusCancelled, true
	case "refunded", "charged_back":
		return enums.OrderStatusRefunded, true
	default:
		return "", false
	}
}
