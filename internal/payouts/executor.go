package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lumeplay/lumeplay-backend/pkg/asaas"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
	"github.com/lumeplay/lumeplay-backend/pkg/metrics"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox/payloads"
)

const manualReviewNote = "transfer provider not configured; settled for manual review"

type transferClient interface {
	CreatePixTransfer(ctx context.Context, params asaas.TransferParams) (*asaas.TransferResult, error)
}

type commissionSettler interface {
	SettleForOrders(ctx context.Context, tx *gorm.DB, orderIDs []uuid.UUID, paymentRef string) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Executor settles a reserved payout batch against the transfer provider.
// The batch is all-or-nothing: every transfer lands COMPLETED or every
// transfer lands FAILED.
type Executor struct {
	repo        Repository
	users       UserDirectory
	tx          txRunner
	commissions commissionSettler
	outbox      outboxPublisher
	client      transferClient
	metrics     *metrics.SettlementMetrics
	logg        *logger.Logger
}

// NewExecutor builds a payout executor. A nil client means the provider is
// not configured; batches then settle as COMPLETED with manual_review set.
// A nil metrics collector disables transfer counting.
func NewExecutor(repo Repository, users UserDirectory, tx txRunner, commissions commissionSettler, publisher outboxPublisher, client transferClient, mtr *metrics.SettlementMetrics, logg *logger.Logger) (*Executor, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if commissions == nil {
		return nil, fmt.Errorf("commission settler required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Executor{
		repo:        repo,
		users:       users,
		tx:          tx,
		commissions: commissions,
		outbox:      publisher,
		client:      client,
		metrics:     mtr,
		logg:        logg,
	}, nil
}

func (e *Executor) ExecuteBatch(ctx context.Context, batchID uuid.UUID) error {
	if batchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	logCtx := e.logg.WithField(ctx, "batch_id", batchID.String())

	transfers, err := e.repo.FindByBatch(logCtx, batchID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout batch")
	}
	if len(transfers) == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payout batch not found")
	}
	for _, transfer := range transfers {
		if transfer.Status != enums.TransferStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout batch already executed")
		}
	}

	producerID := transfers[0].ProducerID
	logCtx = e.logg.WithProducerID(logCtx, producerID.String())

	// Config is read fresh here, not trusted from the reservation snapshot.
	producer, err := e.users.FindByID(logCtx, producerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load producer")
	}
	if !producer.HasPixConfig() {
		return pkgerrors.New(pkgerrors.CodeValidation, "producer pix configuration is incomplete")
	}

	total := decimal.Zero
	orderIDs := make([]uuid.UUID, 0, len(transfers))
	transferIDs := make([]uuid.UUID, 0, len(transfers))
	for _, transfer := range transfers {
		total = total.Add(transfer.Amount)
		orderIDs = append(orderIDs, transfer.OrderID)
		transferIDs = append(transferIDs, transfer.ID)
	}

	rows, err := e.repo.UpdateBatchFrom(logCtx, batchID,
		[]enums.TransferStatus{enums.TransferStatusPending},
		map[string]any{"status": enums.TransferStatusProcessing})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark batch processing")
	}
	if rows != int64(len(transfers)) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payout batch changed while executing")
	}

	if e.client == nil {
		e.logg.Warn(logCtx, "transfer provider not configured, settling batch for manual review")
		return e.settleBatch(logCtx, settleInput{
			batchID:      batchID,
			producerID:   producerID,
			amount:       total,
			orderIDs:     orderIDs,
			transferIDs:  transferIDs,
			manualReview: true,
			note:         manualReviewNote,
		})
	}

	result, err := e.client.CreatePixTransfer(logCtx, asaas.TransferParams{
		Value:             total,
		PixKey:            *producer.PixKey,
		PixKeyType:        *producer.PixKeyType,
		Description:       fmt.Sprintf("Lumeplay payout batch %s", batchID),
		ExternalReference: batchID.String(),
	})
	if err != nil {
		return e.failBatch(logCtx, batchID, err)
	}

	e.logg.Info(e.logg.WithField(logCtx, "provider_id", result.ID), "payout batch transferred")
	return e.settleBatch(logCtx, settleInput{
		batchID:     batchID,
		producerID:  producerID,
		amount:      total,
		orderIDs:    orderIDs,
		transferIDs: transferIDs,
		providerID:  result.ID,
	})
}

type settleInput struct {
	batchID      uuid.UUID
	producerID   uuid.UUID
	amount       decimal.Decimal
	orderIDs     []uuid.UUID
	transferIDs  []uuid.UUID
	providerID   string
	manualReview bool
	note         string
}

func (e *Executor) settleBatch(ctx context.Context, input settleInput) error {
	now := time.Now().UTC()
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)

		updates := map[string]any{
			"status":       enums.TransferStatusCompleted,
			"processed_at": now,
		}
		if input.providerID != "" {
			updates["provider_id"] = input.providerID
		}
		if input.manualReview {
			updates["manual_review"] = true
			updates["error_detail"] = input.note
		}
		if _, err := repo.UpdateBatchFrom(ctx, input.batchID,
			[]enums.TransferStatus{enums.TransferStatusProcessing}, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payout batch")
		}

		paymentRef := input.providerID
		if paymentRef == "" {
			paymentRef = input.batchID.String()
		}
		if err := e.commissions.SettleForOrders(ctx, tx, input.orderIDs, paymentRef); err != nil {
			return err
		}

		return e.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutCompleted,
			AggregateType: enums.AggregatePixTransfer,
			AggregateID:   input.batchID,
			Version:       1,
			Data: payloads.PayoutCompletedEvent{
				BatchID:      input.batchID,
				ProducerID:   input.producerID,
				Amount:       input.amount,
				TransferIDs:  input.transferIDs,
				ManualReview: input.manualReview,
				ProcessedAt:  now,
			},
		})
	})
	if err == nil {
		e.metrics.ObserveTransfer(enums.TransferStatusCompleted.String(), input.amount.Shift(2).IntPart())
	}
	return err
}

// failBatch releases the batch: FAILED transfers drop out of the active
// reservation index, so the orders return to the available pool.
func (e *Executor) failBatch(ctx context.Context, batchID uuid.UUID, cause error) error {
	category := asaas.CategoryOf(cause)
	detail := cause.Error()

	if _, err := e.repo.UpdateBatchFrom(ctx, batchID,
		[]enums.TransferStatus{enums.TransferStatusProcessing},
		map[string]any{
			"status":       enums.TransferStatusFailed,
			"error_detail": detail,
		}); err != nil {
		e.logg.Error(ctx, "failed to release payout batch", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release payout batch")
	}

	e.metrics.ObserveTransfer(enums.TransferStatusFailed.String(), 0)
	e.logg.Error(e.logg.WithField(ctx, "failure_category", string(category)), "payout batch failed", cause)
	return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, userMessageFor(category))
}

// userMessageFor maps provider failure categories onto messages safe to show
// the producer.
func userMessageFor(category asaas.FailureCategory) string {
	switch category {
	case asaas.FailureInvalidKey:
		return "the registered pix key was rejected by the transfer provider"
	case asaas.FailureInsufficientBalance:
		return "the platform account has insufficient balance, try again later"
	case asaas.FailureDailyLimit:
		return "the daily transfer limit was reached, try again tomorrow"
	case asaas.FailureInvalidAmount:
		return "the transfer amount was rejected by the provider"
	default:
		return "the transfer could not be completed, try again later"
	}
}
