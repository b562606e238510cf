package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/lumeplay/lumeplay-backend/pkg/logger"
)

const (
	defaultStaleAfter    = 30 * time.Minute
	defaultReconcileSize = 100
)

type ReconcileJobParams struct {
	Logger     *logger.Logger
	Payments   staleReconciler
	StaleAfter time.Duration
	BatchSize  int
}

type staleReconciler interface {
	ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// NewReconcileJob builds the job that re-checks orders stuck in PROCESSING
// against the payment provider.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultReconcileSize
	}
	return &reconcileJob{
		logg:       params.Logger,
		payments:   params.Payments,
		staleAfter: staleAfter,
		batchSize:  batchSize,
	}, nil
}

type reconcileJob struct {
	logg       *logger.Logger
	payments   staleReconciler
	staleAfter time.Duration
	batchSize  int
}

func (j *reconcileJob) Name() string { return "stale-payment-reconcile" }

func (j *reconcileJob) Run(ctx context.Context) error {
	reconciled, err := j.payments.ReconcileStale(ctx, j.staleAfter, j.batchSize)
	if err != nil {
		return fmt.Errorf("reconcile stale payments: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stale_after": j.staleAfter.String(),
		"batch_size":  j.batchSize,
		"reconciled":  reconciled,
	})
	j.logg.Info(logCtx, "stale payment reconcile complete")
	return nil
}
