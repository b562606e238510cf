package commissions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
)

func setupCommissionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS commissions (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  producer_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_ref TEXT,
  failure_reason TEXT,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_commissions_order_id ON commissions (order_id);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newCommissionsService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	db := setupCommissionsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func productOrder(producerAmount string) *models.Order {
	producerID := uuid.New()
	return &models.Order{
		ID:             uuid.New(),
		BuyerID:        uuid.New(),
		ProducerID:     &producerID,
		PurchaseType:   enums.PurchaseTypeProduct,
		Amount:         decimal.RequireFromString("100.00"),
		ProducerAmount: decimal.RequireFromString(producerAmount),
		Status:         enums.OrderStatusCompleted,
	}
}

func TestCreateForOrderIsIdempotent(t *testing.T) {
	svc, db := newCommissionsService(t)
	order := productOrder("97.00")

	require.NoError(t, svc.CreateForOrder(context.Background(), db, order))
	require.NoError(t, svc.CreateForOrder(context.Background(), db, order))

	var count int64
	require.NoError(t, db.Model(&models.Commission{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var commission models.Commission
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&commission).Error)
	// The id is assigned in the service so the row is addressable on any
	// backing store, not only ones with a column default.
	assert.NotEqual(t, uuid.Nil, commission.ID)
	assert.Equal(t, enums.CommissionStatusPending, commission.Status)
	assert.Equal(t, "97.00", commission.Amount.StringFixed(2))
}

func TestCreateForOrderSkipsOrdersWithoutProducer(t *testing.T) {
	svc, db := newCommissionsService(t)
	order := productOrder("97.00")
	order.ProducerID = nil

	require.NoError(t, svc.CreateForOrder(context.Background(), db, order))

	var count int64
	require.NoError(t, db.Model(&models.Commission{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestMarkProcessingRequiresPending(t *testing.T) {
	svc, db := newCommissionsService(t)
	order := productOrder("50.00")
	require.NoError(t, svc.CreateForOrder(context.Background(), db, order))

	var commission models.Commission
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&commission).Error)

	require.NoError(t, svc.MarkProcessing(context.Background(), commission.ID))
	// Repeating lands on the current status and stays a no-op.
	require.NoError(t, svc.MarkProcessing(context.Background(), commission.ID))

	require.NoError(t, svc.MarkPaid(context.Background(), commission.ID, "transfer-1"))

	err := svc.MarkProcessing(context.Background(), commission.ID)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, domainErr.Code())
}

func TestMarkPaidAllowedFromFailed(t *testing.T) {
	svc, db := newCommissionsService(t)
	order := productOrder("80.00")
	require.NoError(t, svc.CreateForOrder(context.Background(), db, order))

	var commission models.Commission
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&commission).Error)

	require.NoError(t, svc.MarkFailed(context.Background(), commission.ID, "provider rejected key"))
	require.NoError(t, svc.MarkPaid(context.Background(), commission.ID, "manual-settlement"))

	require.NoError(t, db.Where("id = ?", commission.ID).First(&commission).Error)
	assert.Equal(t, enums.CommissionStatusPaid, commission.Status)
	require.NotNil(t, commission.PaymentRef)
	assert.Equal(t, "manual-settlement", *commission.PaymentRef)
	assert.NotNil(t, commission.PaidAt)
}

func TestSettleForOrdersMarksWholeBatch(t *testing.T) {
	svc, db := newCommissionsService(t)

	first := productOrder("40.00")
	second := productOrder("60.00")
	require.NoError(t, svc.CreateForOrder(context.Background(), db, first))
	require.NoError(t, svc.CreateForOrder(context.Background(), db, second))

	// A commission already paid out of band must not be re-stamped.
	var prePaid models.Commission
	require.NoError(t, db.Where("order_id = ?", first.ID).First(&prePaid).Error)
	require.NoError(t, svc.MarkPaid(context.Background(), prePaid.ID, "manual"))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.SettleForOrders(context.Background(), tx, []uuid.UUID{first.ID, second.ID}, "batch-ref")
	}))

	var rows []models.Commission
	require.NoError(t, db.Order("amount ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, enums.CommissionStatusPaid, row.Status)
	}
	require.NotNil(t, rows[0].PaymentRef)
	assert.Equal(t, "manual", *rows[0].PaymentRef)
	require.NotNil(t, rows[1].PaymentRef)
	assert.Equal(t, "batch-ref", *rows[1].PaymentRef)
}

func TestProducerSummaryTotals(t *testing.T) {
	svc, db := newCommissionsService(t)
	producerID := uuid.New()

	seed := func(amount string, status enums.CommissionStatus) {
		require.NoError(t, db.Create(&models.Commission{
			ID:         uuid.New(),
			OrderID:    uuid.New(),
			ProducerID: producerID,
			Amount:     decimal.RequireFromString(amount),
			Status:     status,
		}).Error)
	}
	seed("10.00", enums.CommissionStatusPending)
	seed("20.00", enums.CommissionStatusPaid)
	seed("30.00", enums.CommissionStatusPaid)
	seed("5.00", enums.CommissionStatusFailed)

	summary, err := svc.ProducerSummary(context.Background(), producerID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Pending.Count)
	assert.Equal(t, int64(2), summary.Paid.Count)
	assert.Equal(t, "50.00", summary.Paid.Amount.StringFixed(2))
	assert.Equal(t, "50.00", summary.TotalEarned.StringFixed(2))
	assert.Equal(t, int64(1), summary.Failed.Count)
}
