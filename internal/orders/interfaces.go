package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox"
	"github.com/lumeplay/lumeplay-backend/pkg/pagination"
)

// Repository persists and queries orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error)
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, updates map[string]any) (int64, error)
	HasActivePurchase(ctx context.Context, buyerID, productID uuid.UUID) (bool, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*OrderList, error)
	ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
	Stats(ctx context.Context, producerID uuid.UUID) (*Stats, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CommissionCreator records the producer's share when an order completes.
type CommissionCreator interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

// Catalog exposes the product lookups order creation needs.
type Catalog interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// SalesCounter bumps a product's sales count when its order completes.
type SalesCounter interface {
	Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error
}

// UserDirectory resolves buyers at order creation.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}
