package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  producer_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  sales_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestRepositoryIncrementSales(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	product := &models.Product{
		ID:         uuid.New(),
		ProducerID: uuid.New(),
		Title:      "Sample Pack Vol. 1",
		Status:     enums.ProductStatusPublished,
	}
	require.NoError(t, db.Create(product).Error)

	require.NoError(t, repo.IncrementSales(context.Background(), product.ID))
	require.NoError(t, repo.IncrementSales(context.Background(), product.ID))

	found, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.SalesCount)
}

func TestRepositoryListByProducer(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	producerID := uuid.New()
	for _, title := range []string{"Pack A", "Pack B"} {
		require.NoError(t, db.Create(&models.Product{
			ID:         uuid.New(),
			ProducerID: producerID,
			Title:      title,
			Status:     enums.ProductStatusPublished,
		}).Error)
	}
	require.NoError(t, db.Create(&models.Product{
		ID:         uuid.New(),
		ProducerID: uuid.New(),
		Title:      "Other Producer Pack",
		Status:     enums.ProductStatusPublished,
	}).Error)

	list, err := repo.ListByProducer(context.Background(), producerID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
