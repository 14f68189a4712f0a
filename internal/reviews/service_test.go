package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ruralmart/ruralmart-backend/internal/products"
	"github.com/ruralmart/ruralmart-backend/pkg/db/models"
	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
)

func setupReviewsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{`
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL,
  price NUMERIC NOT NULL,
  image_url TEXT,
  category_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS reviews (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  rating INTEGER NOT NULL,
  comment TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE(user_id, product_id)
);`}
	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func seedReviewProduct(t *testing.T, conn *gorm.DB) *models.Product {
	t.Helper()

	category := &models.Category{ID: uuid.New(), Name: "Farm Tools"}
	require.NoError(t, conn.Create(category).Error)
	product := &models.Product{
		ID:          uuid.New(),
		Name:        "Jembe " + uuid.NewString()[:8],
		Description: "Hand hoe",
		Price:       decimal.RequireFromString("850.00"),
		CategoryID:  category.ID,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func newReviewsService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(conn), products.NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func TestCreateReviewOnePerUserAndProduct(t *testing.T) {
	conn := setupReviewsTestDB(t)
	svc := newReviewsService(t, conn)
	product := seedReviewProduct(t, conn)
	userID := uuid.New()

	created, err := svc.CreateReview(context.Background(), userID, CreateInput{
		ProductID: product.ID.String(),
		Rating:    4,
		Comment:   "Solid handle, good weight.",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, created.Rating)
	assert.Equal(t, userID, created.UserID)

	// Same user, same product: rejected.
	_, err = svc.CreateReview(context.Background(), userID, CreateInput{
		ProductID: product.ID.String(),
		Rating:    5,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	// Another user may still review it.
	_, err = svc.CreateReview(context.Background(), uuid.New(), CreateInput{
		ProductID: product.ID.String(),
		Rating:    2,
		Comment:   "Bent after a week.",
	})
	require.NoError(t, err)

	listed, err := svc.ListByProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestCreateReviewValidation(t *testing.T) {
	conn := setupReviewsTestDB(t)
	svc := newReviewsService(t, conn)
	product := seedReviewProduct(t, conn)

	_, err := svc.CreateReview(context.Background(), uuid.New(), CreateInput{
		ProductID: product.ID.String(),
		Rating:    6,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateReview(context.Background(), uuid.New(), CreateInput{
		ProductID: uuid.NewString(),
		Rating:    3,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateReviewAuthorOnly(t *testing.T) {
	conn := setupReviewsTestDB(t)
	svc := newReviewsService(t, conn)
	product := seedReviewProduct(t, conn)
	userID := uuid.New()

	created, err := svc.CreateReview(context.Background(), userID, CreateInput{
		ProductID: product.ID.String(),
		Rating:    3,
		Comment:   "Average.",
	})
	require.NoError(t, err)

	rating := 5
	comment := "Changed my mind after the rains."
	updated, err := svc.UpdateReview(context.Background(), userID, created.ID, UpdateInput{
		Rating:  &rating,
		Comment: &comment,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, comment, updated.Comment)

	_, err = svc.UpdateReview(context.Background(), uuid.New(), created.ID, UpdateInput{Rating: &rating})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestDeleteReview(t *testing.T) {
	conn := setupReviewsTestDB(t)
	svc := newReviewsService(t, conn)
	product := seedReviewProduct(t, conn)
	userID := uuid.New()

	created, err := svc.CreateReview(context.Background(), userID, CreateInput{
		ProductID: product.ID.String(),
		Rating:    1,
	})
	require.NoError(t, err)

	err = svc.DeleteReview(context.Background(), uuid.New(), created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, svc.DeleteReview(context.Background(), userID, created.ID))

	err = svc.DeleteReview(context.Background(), userID, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
