package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ruralmart/ruralmart-backend/internal/products"
	"github.com/ruralmart/ruralmart-backend/pkg/db"
	"github.com/ruralmart/ruralmart-backend/pkg/db/models"
	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
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
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
);`}
	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newCartService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(conn), products.NewRepository(conn), db.NewFromConn(conn))
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, conn *gorm.DB, name, price string) *models.Product {
	t.Helper()

	category := &models.Category{ID: uuid.New(), Name: "Cat " + uuid.NewString()}
	require.NoError(t, conn.Create(category).Error)

	product := &models.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: name,
		Price:       decimal.RequireFromString(price),
		CategoryID:  category.ID,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func TestCartAddItemFoldsLiveTotal(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	userID := uuid.New()

	maize := seedProduct(t, conn, "Maize Seed", "120.00")
	beans := seedProduct(t, conn, "Bean Seed", "95.50")

	view, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: maize.ID.String(), Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "240.00", view.Total.StringFixed(2))

	view, err = svc.AddItem(context.Background(), userID, AddItemInput{ProductID: beans.ID.String(), Quantity: 1})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "335.50", view.Total.StringFixed(2))

	// Same product again tops up the existing line instead of duplicating it.
	view, err = svc.AddItem(context.Background(), userID, AddItemInput{ProductID: maize.ID.String(), Quantity: 1})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "455.50", view.Total.StringFixed(2))
}

func TestCartTotalTwoLines(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	userID := uuid.New()

	hoe := seedProduct(t, conn, "Hand Hoe", "10.00")
	twine := seedProduct(t, conn, "Sisal Twine", "25.00")

	_, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: hoe.ID.String(), Quantity: 3})
	require.NoError(t, err)
	view, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: twine.ID.String(), Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, "55.00", view.Total.StringFixed(2))
}

func TestCartTotalTracksCatalogPriceChanges(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	userID := uuid.New()

	product := seedProduct(t, conn, "Fertilizer", "2500.00")

	view, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID.String(), Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "2500.00", view.Total.StringFixed(2))

	require.NoError(t, conn.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("price", decimal.RequireFromString("2600.00")).Error)

	view, err = svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "2600.00", view.Total.StringFixed(2))
}

func TestCartUpdateAndRemoveItem(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	userID := uuid.New()

	product := seedProduct(t, conn, "Dairy Meal", "3200.00")

	view, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID.String(), Quantity: 1})
	require.NoError(t, err)
	itemID := view.Items[0].ID

	view, err = svc.UpdateItem(context.Background(), userID, itemID, UpdateItemInput{Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "9600.00", view.Total.StringFixed(2))

	view, err = svc.RemoveItem(context.Background(), userID, itemID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, "0.00", view.Total.StringFixed(2))
}

func TestCartItemOwnershipEnforced(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)

	owner := uuid.New()
	intruder := uuid.New()
	product := seedProduct(t, conn, "Panga", "400.00")

	view, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID.String(), Quantity: 1})
	require.NoError(t, err)

	_, err = svc.UpdateItem(context.Background(), intruder, view.Items[0].ID, UpdateItemInput{Quantity: 5})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestCartRejectsUnknownProductAndBadQuantity(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: uuid.NewString(), Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	product := seedProduct(t, conn, "Jembe", "850.00")
	_, err = svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID.String(), Quantity: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
