package checkout

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

	"github.com/ruralmart/ruralmart-backend/internal/cart"
	"github.com/ruralmart/ruralmart-backend/internal/orders"
	"github.com/ruralmart/ruralmart-backend/pkg/db"
	"github.com/ruralmart/ruralmart-backend/pkg/db/models"
	"github.com/ruralmart/ruralmart-backend/pkg/enums"
	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
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
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  total_amount NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  total_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newCheckoutService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(cart.NewRepository(conn), orders.NewRepository(conn), db.NewFromConn(conn))
	require.NoError(t, err)
	return svc
}

func seedCartWithItems(t *testing.T, conn *gorm.DB, userID uuid.UUID, lines map[string]int) *models.Cart {
	t.Helper()

	category := &models.Category{ID: uuid.New(), Name: "Cat " + uuid.NewString()}
	require.NoError(t, conn.Create(category).Error)

	userCart := &models.Cart{ID: uuid.New(), UserID: &userID, CreatedAt: time.Now().UTC()}
	require.NoError(t, conn.Create(userCart).Error)

	for price, qty := range lines {
		product := &models.Product{
			ID:          uuid.New(),
			Name:        "Product " + uuid.NewString(),
			Description: "test",
			Price:       decimal.RequireFromString(price),
			CategoryID:  category.ID,
			CreatedAt:   time.Now().UTC(),
		}
		require.NoError(t, conn.Create(product).Error)
		require.NoError(t, conn.Create(&models.CartItem{
			ID:        uuid.New(),
			CartID:    userCart.ID,
			ProductID: product.ID,
			Quantity:  qty,
			CreatedAt: time.Now().UTC(),
		}).Error)
	}
	return userCart
}

func TestCheckoutFreezesPricesAndEmptiesCart(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)
	userID := uuid.New()

	seedCartWithItems(t, conn, userID, map[string]int{
		"120.00": 2,
		"95.50":  1,
	})

	resp, err := svc.Checkout(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, resp.Status)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "335.50", resp.TotalAmount.StringFixed(2))

	// Items carry the frozen price and precomputed line totals.
	sum := decimal.Zero
	for _, item := range resp.Items {
		sum = sum.Add(item.TotalPrice)
	}
	assert.True(t, sum.Equal(resp.TotalAmount))

	// The cart is emptied in the same transaction.
	var remaining int64
	require.NoError(t, conn.Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", userID).
		Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)
	userID := uuid.New()

	// No cart at all.
	_, err := svc.Checkout(context.Background(), userID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	// A cart with zero items.
	seedCartWithItems(t, conn, userID, nil)
	_, err = svc.Checkout(context.Background(), userID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCheckoutSnapshotSurvivesLaterCatalogChanges(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)
	userID := uuid.New()

	seedCartWithItems(t, conn, userID, map[string]int{"2500.00": 1})

	resp, err := svc.Checkout(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "2500.00", resp.TotalAmount.StringFixed(2))

	require.NoError(t, conn.Model(&models.Product{}).
		Where("id = ?", resp.Items[0].ProductID).
		Update("price", decimal.RequireFromString("9999.00")).Error)

	reloaded, err := orders.NewRepository(conn).FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "2500.00", reloaded.TotalAmount.StringFixed(2))
	assert.Equal(t, "2500.00", reloaded.Items[0].UnitPrice.StringFixed(2))
}
