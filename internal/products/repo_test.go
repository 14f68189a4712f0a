package products

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

	"github.com/ruralmart/ruralmart-backend/pkg/db/models"
	"github.com/ruralmart/ruralmart-backend/pkg/pagination"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	categories := `
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL,
  price NUMERIC NOT NULL,
  image_url TEXT,
  category_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(categories).Error)
	require.NoError(t, db.Exec(products).Error)
	return db
}

func newCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()

	category := &models.Category{ID: uuid.New(), Name: name}
	require.NoError(t, db.Create(category).Error)
	return category
}

func newProduct(t *testing.T, db *gorm.DB, category *models.Category, name string, price string, created time.Time) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		CategoryID:  category.ID,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestRepositoryListProducts_pagination(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	category := newCategory(t, db, "Seeds "+uuid.NewString())

	now := time.Now().UTC()
	older := newProduct(t, db, category, "Maize Seed "+uuid.NewString(), "120.00", now.Add(-time.Hour))
	newer := newProduct(t, db, category, "Bean Seed "+uuid.NewString(), "95.50", now)

	rows, hasNext, err := repo.ListProducts(context.Background(), pagination.Params{Limit: 1}, ListFilters{CategoryID: &category.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, hasNext)
	assert.Equal(t, newer.ID, rows[0].ID)

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: rows[0].CreatedAt, ID: rows[0].ID})
	second, hasNext, err := repo.ListProducts(context.Background(), pagination.Params{Limit: 1, Cursor: cursor}, ListFilters{CategoryID: &category.ID})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.False(t, hasNext)
	assert.Equal(t, older.ID, second[0].ID)
}

func TestRepositoryListProducts_search(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	category := newCategory(t, db, "Tools "+uuid.NewString())
	marker := uuid.NewString()

	now := time.Now().UTC()
	match := newProduct(t, db, category, "Jembe Hoe "+marker, "850.00", now)
	newProduct(t, db, category, "Panga "+uuid.NewString(), "400.00", now.Add(-time.Minute))

	rows, hasNext, err := repo.ListProducts(context.Background(), pagination.Params{Limit: 10}, ListFilters{
		CategoryID: &category.ID,
		Query:      "jembe " + marker,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, hasNext)
	assert.Equal(t, match.ID, rows[0].ID)
}

func TestRepositoryProductCRUD(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	category := newCategory(t, db, "Inputs "+uuid.NewString())
	product := newProduct(t, db, category, "Fertilizer "+uuid.NewString(), "2500.00", time.Now().UTC())

	loaded, err := repo.FindProductByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.Name, loaded.Name)
	assert.True(t, loaded.Price.Equal(decimal.RequireFromString("2500.00")))

	require.NoError(t, repo.UpdateProduct(context.Background(), product.ID, map[string]any{"price": decimal.RequireFromString("2600.00")}))
	updated, err := repo.FindProductByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("2600.00")))

	require.NoError(t, repo.DeleteProduct(context.Background(), product.ID))
	_, err = repo.FindProductByID(context.Background(), product.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryFindProductsByIDs(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	category := newCategory(t, db, "Feeds "+uuid.NewString())
	now := time.Now().UTC()
	a := newProduct(t, db, category, "Dairy Meal "+uuid.NewString(), "3200.00", now)
	b := newProduct(t, db, category, "Layers Mash "+uuid.NewString(), "2900.00", now)

	rows, err := repo.FindProductsByIDs(context.Background(), []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	none, err := repo.FindProductsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
