package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ruralmart/ruralmart-backend/internal/products"
	"github.com/ruralmart/ruralmart-backend/pkg/db/models"
	"github.com/ruralmart/ruralmart-backend/pkg/enums"
	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
	"github.com/ruralmart/ruralmart-backend/pkg/money"
	"github.com/ruralmart/ruralmart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes order reads and the item mutations that keep the order
// total consistent with its items.
type Service interface {
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*Response, error)
	ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error)
	AddItem(ctx context.Context, userID, orderID uuid.UUID, input AddItemInput) (*Response, error)
	UpdateItem(ctx context.Context, userID, orderID, itemID uuid.UUID, input UpdateItemInput) (*Response, error)
	RemoveItem(ctx context.Context, userID, orderID, itemID uuid.UUID) (*Response, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*Response, error)
}

type service struct {
	repo     Repository
	products products.Repository
	tx       txRunner
}

// NewService builds the orders service with the required dependencies.
func NewService(repo Repository, productsRepo products.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: productsRepo, tx: tx}, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*Response, error) {
	order, err := s.loadOwnedOrder(ctx, s.repo, userID, orderID)
	if err != nil {
		return nil, err
	}
	resp := ResponseFromModel(order)
	return &resp, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error) {
	rows, hasNext, err := s.repo.ListByUser(ctx, userID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	list := &List{Orders: make([]Response, 0, len(rows))}
	for i := range rows {
		list.Orders = append(list.Orders, ResponseFromModel(&rows[i]))
	}
	if hasNext && len(rows) > 0 {
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func (s *service) AddItem(ctx context.Context, userID, orderID uuid.UUID, input AddItemInput) (*Response, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	productID, err := uuid.Parse(input.ProductID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}

	product, err := s.products.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadMutableOrder(ctx, repo, userID, orderID)
		if err != nil {
			return err
		}

		existing, err := repo.FindItemByOrderAndProduct(ctx, order.ID, productID)
		if err == nil {
			quantity := existing.Quantity + input.Quantity
			total, err := money.LineTotal(quantity, existing.UnitPrice)
			if err != nil {
				return err
			}
			if err := repo.UpdateItem(ctx, existing.ID, map[string]any{
				"quantity":    quantity,
				"total_price": total,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item")
			}
			return s.recomputeTotal(ctx, repo, order.ID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}

		// New line: snapshot the live catalog price once.
		lineTotal, err := money.LineTotal(input.Quantity, product.Price)
		if err != nil {
			return err
		}
		item := models.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			ProductID:  productID,
			Quantity:   input.Quantity,
			UnitPrice:  product.Price,
			TotalPrice: lineTotal,
		}
		if err := repo.CreateItems(ctx, []models.OrderItem{item}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
		}
		return s.recomputeTotal(ctx, repo, order.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, userID, orderID)
}

func (s *service) UpdateItem(ctx context.Context, userID, orderID, itemID uuid.UUID, input UpdateItemInput) (*Response, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadMutableOrder(ctx, repo, userID, orderID)
		if err != nil {
			return err
		}

		item, err := s.loadOrderItem(ctx, repo, order.ID, itemID)
		if err != nil {
			return err
		}

		// Quantity changes reprice against the frozen unit price, never the
		// current catalog price.
		total, err := money.LineTotal(input.Quantity, item.UnitPrice)
		if err != nil {
			return err
		}
		if err := repo.UpdateItem(ctx, item.ID, map[string]any{
			"quantity":    input.Quantity,
			"total_price": total,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item")
		}
		return s.recomputeTotal(ctx, repo, order.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, userID, orderID)
}

func (s *service) RemoveItem(ctx context.Context, userID, orderID, itemID uuid.UUID) (*Response, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadMutableOrder(ctx, repo, userID, orderID)
		if err != nil {
			return err
		}

		item, err := s.loadOrderItem(ctx, repo, order.ID, itemID)
		if err != nil {
			return err
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order item")
		}
		return s.recomputeTotal(ctx, repo, order.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, userID, orderID)
}

func (s *service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*Response, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOwnedOrder(ctx, repo, userID, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case enums.OrderStatusCancelled:
			return nil
		case enums.OrderStatusPending, enums.OrderStatusProcessing:
			return repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled)
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %s cannot be cancelled", order.Status))
		}
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, userID, orderID)
}

// recomputeTotal rewrites the order total as the sum of its items' totals.
// Callers must run it inside the same transaction as the item mutation.
func (s *service) recomputeTotal(ctx context.Context, repo Repository, orderID uuid.UUID) error {
	items, err := repo.FindItemsByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}

	total := money.Zero()
	for _, item := range items {
		total = money.Sum(total, item.TotalPrice)
	}
	if err := repo.UpdateTotal(ctx, orderID, total); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order total")
	}
	return nil
}

func (s *service) loadOwnedOrder(ctx context.Context, repo Repository, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) loadMutableOrder(ctx context.Context, repo Repository, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOwnedOrder(ctx, repo, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %s cannot be modified", order.Status))
	}
	return order, nil
}

func (s *service) loadOrderItem(ctx context.Context, repo Repository, orderID, itemID uuid.UUID) (*models.OrderItem, error) {
	item, err := repo.FindItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
	}
	if item.OrderID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
	}
	return item, nil
}

// ResponseFromModel maps an order row (with items) to its API shape.
func ResponseFromModel(order *models.Order) Response {
	resp := Response{
		ID:          order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Items:       make([]ItemResponse, 0, len(order.Items)),
		CreatedAt:   order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, ItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return resp
}
