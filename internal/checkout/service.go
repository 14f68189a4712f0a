package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ruralmart/ruralmart-backend/internal/cart"
	"github.com/ruralmart/ruralmart-backend/internal/orders"
	"github.com/ruralmart/ruralmart-backend/pkg/db/models"
	"github.com/ruralmart/ruralmart-backend/pkg/enums"
	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
	"github.com/ruralmart/ruralmart-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts a cart into an order, freezing prices at that moment.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID) (*orders.Response, error)
}

type service struct {
	carts  cart.Repository
	orders orders.Repository
	tx     txRunner
}

// NewService builds the checkout service with the required dependencies.
func NewService(carts cart.Repository, ordersRepo orders.Repository, tx txRunner) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{carts: carts, orders: ordersRepo, tx: tx}, nil
}

// Checkout snapshots each cart line at the current catalog price into order
// items, writes the folded total, and empties the cart. Everything happens in
// one transaction so a failure leaves the cart untouched.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID) (*orders.Response, error) {
	var orderID uuid.UUID

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		userCart, err := cartRepo.FindByUserWithItems(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(userCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		order := &models.Order{
			ID:          uuid.New(),
			UserID:      userID,
			Status:      enums.OrderStatusPending,
			TotalAmount: money.Zero(),
		}

		items := make([]models.OrderItem, 0, len(userCart.Items))
		total := money.Zero()
		for _, line := range userCart.Items {
			if line.Product == nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "cart item missing product")
			}
			lineTotal, err := money.LineTotal(line.Quantity, line.Product.Price)
			if err != nil {
				return err
			}
			items = append(items, models.OrderItem{
				ID:         uuid.New(),
				OrderID:    order.ID,
				ProductID:  line.ProductID,
				Quantity:   line.Quantity,
				UnitPrice:  line.Product.Price,
				TotalPrice: lineTotal,
			})
			total = money.Sum(total, lineTotal)
		}
		order.TotalAmount = total

		if _, err := orderRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		if err := cartRepo.DeleteItemsByCart(ctx, userCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load created order")
	}
	resp := orders.ResponseFromModel(created)
	return &resp, nil
}
