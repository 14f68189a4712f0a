package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ruralmart/ruralmart-backend/internal/products"
	"github.com/ruralmart/ruralmart-backend/pkg/db/models"
	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
)

// Service exposes review operations. A user may hold at most one review per
// product and may only edit or delete their own.
type Service interface {
	CreateReview(ctx context.Context, userID uuid.UUID, input CreateInput) (*Response, error)
	UpdateReview(ctx context.Context, userID, reviewID uuid.UUID, input UpdateInput) (*Response, error)
	DeleteReview(ctx context.Context, userID, reviewID uuid.UUID) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]Response, error)
}

type service struct {
	repo     Repository
	products products.Repository
}

// NewService builds the reviews service with the required dependencies.
func NewService(repo Repository, productsRepo products.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo, products: productsRepo}, nil
}

func (s *service) CreateReview(ctx context.Context, userID uuid.UUID, input CreateInput) (*Response, error) {
	productID, err := uuid.Parse(input.ProductID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	if _, err := s.products.FindProductByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if _, err := s.repo.FindByUserAndProduct(ctx, userID, productID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed by user")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup existing review")
	}

	review := &models.Review{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}
	if _, err := s.repo.Create(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}

	resp := responseFromModel(review)
	return &resp, nil
}

func (s *service) UpdateReview(ctx context.Context, userID, reviewID uuid.UUID, input UpdateInput) (*Response, error) {
	review, err := s.loadOwnedReview(ctx, userID, reviewID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Rating != nil {
		if *input.Rating < 1 || *input.Rating > 5 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
		}
		updates["rating"] = *input.Rating
	}
	if input.Comment != nil {
		updates["comment"] = *input.Comment
	}
	if len(updates) == 0 {
		resp := responseFromModel(review)
		return &resp, nil
	}

	if err := s.repo.Update(ctx, reviewID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
	}

	review, err = s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload review")
	}
	resp := responseFromModel(review)
	return &resp, nil
}

func (s *service) DeleteReview(ctx context.Context, userID, reviewID uuid.UUID) error {
	if _, err := s.loadOwnedReview(ctx, userID, reviewID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
	}
	return nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]Response, error) {
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	out := make([]Response, 0, len(rows))
	for _, row := range rows {
		out = append(out, responseFromModel(&row))
	}
	return out, nil
}

func (s *service) loadOwnedReview(ctx context.Context, userID, reviewID uuid.UUID) (*models.Review, error) {
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	if review.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "review does not belong to user")
	}
	return review, nil
}
