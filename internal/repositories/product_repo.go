package repositories

import (
	"context"
	"errors"

	"catalog/internal/models"
	"catalog/internal/query"
)

// ErrNotFound is returned when an id does not resolve to a stored product,
// including ids that are not well-formed for the store.
var ErrNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	// Find returns one page of products matching spec.Filter ordered by spec.Sort.
	Find(ctx context.Context, spec query.Spec) ([]models.Product, error)
	// Count returns the number of products matching filter, ignoring pagination.
	Count(ctx context.Context, filter query.Filter) (int64, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// Create assigns the id and both timestamps, then stores product.
	Create(ctx context.Context, product *models.Product) error
	// Update applies patch, refreshes updatedAt and returns the stored result.
	Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error)
	// Delete removes the product and returns its final state.
	Delete(ctx context.Context, id string) (*models.Product, error)
	Ping(ctx context.Context) error
}
