package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"catalog/internal/models"
	"catalog/internal/query"

	"github.com/google/uuid"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
type MemoryProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
	now      func() time.Time
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[string]models.Product),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Find returns the requested page of matching products.
func (r *MemoryProductRepository) Find(ctx context.Context, spec query.Spec) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	matched := r.matching(spec.Filter)
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return spec.Sort.Compare(matched[i], matched[j]) < 0
	})

	if spec.Skip >= len(matched) {
		return []models.Product{}, nil
	}
	end := len(matched)
	if spec.Limit > 0 && spec.Skip+spec.Limit < end {
		end = spec.Skip + spec.Limit
	}
	return matched[spec.Skip:end], nil
}

// Count returns the number of matching products.
func (r *MemoryProductRepository) Count(ctx context.Context, filter query.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.matching(filter))), nil
}

// matching must be called with the read lock held.
func (r *MemoryProductRepository) matching(filter query.Filter) []models.Product {
	out := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.Matches(p) {
			out = append(out, clone(p))
		}
	}
	return out
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	product = clone(product)
	return &product, nil
}

// Create adds a new product.
func (r *MemoryProductRepository) Create(ctx context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product.ID = uuid.New().String()
	product.CreatedAt = r.now()
	product.UpdatedAt = product.CreatedAt
	if product.Tags == nil {
		product.Tags = []string{}
	}
	r.products[product.ID] = clone(*product)
	return nil
}

// Update modifies an existing product.
func (r *MemoryProductRepository) Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s not found for update: %w", id, ErrNotFound)
	}
	patch.Apply(&product)
	product.UpdatedAt = r.now()
	r.products[id] = product

	product = clone(product)
	return &product, nil
}

// Delete removes a product by its ID.
func (r *MemoryProductRepository) Delete(ctx context.Context, id string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	delete(r.products, id)
	return &product, nil
}

// Ping always succeeds.
func (r *MemoryProductRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func clone(p models.Product) models.Product {
	p.Tags = append([]string{}, p.Tags...)
	return p
}
