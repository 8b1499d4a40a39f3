package services

import (
	"context"
	"errors"
	"time"

	"catalog/internal/errs"
	"catalog/internal/models"
	"catalog/internal/query"
	"catalog/internal/repositories"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Routing keys of product lifecycle events.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// ProductEvent is published after every successful mutation.
type ProductEvent struct {
	Type       string         `json:"type"`
	ProductID  string         `json:"productId"`
	OccurredAt time.Time      `json:"occurredAt"`
	Product    models.Product `json:"product"`
}

// EventPublisher delivers events to a message broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Items []models.Product `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo   repositories.ProductRepository
	events EventPublisher
	log    zerolog.Logger
}

// NewProductService creates a new ProductService. events may be nil, in
// which case no events are published.
func NewProductService(repo repositories.ProductRepository, events EventPublisher, log zerolog.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		events: events,
		log:    log.With().Str("component", "product_service").Logger(),
	}
}

// ListProducts runs the page query and the total count concurrently. The two
// reads are independent, so the total may reflect a slightly different state
// than the page under concurrent writes.
func (s *ProductService) ListProducts(ctx context.Context, spec query.Spec) (*ProductPage, error) {
	var (
		items []models.Product
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.Find(gctx, spec)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, spec.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError(err)
	}

	if items == nil {
		items = []models.Product{}
	}
	return &ProductPage{Items: items, Total: total, Page: spec.Page, Limit: spec.Limit}, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return product, nil
}

// CreateProduct validates req, applies defaults and stores the new product.
func (s *ProductService) CreateProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	product := req.Product()
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, storeError(err)
	}
	s.publish(ctx, EventProductCreated, product)
	return product, nil
}

// UpdateProduct validates patch before touching the store, so an invalid
// patch never changes the stored record.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	product, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, storeError(err)
	}
	s.publish(ctx, EventProductUpdated, product)
	return product, nil
}

// DeleteProduct deletes a product and returns its final state.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	s.publish(ctx, EventProductDeleted, product)
	return product, nil
}

// Ready reports whether the product store is reachable.
func (s *ProductService) Ready(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return errs.NewUnavailableError("Product store unavailable", err)
	}
	return nil
}

func (s *ProductService) publish(ctx context.Context, eventType string, product *models.Product) {
	if s.events == nil {
		return
	}
	event := ProductEvent{
		Type:       eventType,
		ProductID:  product.ID,
		OccurredAt: time.Now().UTC(),
		Product:    *product,
	}
	if err := s.events.Publish(ctx, eventType, event); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Str("product_id", product.ID).Msg("failed to publish product event")
	}
}

// storeError maps repository failures onto client-facing errors.
func storeError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return errs.NewNotFoundError("Not found")
	default:
		return errs.NewInternalError(err)
	}
}
