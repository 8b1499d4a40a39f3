package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"catalog/internal/models"
	"catalog/internal/query"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
// The products table must already be migrated, see database.OpenGORM.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// Find retrieves one page of matching products from the database.
func (r *GORMProductRepository) Find(ctx context.Context, spec query.Spec) ([]models.Product, error) {
	column := models.Column(spec.Sort.Field)
	products := []models.Product{}
	err := r.filtered(ctx, spec.Filter).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: spec.Sort.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: spec.Sort.Desc}).
		Offset(spec.Skip).
		Limit(spec.Limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	return products, nil
}

// Count counts the matching products.
func (r *GORMProductRepository) Count(ctx context.Context, filter query.Filter) (int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

func (r *GORMProductRepository) filtered(ctx context.Context, filter query.Filter) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&models.Product{})

	if terms := filter.Terms(); len(terms) > 0 {
		or := r.db.Where("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(terms[0])+"%")
		for _, term := range terms[1:] {
			or = or.Or("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(term)+"%")
		}
		tx = tx.Where(or)
	}
	if filter.Tag != "" {
		// tags are stored as a JSON array; match the encoded element.
		encoded, _ := json.Marshal(filter.Tag)
		tx = tx.Where("tags LIKE ? ESCAPE '\\'", "%"+escapeLike(string(encoded))+"%")
	}
	if filter.MinPrice != nil {
		tx = tx.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		tx = tx.Where("price <= ?", *filter.MaxPrice)
	}
	return tx
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	product.ID = uuid.New().String()
	if product.Tags == nil {
		product.Tags = []string{}
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update applies patch inside a transaction and returns the updated row.
func (r *GORMProductRepository) Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("product with ID %s not found for update: %w", id, ErrNotFound)
	}
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, "id = ?", id).Error; err != nil {
			return err
		}
		patch.Apply(&product)
		// Save writes every column and refreshes updated_at.
		return tx.Save(&product).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s not found for update: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &product, nil
}

// Delete deletes a product by its ID and returns the removed row.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) (*models.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("product with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, "id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s not found for deletion: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return &product, nil
}

// Ping checks the underlying connection pool.
func (r *GORMProductRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
