package models

import "time"

// JSON field names of a product. They double as the MongoDB document keys.
const (
	FieldID        = "id"
	FieldName      = "name"
	FieldPrice     = "price"
	FieldStock     = "stock"
	FieldTags      = "tags"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// SortableFields lists the fields a product listing may be ordered by.
var SortableFields = []string{FieldName, FieldPrice, FieldStock, FieldCreatedAt, FieldUpdatedAt}

// TextIndexFields are searched by full-text queries.
var TextIndexFields = []string{FieldName}

// RangeIndexFields form the compound index used by price and stock range queries.
var RangeIndexFields = []string{FieldPrice, FieldStock}

// Product represents a product in the catalog.
type Product struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"not null;index" validate:"required"`
	Price     float64   `json:"price" gorm:"not null;index:idx_products_price_stock,priority:1" validate:"gte=0"`
	Stock     int       `json:"stock" gorm:"not null;index:idx_products_price_stock,priority:2" validate:"gte=0"`
	Tags      []string  `json:"tags" gorm:"type:text;serializer:json"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the record against the product schema.
func (p *Product) Validate() error {
	return validateStruct(p)
}

// Column maps a JSON field name to its SQL column.
func Column(field string) string {
	switch field {
	case FieldCreatedAt:
		return "created_at"
	case FieldUpdatedAt:
		return "updated_at"
	default:
		return field
	}
}

// CreateProductRequest is the payload accepted when creating a product.
// Pointers distinguish a missing or null value from a zero value.
type CreateProductRequest struct {
	Name  *string  `json:"name" validate:"required,min=1"`
	Price *float64 `json:"price" validate:"required,gte=0"`
	Stock *int     `json:"stock" validate:"omitnil,gte=0"`
	Tags  []string `json:"tags"`
}

// Validate checks required fields and bounds.
func (r *CreateProductRequest) Validate() error {
	return validateStruct(r)
}

// Product builds a new record from the request, applying schema defaults.
// Identity and timestamps are left for the store to assign.
func (r *CreateProductRequest) Product() *Product {
	p := &Product{Tags: []string{}}
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.Stock != nil {
		p.Stock = *r.Stock
	}
	if r.Tags != nil {
		p.Tags = append(p.Tags, r.Tags...)
	}
	return p
}

// ProductPatch is a partial update. Only these fields are ever written by an
// update; anything else in the request body is dropped while decoding.
type ProductPatch struct {
	Name  *string   `json:"name" validate:"omitnil,min=1"`
	Price *float64  `json:"price" validate:"omitnil,gte=0"`
	Stock *int      `json:"stock" validate:"omitnil,gte=0"`
	Tags  *[]string `json:"tags"`
}

// Validate checks the bounds of the fields present in the patch.
func (p *ProductPatch) Validate() error {
	return validateStruct(p)
}

// IsEmpty reports whether the patch sets no field.
func (p *ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Price == nil && p.Stock == nil && p.Tags == nil
}

// Apply copies the set fields onto product.
func (p *ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	if p.Tags != nil {
		product.Tags = normalizeTags(*p.Tags)
	}
}

// Fields returns the set fields keyed by JSON field name.
func (p *ProductPatch) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, 4)
	if p.Name != nil {
		fields[FieldName] = *p.Name
	}
	if p.Price != nil {
		fields[FieldPrice] = *p.Price
	}
	if p.Stock != nil {
		fields[FieldStock] = *p.Stock
	}
	if p.Tags != nil {
		fields[FieldTags] = normalizeTags(*p.Tags)
	}
	return fields
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return append([]string{}, tags...)
}
