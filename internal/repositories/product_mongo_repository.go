package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"catalog/internal/models"
	"catalog/internal/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ProductsCollection is the MongoDB collection holding products.
const ProductsCollection = "products"

// productDocument is the stored form of a product.
type productDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Price     float64            `bson:"price"`
	Stock     int                `bson:"stock"`
	Tags      []string           `bson:"tags"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d productDocument) model() models.Product {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.Product{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Price:     d.Price,
		Stock:     d.Stock,
		Tags:      tags,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoProductRepository is a MongoDB implementation of ProductRepository.
type MongoProductRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
	now        func() time.Time
}

// NewMongoProductRepository creates a repository over db.products and makes
// sure the product indexes exist.
func NewMongoProductRepository(ctx context.Context, db *mongo.Database, opTimeout time.Duration) (*MongoProductRepository, error) {
	r := &MongoProductRepository{
		collection: db.Collection(ProductsCollection),
		timeout:    opTimeout,
		// BSON dates have millisecond precision.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	if err := registerSchema(ctx, r.collection); err != nil {
		return nil, err
	}
	return r, nil
}

var (
	schemaMu         sync.Mutex
	registeredSchema = map[string]bool{}
)

// registerSchema creates the product indexes once per collection per process.
func registerSchema(ctx context.Context, coll *mongo.Collection) error {
	key := coll.Database().Name() + "." + coll.Name()

	schemaMu.Lock()
	defer schemaMu.Unlock()
	if registeredSchema[key] {
		return nil
	}

	text := bson.D{}
	for _, f := range models.TextIndexFields {
		text = append(text, bson.E{Key: f, Value: "text"})
	}
	rng := bson.D{}
	for _, f := range models.RangeIndexFields {
		rng = append(rng, bson.E{Key: f, Value: 1})
	}
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: text, Options: options.Index().SetName("products_text")},
		{Keys: rng, Options: options.Index().SetName("products_price_stock")},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	registeredSchema[key] = true
	return nil
}

// Find executes the filtered, sorted and paginated query.
func (r *MongoProductRepository) Find(ctx context.Context, spec query.Spec) ([]models.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	dir := 1
	if spec.Sort.Desc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: spec.Sort.Field, Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(int64(spec.Skip)).
		SetLimit(int64(spec.Limit))

	cursor, err := r.collection.Find(ctx, filterDocument(spec.Filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	products := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.model())
	}
	return products, nil
}

// Count counts documents matching filter.
func (r *MongoProductRepository) Count(ctx context.Context, filter query.Filter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	total, err := r.collection.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

func filterDocument(f query.Filter) bson.M {
	filter := bson.M{}
	if f.Text != "" {
		filter["$text"] = bson.M{"$search": f.Text}
	}
	if f.Tag != "" {
		filter[models.FieldTags] = f.Tag
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter[models.FieldPrice] = price
	}
	return filter
}

// GetByID finds a product by its hex ObjectID.
func (r *MongoProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc productDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, r.notFound(id, err)
	}
	p := doc.model()
	return &p, nil
}

// Create inserts a new product document.
func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := r.now()
	doc := productDocument{
		ID:        primitive.NewObjectID(),
		Name:      product.Name,
		Price:     product.Price,
		Stock:     product.Stock,
		Tags:      product.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	*product = doc.model()
	return nil
}

// Update sets the patched fields and updatedAt, returning the new document.
func (r *MongoProductRepository) Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("product with ID %s not found for update: %w", id, ErrNotFound)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	set := bson.M{models.FieldUpdatedAt: r.now()}
	for k, v := range patch.Fields() {
		set[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDocument
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		return nil, r.notFound(id, err)
	}
	p := doc.model()
	return &p, nil
}

// Delete removes a product and returns the removed document.
func (r *MongoProductRepository) Delete(ctx context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("product with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc productDocument
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, r.notFound(id, err)
	}
	p := doc.model()
	return &p, nil
}

// Ping checks connectivity to the primary.
func (r *MongoProductRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.collection.Database().Client().Ping(ctx, readpref.Primary())
}

func (r *MongoProductRepository) notFound(id string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("mongodb operation on product %s failed: %w", id, err)
}

func (r *MongoProductRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}
