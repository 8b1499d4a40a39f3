package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"catalog/internal/models"
	"catalog/internal/query"
	"catalog/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func mustSpec(t *testing.T, params query.Params) query.Spec {
	t.Helper()
	spec, err := query.Build(params)
	require.NoError(t, err)
	return spec
}

func seed(t *testing.T, repo repositories.ProductRepository) []models.Product {
	t.Helper()
	ctx := context.Background()
	products := []models.Product{
		{Name: "Gaming Laptop", Price: 1500, Stock: 3, Tags: []string{"computer", "gear"}},
		{Name: "Office Laptop", Price: 800, Stock: 10, Tags: []string{"computer"}},
		{Name: "Mechanical Keyboard", Price: 120, Stock: 25, Tags: []string{"gear", "input"}},
		{Name: "Wireless Mouse", Price: 25, Stock: 50, Tags: []string{"input"}},
		{Name: "Monitor", Price: 600, Stock: 0, Tags: []string{}},
	}
	for i := range products {
		require.NoError(t, repo.Create(ctx, &products[i]))
		// keep updatedAt strictly increasing in insertion order
		time.Sleep(2 * time.Millisecond)
	}
	return products
}

func names(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

// runContract exercises behaviour every ProductRepository must share.
func runContract(t *testing.T, newRepo func(t *testing.T) repositories.ProductRepository) {
	ctx := context.Background()

	t.Run("CreateAssignsIdentityAndTimestamps", func(t *testing.T) {
		repo := newRepo(t)
		p := &models.Product{ID: "client-id", Name: "Widget", Price: 10}

		require.NoError(t, repo.Create(ctx, p))

		assert.NotEmpty(t, p.ID)
		assert.NotEqual(t, "client-id", p.ID)
		assert.False(t, p.CreatedAt.IsZero())
		assert.False(t, p.UpdatedAt.IsZero())
		assert.Equal(t, []string{}, p.Tags)
	})

	t.Run("GetByIDRoundTrip", func(t *testing.T) {
		repo := newRepo(t)
		p := &models.Product{Name: "Widget", Price: 9.5, Stock: 4, Tags: []string{"a", "b"}}
		require.NoError(t, repo.Create(ctx, p))

		got, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)

		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, p.Name, got.Name)
		assert.Equal(t, p.Price, got.Price)
		assert.Equal(t, p.Stock, got.Stock)
		assert.Equal(t, p.Tags, got.Tags)
		assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("UnknownAndMalformedIDsAreNotFound", func(t *testing.T) {
		repo := newRepo(t)
		for _, id := range []string{"does-not-exist", "65f000000000000000000000", "00000000-0000-0000-0000-000000000000"} {
			_, err := repo.GetByID(ctx, id)
			assert.ErrorIs(t, err, repositories.ErrNotFound, id)
			_, err = repo.Update(ctx, id, models.ProductPatch{Name: strPtr("x")})
			assert.ErrorIs(t, err, repositories.ErrNotFound, id)
			_, err = repo.Delete(ctx, id)
			assert.ErrorIs(t, err, repositories.ErrNotFound, id)
		}
	})

	t.Run("UpdateAppliesPatchAndRefreshesUpdatedAt", func(t *testing.T) {
		repo := newRepo(t)
		p := &models.Product{Name: "Widget", Price: 10, Stock: 1, Tags: []string{"x"}}
		require.NoError(t, repo.Create(ctx, p))
		time.Sleep(5 * time.Millisecond)

		got, err := repo.Update(ctx, p.ID, models.ProductPatch{Name: strPtr("Gadget")})
		require.NoError(t, err)

		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, "Gadget", got.Name)
		assert.Equal(t, 10.0, got.Price)
		assert.Equal(t, 1, got.Stock)
		assert.Equal(t, []string{"x"}, got.Tags)
		assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Millisecond)
		assert.True(t, got.UpdatedAt.After(p.UpdatedAt))

		stored, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Gadget", stored.Name)
	})

	t.Run("EmptyPatchStillTouchesUpdatedAt", func(t *testing.T) {
		repo := newRepo(t)
		p := &models.Product{Name: "Widget", Price: 10}
		require.NoError(t, repo.Create(ctx, p))
		time.Sleep(5 * time.Millisecond)

		got, err := repo.Update(ctx, p.ID, models.ProductPatch{})
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.After(p.UpdatedAt))
	})

	t.Run("DeleteReturnsFinalState", func(t *testing.T) {
		repo := newRepo(t)
		p := &models.Product{Name: "Widget", Price: 10}
		require.NoError(t, repo.Create(ctx, p))

		deleted, err := repo.Delete(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, deleted.ID)
		assert.Equal(t, "Widget", deleted.Name)

		_, err = repo.GetByID(ctx, p.ID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("FindFiltersSortsAndPaginates", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo)

		tests := []struct {
			name   string
			params query.Params
			want   []string
			total  int64
		}{
			{"default sort newest first", query.Params{},
				[]string{"Monitor", "Wireless Mouse", "Mechanical Keyboard", "Office Laptop", "Gaming Laptop"}, 5},
			{"price range", query.Params{MinPrice: "500", MaxPrice: "2000", Sort: "price"},
				[]string{"Monitor", "Office Laptop", "Gaming Laptop"}, 3},
			{"min only", query.Params{MinPrice: "800", Sort: "-price"},
				[]string{"Gaming Laptop", "Office Laptop"}, 2},
			{"max only", query.Params{MaxPrice: "120", Sort: "price"},
				[]string{"Wireless Mouse", "Mechanical Keyboard"}, 2},
			{"tag", query.Params{Tag: "gear", Sort: "name"},
				[]string{"Gaming Laptop", "Mechanical Keyboard"}, 2},
			{"tag is exact", query.Params{Tag: "gea"}, []string{}, 0},
			{"text search", query.Params{Q: "laptop", Sort: "price"},
				[]string{"Office Laptop", "Gaming Laptop"}, 2},
			{"text and tag", query.Params{Q: "laptop", Tag: "gear"},
				[]string{"Gaming Laptop"}, 1},
			{"sort by stock", query.Params{Sort: "stock"},
				[]string{"Monitor", "Gaming Laptop", "Office Laptop", "Mechanical Keyboard", "Wireless Mouse"}, 5},
			{"page two", query.Params{Sort: "price", Page: "2", Limit: "2"},
				[]string{"Monitor", "Office Laptop"}, 5},
			{"last partial page", query.Params{Sort: "price", Page: "3", Limit: "2"},
				[]string{"Gaming Laptop"}, 5},
			{"past the end", query.Params{Page: "9", Limit: "2"}, []string{}, 5},
			{"no match", query.Params{MinPrice: "5000"}, []string{}, 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				spec := mustSpec(t, tt.params)

				items, err := repo.Find(ctx, spec)
				require.NoError(t, err)
				assert.Equal(t, tt.want, names(items))
				assert.NotNil(t, items)

				total, err := repo.Count(ctx, spec.Filter)
				require.NoError(t, err)
				assert.Equal(t, tt.total, total)
			})
		}
	})

	t.Run("PaginationIsStableOnTies", func(t *testing.T) {
		repo := newRepo(t)
		for i := 0; i < 7; i++ {
			require.NoError(t, repo.Create(ctx, &models.Product{Name: fmt.Sprintf("Item %d", i), Price: 5}))
		}

		seen := map[string]bool{}
		for page := 1; page <= 4; page++ {
			items, err := repo.Find(ctx, mustSpec(t, query.Params{Sort: "price", Page: fmt.Sprint(page), Limit: "2"}))
			require.NoError(t, err)
			for _, it := range items {
				assert.False(t, seen[it.ID], "product %s returned twice", it.ID)
				seen[it.ID] = true
			}
		}
		assert.Len(t, seen, 7)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(ctx))
	})
}

func TestMemoryProductRepository(t *testing.T) {
	runContract(t, func(t *testing.T) repositories.ProductRepository {
		return repositories.NewMemoryProductRepository()
	})
}

func TestMemoryProductRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryProductRepository()
	p := &models.Product{Name: "Widget", Price: 1, Tags: []string{"a"}}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	got.Tags[0] = "mutated"
	got.Name = "mutated"

	again, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", again.Name)
	assert.Equal(t, []string{"a"}, again.Tags)
}

func TestMemoryProductRepository_FindHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repositories.NewMemoryProductRepository().Find(ctx, query.Spec{Limit: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryProductRepository_PriceFilterBoundaries(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryProductRepository()
	for _, price := range []float64{499.99, 500, 1000, 2000, 2000.01} {
		require.NoError(t, repo.Create(ctx, &models.Product{Name: "p", Price: price}))
	}

	items, err := repo.Find(ctx, query.Spec{
		Filter: query.Filter{MinPrice: floatPtr(500), MaxPrice: floatPtr(2000)},
		Sort:   query.Sort{Field: models.FieldPrice},
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, it := range items {
		assert.GreaterOrEqual(t, it.Price, 500.0)
		assert.LessOrEqual(t, it.Price, 2000.0)
	}
}
