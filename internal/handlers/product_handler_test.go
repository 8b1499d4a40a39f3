package handlers_test

import (
	"net/http"
	"testing"

	"catalog/internal/handlers"
	"catalog/internal/repositories"
	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRoutesKeepsGuardChainsSeparate(t *testing.T) {
	service := services.NewProductService(repositories.NewMemoryProductRepository(), nil, zerolog.Nop())
	a := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(zerolog.Nop())})

	guarded := 0
	guard := make([]fiber.Handler, 1, 8)
	guard[0] = func(c *fiber.Ctx) error {
		guarded++
		return c.Next()
	}
	handlers.NewProductHandler(service).RegisterRoutes(a, guard...)

	created := createProduct(t, a, map[string]interface{}{"name": "Widget", "price": 1})

	status, raw := doRequest(t, a, http.MethodPatch, "/products/"+created.ID, map[string]interface{}{"name": "Gadget"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "Gadget", decode[productJSON](t, raw).Name)

	status, raw = doRequest(t, a, http.MethodDelete, "/products/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, created.ID, decode[productJSON](t, raw).ID)

	status, _ = doRequest(t, a, http.MethodGet, "/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 3, guarded)
}
