package handlers

import (
	"catalog/internal/errs"
	"catalog/internal/models"
	"catalog/internal/query"
	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service: service,
	}
}

// RegisterRoutes registers the product routes. Handlers in guard run before
// the write routes only.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, guard ...fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", chain(guard, h.HandleCreateProduct)...)
	productRoutes.Patch("/:id", chain(guard, h.HandleUpdateProduct)...)
	productRoutes.Delete("/:id", chain(guard, h.HandleDeleteProduct)...)
}

// chain returns guard followed by handler in a slice of its own.
func chain(guard []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(guard)+1)
	return append(append(handlers, guard...), handler)
}

// HandleListProducts lists products matching the query string.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	var params query.Params
	if err := c.QueryParser(&params); err != nil {
		return errs.NewValidationError("Invalid query string", nil)
	}

	spec, err := query.Build(params)
	if err != nil {
		return err
	}

	page, err := h.service.ListProducts(c.UserContext(), spec)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req models.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return errs.NewValidationError("Invalid request body", nil)
	}

	product, err := h.service.CreateProduct(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct applies a partial update to an existing product. A
// request without a body is an empty patch.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var patch models.ProductPatch
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&patch); err != nil {
			return errs.NewValidationError("Invalid request body", nil)
		}
	}

	product, err := h.service.UpdateProduct(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product and returns the deleted record.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	product, err := h.service.DeleteProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(product)
}
