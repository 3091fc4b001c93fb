package handlers

import (
	"printshop/internal/models"
	"printshop/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler serves the product types, colors and sizes orders are checked against.
type CatalogHandler struct {
	service *services.OrderService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.OrderService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterRoutes registers the catalog routes with the Fiber app.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/catalog", h.HandleGetCatalog)
}

// HandleGetCatalog returns the catalog together with the fixed surcharges.
func (h *CatalogHandler) HandleGetCatalog(c *fiber.Ctx) error {
	catalog := h.service.Catalog()
	return c.JSON(fiber.Map{
		"products":     catalog.Products,
		"colors":       catalog.Colors,
		"sizes":        catalog.Sizes,
		"printingCost": models.PrintingCost,
		"shippingCost": models.ShippingCost,
	})
}
