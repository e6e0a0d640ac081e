package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tokoku/internal/services"
)

type ProductHandler struct {
	Catalog *services.CatalogService
	Inv     *services.InventoryService
	Reviews *services.ReviewService
}

// GET /api/v1/products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	p, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if !p.Active {
		return fiber.NewError(fiber.StatusNotFound, "this item is no longer available")
	}
	avail, err := h.Inv.CheckAvailability(ctx, id)
	if err != nil {
		return err
	}
	rv, err := h.Reviews.ForProduct(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"product": p, "availability": avail, "rating": rv.Summary})
}
