package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "tokoku/internal/log"
	"tokoku/internal/services"
	"tokoku/internal/validate"
)

type CategoryHandler struct {
	Catalog *services.CatalogService
}

// idParam reads and validates a path id. Malformed ids look like missing
// resources to the caller.
func idParam(c *fiber.Ctx, name string) (string, error) {
	id, ok := validate.ID(c.Params(name))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": name})
		return "", fiber.NewError(fiber.StatusNotFound, name+" not found")
	}
	return id, nil
}

// GET /api/v1/categories
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	cats, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

// GET /api/v1/categories/:id
func (h *CategoryHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	cat, err := h.Catalog.GetCategory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(cat)
}

// GET /api/v1/categories/:id/products?page=&size=
func (h *CategoryHandler) Products(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	page := c.QueryInt("page", 1)
	size := c.QueryInt("size", 12)
	products, err := h.Catalog.ListProductsByCategory(c.UserContext(), id, page, size)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"category_id": id, "page": page, "products": products})
}
