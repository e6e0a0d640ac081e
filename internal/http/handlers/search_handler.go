package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "tokoku/internal/log"
	"tokoku/internal/search"
	"tokoku/internal/services"
	"tokoku/internal/validate"
)

type SearchHandler struct {
	Catalog *services.CatalogService
	Suggest *search.Suggester
}

// GET /api/v1/search?q=&category=&page=
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	rawQ := c.Query("q")
	if strings.TrimSpace(rawQ) == "" {
		return c.JSON(fiber.Map{"q": "", "products": []any{}, "count": 0})
	}
	q, ok := validate.Q(rawQ)
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "q", "value": rawQ})
		return fiber.NewError(fiber.StatusBadRequest, "enter a valid keyword (letters/numbers only)")
	}
	category := strings.TrimSpace(c.Query("category"))
	if category != "" {
		if _, ok := validate.ID(category); !ok {
			applog.Security(c, "validation.fail", map[string]any{"field": "category"})
			return fiber.NewError(fiber.StatusBadRequest, "invalid category")
		}
	}
	products, err := h.Catalog.Search(c.UserContext(), q, category, c.QueryInt("page", 1), 20)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"q": strings.ToLower(q), "category_id": category, "products": products, "count": len(products)})
}

// GET /api/v1/search/suggestions?q=&limit=
func (h *SearchHandler) Suggestions(c *fiber.Ctx) error {
	groups, err := h.Suggest.Suggest(c.UserContext(), c.Query("q"), c.QueryInt("limit", search.DefaultLimit))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"groups": groups})
}
