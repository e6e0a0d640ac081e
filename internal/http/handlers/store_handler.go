package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tokoku/internal/services"
)

// StoreHandler serves the storefront-wide data: public settings and running
// flash sales.
type StoreHandler struct {
	Settings  *services.SettingsService
	FlashSale *services.FlashSaleService
}

// GET /api/v1/settings
func (h *StoreHandler) PublicSettings(c *fiber.Ctx) error {
	pub, err := h.Settings.Public(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(pub)
}

// GET /api/v1/flash-sales
func (h *StoreHandler) FlashSales(c *fiber.Ctx) error {
	sales, err := h.FlashSale.Active(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(sales)
}
