package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "tokoku/internal/log"
	"tokoku/internal/services"
	"tokoku/internal/validate"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

// GET /api/v1/availability?productId=
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	productID := strings.TrimSpace(c.Query("productId"))
	if productID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing productId")
	}
	if _, ok := validate.ID(productID); !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return fiber.NewError(fiber.StatusBadRequest, "invalid productId")
	}
	avail, err := h.Inv.CheckAvailability(c.UserContext(), productID)
	if err != nil {
		return err
	}
	return c.JSON(avail)
}

type adjustReq struct {
	Delta int    `json:"delta"`
	Note  string `json:"note"`
}

// POST /api/v1/admin/products/:id/stock
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req adjustReq
	if err := bind(c, &req); err != nil {
		return err
	}
	avail, err := h.Inv.Adjust(c.UserContext(), id, req.Delta, req.Note)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.stock.adjust", map[string]any{"product": id, "delta": req.Delta, "note": req.Note})
	return c.JSON(avail)
}

// GET /api/v1/admin/products/:id/movements
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	moves, err := h.Inv.Movements(c.UserContext(), id, c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return c.JSON(moves)
}

// GET /api/v1/admin/stock/low
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	products, err := h.Inv.LowStock(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}
