package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "tokoku/internal/log"
	"tokoku/internal/services"
)

type WishlistHandler struct {
	Wish *services.WishlistService
}

// GET /api/v1/wishlist
func (h *WishlistHandler) List(c *fiber.Ctx) error {
	items, err := h.Wish.List(c.UserContext(), ensureSID(c))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

// PUT /api/v1/wishlist/:id
func (h *WishlistHandler) Save(c *fiber.Ctx) error {
	sid := ensureSID(c)
	pid, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Wish.Save(c.UserContext(), sid, pid); err != nil {
		return err
	}
	applog.Audit(c, "wishlist.save", map[string]any{"product": pid})
	return c.SendStatus(fiber.StatusNoContent)
}

// DELETE /api/v1/wishlist/:id
func (h *WishlistHandler) Unsave(c *fiber.Ctx) error {
	sid := ensureSID(c)
	pid, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Wish.Unsave(c.UserContext(), sid, pid); err != nil {
		return err
	}
	applog.Audit(c, "wishlist.unsave", map[string]any{"product": pid})
	return c.SendStatus(fiber.StatusNoContent)
}
