package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "tokoku/internal/log"
	"tokoku/internal/services"
)

type ReturnHandler struct {
	Returns *services.ReturnService
}

// POST /api/v1/returns
func (h *ReturnHandler) Request(c *fiber.Ctx) error {
	var req services.ReturnRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	rt, err := h.Returns.Request(c.UserContext(), userID(c), c.Cookies(sidCookie), req)
	if err != nil {
		return err
	}
	applog.Audit(c, "return.request", map[string]any{"return_id": rt.ID, "order_id": rt.OrderID, "qty": rt.Qty})
	return c.Status(fiber.StatusCreated).JSON(rt)
}

// GET /api/v1/admin/returns?status=
func (h *ReturnHandler) List(c *fiber.Ctx) error {
	list, err := h.Returns.List(c.UserContext(), strings.ToUpper(c.Query("status")))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

// POST /api/v1/admin/returns/:id/approve
func (h *ReturnHandler) Approve(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	rt, err := h.Returns.Approve(c.UserContext(), id)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.return.approve", map[string]any{"return_id": id})
	return c.JSON(rt)
}

// POST /api/v1/admin/returns/:id/reject
func (h *ReturnHandler) Reject(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	rt, err := h.Returns.Reject(c.UserContext(), id)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.return.reject", map[string]any{"return_id": id})
	return c.JSON(rt)
}
