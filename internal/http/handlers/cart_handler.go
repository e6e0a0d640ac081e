package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tokoku/internal/cart"
	applog "tokoku/internal/log"
	"tokoku/internal/services"
	"tokoku/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type qtyReq struct {
	Qty int `json:"qty"`
}

// GET /api/v1/cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(c.UserContext(), ensureSID(c))
	if err != nil {
		return err
	}
	return c.JSON(cv)
}

// POST /api/v1/cart/items
func (h *CartHandler) Add(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var req addItemReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, ok := validate.ID(req.ProductID); !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "product_id"})
		return fiber.NewError(fiber.StatusBadRequest, "missing product_id")
	}
	if req.Qty == 0 {
		req.Qty = 1
	}
	cv, err := h.Cart.Add(c.UserContext(), sid, req.ProductID, req.Qty)
	if err != nil {
		return err
	}
	return c.JSON(cv)
}

// PATCH /api/v1/cart/items/:id
func (h *CartHandler) Update(c *fiber.Ctx) error {
	sid := ensureSID(c)
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req qtyReq
	if err := bind(c, &req); err != nil {
		return err
	}
	cv, err := h.Cart.UpdateQuantity(c.UserContext(), sid, id, req.Qty)
	if err != nil {
		return err
	}
	return c.JSON(cv)
}

// DELETE /api/v1/cart/items/:id
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	sid := ensureSID(c)
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	cv, err := h.Cart.Remove(c.UserContext(), sid, id)
	if err != nil {
		return err
	}
	return c.JSON(cv)
}

// DELETE /api/v1/cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	cv, err := h.Cart.Clear(c.UserContext(), ensureSID(c))
	if err != nil {
		return err
	}
	return c.JSON(cv)
}

// PUT /api/v1/cart/customer
func (h *CartHandler) Customer(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var patch cart.CustomerInfo
	if err := bind(c, &patch); err != nil {
		return err
	}
	cv, err := h.Cart.SetCustomer(c.UserContext(), sid, patch)
	if err != nil {
		return err
	}
	return c.JSON(cv)
}
