package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tokoku/internal/cart"
	applog "tokoku/internal/log"
	"tokoku/internal/services"
)

type OrderHandler struct {
	Cart   *services.CartService
	Orders *services.OrderService
}

// POST /api/v1/orders
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var contact cart.CustomerInfo
	if len(c.Body()) > 0 {
		if err := bind(c, &contact); err != nil {
			return err
		}
	}
	o, err := h.Orders.Place(c.UserContext(), sid, userID(c), contact)
	if err != nil {
		applog.Security(c, "order.place.fail", map[string]any{"error": err.Error()})
		return err
	}
	applog.Audit(c, "order.place", map[string]any{
		"order_id": o.ID,
		"total":    o.Total.StringFixed(0),
		"items":    len(o.Items),
	})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// GET /api/v1/orders/:id
func (h *OrderHandler) View(c *fiber.Ctx) error {
	o, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(o)
}

// load fetches an order the caller may see: their own session's or
// account's, or any order for admins. Others get a 404.
func (h *OrderHandler) load(c *fiber.Ctx) (services.OrderView, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return services.OrderView{}, err
	}
	if currentUser(c).IsAdmin() {
		return h.Orders.Get(c.UserContext(), id)
	}
	o, err := h.Orders.GetFor(c.UserContext(), id, userID(c), c.Cookies(sidCookie))
	if err != nil {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": id})
		return services.OrderView{}, err
	}
	return o, nil
}

// GET /api/v1/orders
func (h *OrderHandler) History(c *fiber.Ctx) error {
	uid, sid := userID(c), c.Cookies(sidCookie)
	if uid == "" && sid == "" {
		return c.JSON([]any{})
	}
	orders, err := h.Orders.ListForCustomer(c.UserContext(), uid, sid)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}
