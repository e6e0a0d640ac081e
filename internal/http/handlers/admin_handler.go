package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"tokoku/internal/domain"
	applog "tokoku/internal/log"
	"tokoku/internal/services"
)

type AdminHandler struct {
	Catalog   *services.CatalogService
	Inv       *services.InventoryService
	Orders    *services.OrderService
	Returns   *services.ReturnService
	Settings  *services.SettingsService
	Auth      *services.AuthService
	FlashSale *services.FlashSaleService
}

type productReq struct {
	ID          string           `json:"id"`
	CategoryID  string           `json:"category_id"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"image_url"`
}

// apply overlays the fields present in the request on p.
func (r productReq) apply(p domain.Product) domain.Product {
	if r.CategoryID != "" {
		p.CategoryID = r.CategoryID
	}
	if r.Name != "" {
		p.Name = r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.ImageURL != nil {
		p.ImageURL = *r.ImageURL
	}
	return p
}

// GET /api/v1/admin/products
func (h *AdminHandler) Products(c *fiber.Ctx) error {
	products, err := h.Catalog.AllProducts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// POST /api/v1/admin/products
func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	var req productReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Price == nil {
		zero := decimal.Zero
		req.Price = &zero
	}
	p, err := h.Catalog.CreateProduct(c.UserContext(), req.apply(domain.Product{ID: req.ID}))
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.product.create", map[string]any{"product": p.ID})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// PUT /api/v1/admin/products/:id
func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req productReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	cur, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	p, err := h.Catalog.UpdateProduct(ctx, req.apply(cur))
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.product.update", map[string]any{"product": id})
	return c.JSON(p)
}

type activeReq struct {
	Active bool `json:"active"`
}

// PUT /api/v1/admin/products/:id/active
func (h *AdminHandler) SetProductActive(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req activeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Catalog.SetProductActive(c.UserContext(), id, req.Active); err != nil {
		return err
	}
	applog.Audit(c, "admin.product.active", map[string]any{"product": id, "active": req.Active})
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/v1/admin/categories
func (h *AdminHandler) CreateCategory(c *fiber.Ctx) error {
	var cat domain.Category
	if err := bind(c, &cat); err != nil {
		return err
	}
	cat, err := h.Catalog.CreateCategory(c.UserContext(), cat)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.category.create", map[string]any{"category": cat.ID})
	return c.Status(fiber.StatusCreated).JSON(cat)
}

// PUT /api/v1/admin/categories/:id
func (h *AdminHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	cat, err := h.Catalog.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := bind(c, &cat); err != nil {
		return err
	}
	cat.ID = id
	cat, err = h.Catalog.UpdateCategory(ctx, cat)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.category.update", map[string]any{"category": id})
	return c.JSON(cat)
}

// GET /api/v1/admin/orders?status=&limit=
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}
	orders, err := h.Orders.ListLatest(c.UserContext(), strings.ToUpper(c.Query("status")), limit)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

type statusReq struct {
	Status string `json:"status"`
}

// PUT /api/v1/admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing status")
	}
	o, err := h.Orders.UpdateStatus(c.UserContext(), id, status)
	if err != nil {
		applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id})
		return err
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": status})
	return c.JSON(o)
}

// PUT /api/v1/admin/settings/:key
func (h *AdminHandler) PutSetting(c *fiber.Ctx) error {
	key := strings.ToLower(c.Params("key"))
	v, err := h.Settings.Put(c.UserContext(), key, c.Body())
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.settings.update", map[string]any{"key": key})
	return c.JSON(v)
}

// GET /api/v1/admin/customers
func (h *AdminHandler) Customers(c *fiber.Ctx) error {
	users, err := h.Auth.Customers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// POST /api/v1/admin/flash-sales
func (h *AdminHandler) CreateFlashSale(c *fiber.Ctx) error {
	var req services.NewFlashSale
	if err := bind(c, &req); err != nil {
		return err
	}
	sale, err := h.FlashSale.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.flashsale.create", map[string]any{"sale_id": sale.ID, "items": len(sale.Items)})
	return c.Status(fiber.StatusCreated).JSON(sale)
}
