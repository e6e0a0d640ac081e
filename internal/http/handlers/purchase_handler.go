package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"tokoku/internal/domain"
	applog "tokoku/internal/log"
	"tokoku/internal/services"
)

type PurchaseHandler struct {
	Purchases *services.PurchaseService
}

// GET /api/v1/admin/suppliers
func (h *PurchaseHandler) Suppliers(c *fiber.Ctx) error {
	list, err := h.Purchases.Suppliers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(list)
}

// POST /api/v1/admin/suppliers
func (h *PurchaseHandler) CreateSupplier(c *fiber.Ctx) error {
	var sup domain.Supplier
	if err := bind(c, &sup); err != nil {
		return err
	}
	sup, err := h.Purchases.CreateSupplier(c.UserContext(), sup)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.supplier.create", map[string]any{"supplier_id": sup.ID})
	return c.Status(fiber.StatusCreated).JSON(sup)
}

// GET /api/v1/admin/purchases?method=cash|credit
func (h *PurchaseHandler) List(c *fiber.Ctx) error {
	list, err := h.Purchases.List(c.UserContext(), strings.ToLower(c.Query("method")))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

// GET /api/v1/admin/purchases/:id
func (h *PurchaseHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	v, err := h.Purchases.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(v)
}

// POST /api/v1/admin/purchases
func (h *PurchaseHandler) Create(c *fiber.Ctx) error {
	var req services.NewPurchase
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := h.Purchases.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.purchase.create", map[string]any{
		"purchase_id": v.ID,
		"method":      v.PaymentMethod,
		"total":       v.TotalAmount.StringFixed(0),
	})
	return c.Status(fiber.StatusCreated).JSON(v)
}

type paymentReq struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// POST /api/v1/admin/purchases/:id/payments
func (h *PurchaseHandler) Pay(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req paymentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := h.Purchases.RecordPayment(c.UserContext(), id, req.Amount, req.Note)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.purchase.pay", map[string]any{
		"purchase_id": id,
		"amount":      req.Amount.StringFixed(0),
		"status":      v.PaymentStatus,
	})
	return c.JSON(v)
}
