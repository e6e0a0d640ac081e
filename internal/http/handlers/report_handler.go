package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tokoku/internal/services"
)

type ReportHandler struct {
	Reports *services.ReportService
}

// GET /api/v1/admin/reports/sales?period=daily|weekly|monthly|yearly|custom&start=&end=
func (h *ReportHandler) Sales(c *fiber.Ctx) error {
	r, err := h.Reports.Sales(c.UserContext(), c.Query("period", "daily"), c.Query("start"), c.Query("end"))
	if err != nil {
		return err
	}
	return c.JSON(r)
}

// GET /api/v1/admin/reports/stock?window=7|30|90
func (h *ReportHandler) Stock(c *fiber.Ctx) error {
	lines, err := h.Reports.Stock(c.UserContext(), c.QueryInt("window", 7))
	if err != nil {
		return err
	}
	return c.JSON(lines)
}

// GET /api/v1/admin/reports/credit
func (h *ReportHandler) Credit(c *fiber.Ctx) error {
	r, err := h.Reports.Credit(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(r)
}

// GET /api/v1/admin/dashboard
func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.Reports.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(d)
}
