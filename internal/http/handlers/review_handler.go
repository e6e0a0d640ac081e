package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "tokoku/internal/log"
	"tokoku/internal/services"
)

type ReviewHandler struct {
	Reviews *services.ReviewService
}

type reviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// GET /api/v1/products/:id/reviews
func (h *ReviewHandler) List(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	rv, err := h.Reviews.ForProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(rv)
}

// POST /api/v1/products/:id/reviews
func (h *ReviewHandler) Submit(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req reviewReq
	if err := bind(c, &req); err != nil {
		return err
	}
	rv, err := h.Reviews.Submit(c.UserContext(), userID(c), id, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	applog.Info(c, "review.submit", map[string]any{"product": id, "rating": req.Rating})
	return c.Status(fiber.StatusCreated).JSON(rv)
}
