package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "tokoku/internal/log"
	"tokoku/internal/services"
)

type AuthHandler struct {
	Auth      *services.AuthService
	Cart      *services.CartService
	Referrals *services.ReferralService
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var req credentials
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	u, err := h.Auth.Login(ctx, sid, req.Email, req.Password)
	if err != nil {
		applog.Security(c, "auth.login.fail", map[string]any{"email": req.Email})
		return err
	}
	setUser(c, u)
	cv, err := h.Cart.AttachUser(ctx, sid, u)
	if err != nil {
		return err
	}
	applog.Audit(c, "auth.login.success", map[string]any{"user_id": u.ID})
	return c.JSON(fiber.Map{"user": u, "cart": cv})
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies(sidCookie); sid != "" {
		if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
			return err
		}
	}
	applog.Audit(c, "auth.logout", nil)
	c.ClearCookie(sidCookie)
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var req services.Registration
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	u, err := h.Auth.Register(ctx, sid, req)
	if err != nil {
		return err
	}
	setUser(c, u)
	if _, err := h.Cart.AttachUser(ctx, sid, u); err != nil {
		return err
	}
	applog.Audit(c, "auth.register", map[string]any{"user_id": u.ID, "referred": req.ReferralCode != ""})
	return c.Status(fiber.StatusCreated).JSON(u)
}

// POST /api/v1/auth/token issues a bearer token for API clients.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req credentials
	if err := bind(c, &req); err != nil {
		return err
	}
	tok, err := h.Auth.IssueToken(c.UserContext(), req.Email, req.Password)
	if err != nil {
		applog.Security(c, "auth.token.fail", map[string]any{"email": req.Email})
		return err
	}
	applog.Audit(c, "auth.token.issue", nil)
	return c.JSON(tok)
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

// PUT /api/v1/auth/profile
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	var req services.Profile
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Auth.UpdateProfile(c.UserContext(), userID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

// GET /api/v1/referrals
func (h *AuthHandler) MyReferrals(c *fiber.Ctx) error {
	sum, err := h.Referrals.MyReferrals(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(sum)
}
