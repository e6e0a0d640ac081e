package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tokoku/internal/domain"
	applog "tokoku/internal/log"
	"tokoku/internal/services"
)

const sidCookie = "sid"

// ensureSID returns the session cookie, issuing a fresh one when missing.
func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies(sidCookie)
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     sidCookie,
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return sid
}

func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Session attaches the caller to the request: a bearer token wins over the
// session cookie. A bad token is rejected outright; an unknown cookie is
// treated as a guest.
func Session(authSvc *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tok := bearer(c); tok != "" {
			u, err := authSvc.UserFromToken(c.UserContext(), tok)
			if err != nil {
				applog.Security(c, "auth.token.reject", nil)
				return err
			}
			setUser(c, u)
			return c.Next()
		}
		if sid := c.Cookies(sidCookie); sid != "" {
			if u, err := authSvc.CurrentUser(c.UserContext(), sid); err == nil && u != nil {
				setUser(c, u)
			}
		}
		return c.Next()
	}
}

func setUser(c *fiber.Ctx, u *domain.User) {
	c.Locals("user", u)
	c.Locals("user_id", u.ID)
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

func userID(c *fiber.Ctx) string {
	if u := currentUser(c); u != nil {
		return u.ID
	}
	return ""
}

// RequireUser rejects guests.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) == nil {
			return errLoginNeeded
		}
		return c.Next()
	}
}

// RequireAdmin rejects everyone but ADMIN users, whether they came with a
// session cookie or a bearer token.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil {
			applog.Security(c, "access.denied.admin", nil)
			return errLoginNeeded
		}
		if !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"user_id": u.ID})
			return errAccessDenied
		}
		return c.Next()
	}
}
