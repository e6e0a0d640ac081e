package handlers

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"

	"tokoku/internal/services"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Views returns the engine for the printable pages.
func Views() *html.Engine {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}

// PrintHandler renders pages meant for a printer: order receipts and the
// member card.
type PrintHandler struct {
	Referrals *services.ReferralService
	Settings  *services.SettingsService
	Order     *OrderHandler
}

func (h *PrintHandler) storeText(c *fiber.Ctx) (string, string, error) {
	pub, err := h.Settings.Public(c.UserContext())
	if err != nil {
		return "", "", err
	}
	return pub.SEO.Title, pub.Frontend.FooterText, nil
}

// GET /print/orders/:id
func (h *PrintHandler) Receipt(c *fiber.Ctx) error {
	o, err := h.Order.load(c)
	if err != nil {
		return err
	}
	store, footer, err := h.storeText(c)
	if err != nil {
		return err
	}
	return c.Render("receipt", fiber.Map{"Store": store, "Footer": footer, "Order": o})
}

// GET /print/member-card
func (h *PrintHandler) MemberCard(c *fiber.Ctx) error {
	u := currentUser(c)
	refs, err := h.Referrals.MyReferrals(c.UserContext(), u.ID)
	if err != nil {
		return err
	}
	store, _, err := h.storeText(c)
	if err != nil {
		return err
	}
	return c.Render("member_card", fiber.Map{"Store": store, "User": u, "Referrals": refs})
}
