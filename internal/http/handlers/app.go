package handlers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applog "tokoku/internal/log"
)

// Limits are the request rate caps per client IP.
type Limits struct {
	Global     int
	GlobalSpan time.Duration
	Login      int
	LoginSpan  time.Duration
	Search     int
	SearchSpan time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		Global: 120, GlobalSpan: time.Minute,
		Login: 5, LoginSpan: 10 * time.Minute,
		Search: 30, SearchSpan: time.Minute,
	}
}

func rateLimit(max int, span time.Duration, action string, keep func(*fiber.Ctx) bool) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: span,
		Next:       keep,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|" + action
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate."+action+".hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
}

func unlimited(c *fiber.Ctx) bool {
	p := c.Path()
	return strings.HasPrefix(p, "/media/") || p == "/healthz" || p == "/metrics"
}

// NewApp builds the fiber application with every route mounted.
func NewApp(d *Deps, lim Limits) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "tokoku " + d.Cfg.Version,
		Views:        Views(),
		ErrorHandler: ErrorHandler,
	})
	// Uploads are the largest bodies; everything else is small JSON.
	app.Server().MaxRequestBodySize = int(d.Cfg.UploadMaxBytes) + 64<<10

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(applog.Access())
	app.Use(helmet.New())
	app.Use(rateLimit(lim.Global, lim.GlobalSpan, "global", unlimited))
	app.Use(Session(d.Svc.Auth))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "version": d.Cfg.Version})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	app.Get("/media/*", media(d.Cfg.MediaDir))

	api := app.Group("/api/v1")
	api.Get("/settings", d.StoreHandler.PublicSettings)
	api.Get("/flash-sales", d.StoreHandler.FlashSales)

	api.Get("/categories", d.CategoryHandler.List)
	api.Get("/categories/:id", d.CategoryHandler.Get)
	api.Get("/categories/:id/products", d.CategoryHandler.Products)
	api.Get("/products/:id", d.ProductHandler.Detail)
	api.Get("/products/:id/reviews", d.ReviewHandler.List)
	api.Post("/products/:id/reviews", RequireUser(), d.ReviewHandler.Submit)
	api.Get("/availability", d.InventoryHandler.Check)

	searchLimit := rateLimit(lim.Search, lim.SearchSpan, "search", nil)
	api.Get("/search", searchLimit, d.SearchHandler.Search)
	api.Get("/search/suggestions", searchLimit, d.SearchHandler.Suggestions)

	api.Get("/cart", d.CartHandler.View)
	api.Delete("/cart", d.CartHandler.Clear)
	api.Post("/cart/items", d.CartHandler.Add)
	api.Patch("/cart/items/:id", d.CartHandler.Update)
	api.Delete("/cart/items/:id", d.CartHandler.Remove)
	api.Put("/cart/customer", d.CartHandler.Customer)

	api.Post("/orders", d.OrderHandler.Place)
	api.Get("/orders", d.OrderHandler.History)
	api.Get("/orders/:id", d.OrderHandler.View)
	api.Post("/returns", d.ReturnHandler.Request)

	api.Get("/wishlist", d.WishlistHandler.List)
	api.Put("/wishlist/:id", d.WishlistHandler.Save)
	api.Delete("/wishlist/:id", d.WishlistHandler.Unsave)

	loginLimit := rateLimit(lim.Login, lim.LoginSpan, "login", nil)
	authG := api.Group("/auth")
	authG.Post("/login", loginLimit, d.AuthHandler.Login)
	authG.Post("/token", loginLimit, d.AuthHandler.Token)
	authG.Post("/register", loginLimit, d.AuthHandler.Register)
	authG.Post("/logout", d.AuthHandler.Logout)
	authG.Get("/me", RequireUser(), d.AuthHandler.Me)
	authG.Put("/profile", RequireUser(), d.AuthHandler.Profile)
	api.Get("/referrals", RequireUser(), d.AuthHandler.MyReferrals)

	printG := app.Group("/print")
	printG.Get("/orders/:id", d.PrintHandler.Receipt)
	printG.Get("/member-card", RequireUser(), d.PrintHandler.MemberCard)

	admin := api.Group("/admin", RequireAdmin())
	admin.Get("/dashboard", d.ReportHandler.Dashboard)
	admin.Get("/products", d.AdminHandler.Products)
	admin.Post("/products", d.AdminHandler.CreateProduct)
	admin.Put("/products/:id", d.AdminHandler.UpdateProduct)
	admin.Put("/products/:id/active", d.AdminHandler.SetProductActive)
	admin.Post("/products/:id/image", d.UploadHandler.ProductImage)
	admin.Post("/products/:id/stock", d.InventoryHandler.Adjust)
	admin.Get("/products/:id/movements", d.InventoryHandler.Movements)
	admin.Get("/stock/low", d.InventoryHandler.LowStock)
	admin.Post("/categories", d.AdminHandler.CreateCategory)
	admin.Put("/categories/:id", d.AdminHandler.UpdateCategory)
	admin.Post("/categories/:id/icon", d.UploadHandler.CategoryIcon)
	admin.Get("/orders", d.AdminHandler.ListOrders)
	admin.Put("/orders/:id/status", d.AdminHandler.UpdateOrderStatus)
	admin.Get("/returns", d.ReturnHandler.List)
	admin.Post("/returns/:id/approve", d.ReturnHandler.Approve)
	admin.Post("/returns/:id/reject", d.ReturnHandler.Reject)
	admin.Get("/suppliers", d.PurchaseHandler.Suppliers)
	admin.Post("/suppliers", d.PurchaseHandler.CreateSupplier)
	admin.Get("/purchases", d.PurchaseHandler.List)
	admin.Post("/purchases", d.PurchaseHandler.Create)
	admin.Get("/purchases/:id", d.PurchaseHandler.Get)
	admin.Post("/purchases/:id/payments", d.PurchaseHandler.Pay)
	admin.Put("/settings/:key", d.AdminHandler.PutSetting)
	admin.Get("/customers", d.AdminHandler.Customers)
	admin.Post("/flash-sales", d.AdminHandler.CreateFlashSale)
	admin.Post("/uploads/:bucket", d.UploadHandler.Upload)
	admin.Delete("/uploads/:bucket/*", d.UploadHandler.Delete)
	admin.Get("/reports/sales", d.ReportHandler.Sales)
	admin.Get("/reports/stock", d.ReportHandler.Stock)
	admin.Get("/reports/credit", d.ReportHandler.Credit)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "page not found")
	})
	return app
}

// media serves the local storage backend. Traversal attempts, raw or
// encoded, are answered with 404.
func media(dir string) fiber.Handler {
	if !filepath.IsAbs(dir) {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
	}
	return func(c *fiber.Ctx) error {
		path := c.Params("*")
		rawLower := strings.ToLower(path)
		if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") || strings.Contains(rawLower, "\x00") {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		clean := filepath.Clean(path)
		if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendFile(filepath.Join(dir, clean), true)
	}
}
