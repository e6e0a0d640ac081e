package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tokoku/internal/auth"
	"tokoku/internal/query"
	"tokoku/internal/repos"
	"tokoku/internal/services"
)

// env wires every service against a fresh seeded in-memory database.
type env struct {
	db        *sqlx.DB
	q         *query.Client
	settings  *services.SettingsService
	catalog   *services.CatalogService
	inventory *services.InventoryService
	cart      *services.CartService
	orders    *services.OrderService
	auth      *services.AuthService
	referrals *services.ReferralService
	wishlist  *services.WishlistService
	reviews   *services.ReviewService
	returns   *services.ReturnService
	purchases *services.PurchaseService
	sales     *services.FlashSaleService
	reports   *services.ReportService

	mu       sync.Mutex
	notified []string
}

func (e *env) OrderPlaced(_ context.Context, id string, _ decimal.Decimal) error {
	e.mu.Lock()
	e.notified = append(e.notified, id)
	e.mu.Unlock()
	return nil
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvAt(t, ":memory:")
}

func newEnvAt(t *testing.T, dsn string) *env {
	t.Helper()
	db, err := repos.OpenDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{db: db, q: query.NewClient()}
	cats := repos.NewCategoryRepo(db)
	prods := repos.NewProductRepo(db)
	inv := repos.NewInventoryRepo(db)
	users := repos.NewUserRepo(db)
	refs := repos.NewReferralRepo(db)
	orders := repos.NewOrderRepo(db)
	flash := repos.NewFlashSaleRepo(db)

	e.settings = services.NewSettingsService(repos.NewSettingsRepo(db), e.q)
	e.catalog = services.NewCatalogService(cats, prods, e.q)
	e.inventory = services.NewInventoryService(inv, prods, e.q)
	e.cart = services.NewCartService(repos.NewCartRepo(db), prods, flash, e.settings, users)
	e.orders = services.NewOrderService(db, orders, prods, inv, flash, e.cart, e.settings, e.q, e)
	e.auth = services.NewAuthService(users, refs, auth.NewTokens("test-secret", time.Hour))
	e.referrals = services.NewReferralService(users, refs)
	e.wishlist = services.NewWishlistService(repos.NewWishlistRepo(db), prods)
	e.reviews = services.NewReviewService(repos.NewReviewRepo(db), orders, prods, e.q)
	e.returns = services.NewReturnService(db, repos.NewReturnRepo(db), orders, inv, e.q)
	e.purchases = services.NewPurchaseService(db, repos.NewPurchaseRepo(db), prods, inv, e.q)
	e.sales = services.NewFlashSaleService(db, flash, prods, e.q)
	e.reports = services.NewReportService(orders, prods, inv, e.purchases, e.q)
	return e
}

func (e *env) stock(t *testing.T, productID string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.Get(&n, `SELECT stock FROM products WHERE id = ?`, productID))
	return n
}

func money(n int64) decimal.Decimal { return decimal.NewFromInt(n) }
