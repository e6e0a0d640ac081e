package handlers

import (
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"tokoku/internal/auth"
	"tokoku/internal/config"
	"tokoku/internal/query"
	"tokoku/internal/repos"
	"tokoku/internal/search"
	"tokoku/internal/services"
	"tokoku/internal/storage"
)

// Services is every domain service the HTTP layer talks to.
type Services struct {
	Settings  *services.SettingsService
	Catalog   *services.CatalogService
	Inventory *services.InventoryService
	Cart      *services.CartService
	Orders    *services.OrderService
	Auth      *services.AuthService
	Referrals *services.ReferralService
	Wishlist  *services.WishlistService
	Reviews   *services.ReviewService
	Returns   *services.ReturnService
	Purchases *services.PurchaseService
	FlashSale *services.FlashSaleService
	Reports   *services.ReportService
}

type Deps struct {
	Cfg      config.Config
	Svc      Services
	Store    *storage.Service
	Gatherer prometheus.Gatherer

	CategoryHandler  *CategoryHandler
	ProductHandler   *ProductHandler
	InventoryHandler *InventoryHandler
	SearchHandler    *SearchHandler
	CartHandler      *CartHandler
	OrderHandler     *OrderHandler
	AuthHandler      *AuthHandler
	WishlistHandler  *WishlistHandler
	ReviewHandler    *ReviewHandler
	ReturnHandler    *ReturnHandler
	StoreHandler     *StoreHandler
	AdminHandler     *AdminHandler
	PurchaseHandler  *PurchaseHandler
	ReportHandler    *ReportHandler
	UploadHandler    *UploadHandler
	PrintHandler     *PrintHandler
}

// NewServices builds the repositories and services on db.
func NewServices(db *sqlx.DB, q *query.Client, notify services.OrderNotifier, tokens *auth.Tokens) Services {
	cats := repos.NewCategoryRepo(db)
	prods := repos.NewProductRepo(db)
	inv := repos.NewInventoryRepo(db)
	users := repos.NewUserRepo(db)
	refs := repos.NewReferralRepo(db)
	orders := repos.NewOrderRepo(db)
	flash := repos.NewFlashSaleRepo(db)

	var s Services
	s.Settings = services.NewSettingsService(repos.NewSettingsRepo(db), q)
	s.Catalog = services.NewCatalogService(cats, prods, q)
	s.Inventory = services.NewInventoryService(inv, prods, q)
	s.Cart = services.NewCartService(repos.NewCartRepo(db), prods, flash, s.Settings, users)
	s.Orders = services.NewOrderService(db, orders, prods, inv, flash, s.Cart, s.Settings, q, notify)
	s.Auth = services.NewAuthService(users, refs, tokens)
	s.Referrals = services.NewReferralService(users, refs)
	s.Wishlist = services.NewWishlistService(repos.NewWishlistRepo(db), prods)
	s.Reviews = services.NewReviewService(repos.NewReviewRepo(db), orders, prods, q)
	s.Returns = services.NewReturnService(db, repos.NewReturnRepo(db), orders, inv, q)
	s.Purchases = services.NewPurchaseService(db, repos.NewPurchaseRepo(db), prods, inv, q)
	s.FlashSale = services.NewFlashSaleService(db, flash, prods, q)
	s.Reports = services.NewReportService(orders, prods, inv, s.Purchases, q)
	return s
}

// NewDeps wires the handlers over svc. A nil gatherer serves the default
// prometheus registry on /metrics.
func NewDeps(cfg config.Config, svc Services, store *storage.Service, gatherer prometheus.Gatherer) *Deps {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	orderH := &OrderHandler{Cart: svc.Cart, Orders: svc.Orders}
	return &Deps{
		Cfg:      cfg,
		Svc:      svc,
		Store:    store,
		Gatherer: gatherer,

		CategoryHandler:  &CategoryHandler{Catalog: svc.Catalog},
		ProductHandler:   &ProductHandler{Catalog: svc.Catalog, Inv: svc.Inventory, Reviews: svc.Reviews},
		InventoryHandler: &InventoryHandler{Inv: svc.Inventory},
		SearchHandler:    &SearchHandler{Catalog: svc.Catalog, Suggest: search.NewSuggester(svc.Catalog)},
		CartHandler:      &CartHandler{Cart: svc.Cart},
		OrderHandler:     orderH,
		AuthHandler:      &AuthHandler{Auth: svc.Auth, Cart: svc.Cart, Referrals: svc.Referrals},
		WishlistHandler:  &WishlistHandler{Wish: svc.Wishlist},
		ReviewHandler:    &ReviewHandler{Reviews: svc.Reviews},
		ReturnHandler:    &ReturnHandler{Returns: svc.Returns},
		StoreHandler:     &StoreHandler{Settings: svc.Settings, FlashSale: svc.FlashSale},
		AdminHandler:     &AdminHandler{Catalog: svc.Catalog, Inv: svc.Inventory, Orders: svc.Orders, Returns: svc.Returns, Settings: svc.Settings, Auth: svc.Auth, FlashSale: svc.FlashSale},
		PurchaseHandler:  &PurchaseHandler{Purchases: svc.Purchases},
		ReportHandler:    &ReportHandler{Reports: svc.Reports},
		UploadHandler:    &UploadHandler{Store: store, Catalog: svc.Catalog},
		PrintHandler:     &PrintHandler{Referrals: svc.Referrals, Settings: svc.Settings, Order: orderH},
	}
}
