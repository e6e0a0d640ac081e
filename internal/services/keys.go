package services

import "tokoku/internal/query"

// Cache keys. Invalidating a bare resource drops every key under it.
var (
	keyCategories = query.NewKey("categories")
	keyProducts   = query.NewKey("products")
	keySearch     = query.NewKey("search")
	keyOrders     = query.NewKey("orders")
	keyReports    = query.NewKey("reports")
	keyFlashSales = query.NewKey("flash-sales")
	keyPurchases  = query.NewKey("purchases")
)

func keyProduct(id string) query.Key    { return query.NewKey("products", "id", id) }
func keyReviewsFor(id string) query.Key { return query.NewKey("reviews", id) }
func keySetting(name string) query.Key  { return query.NewKey("settings", name) }
func keyOrder(id string) query.Key      { return query.NewKey("orders", id) }
func keyCategory(id string) query.Key   { return query.NewKey("categories", id) }
