package services

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"tokoku/internal/domain"
	"tokoku/internal/query"
	"tokoku/internal/repos"
)

// LowStockThreshold is the level below which a product shows as LOW_STOCK.
const LowStockThreshold = 5

type InventoryService struct {
	Inv   *repos.InventoryRepo
	Prods *repos.ProductRepo
	Q     *query.Client
}

func NewInventoryService(inv *repos.InventoryRepo, prods *repos.ProductRepo, q *query.Client) *InventoryService {
	return &InventoryService{Inv: inv, Prods: prods, Q: q}
}

// CheckAvailability converts qty to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) CheckAvailability(ctx context.Context, productID string) (domain.Availability, error) {
	qty, err := s.Inv.Stock(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Availability{}, lookup(err, "product "+productID)
		}
		return domain.Availability{}, err
	}
	return availability(qty), nil
}

func availability(qty int) domain.Availability {
	status := "OUT_OF_STOCK"
	switch {
	case qty >= LowStockThreshold:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}
}

// Adjust applies a manual correction. Note is stored as the movement ref.
func (s *InventoryService) Adjust(ctx context.Context, productID string, delta int, note string) (domain.Availability, error) {
	if delta == 0 {
		return domain.Availability{}, invalidf("delta must not be zero")
	}
	if _, err := s.Prods.Get(ctx, productID); err != nil {
		return domain.Availability{}, lookup(err, "product "+productID)
	}
	err := s.Q.Mutate(ctx, func(ctx context.Context) error {
		return lookup(s.Inv.Adjust(ctx, s.Inv.DB(), productID, delta, domain.MoveAdjustment, note, Now()), "product "+productID)
	}, keyProducts, keySearch, keyReports)
	if err != nil {
		return domain.Availability{}, err
	}
	return s.CheckAvailability(ctx, productID)
}

func (s *InventoryService) Movements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	return s.Inv.Movements(ctx, productID, limit)
}

func (s *InventoryService) LowStock(ctx context.Context) ([]domain.Product, error) {
	return s.Prods.LowStock(ctx, LowStockThreshold-1)
}
