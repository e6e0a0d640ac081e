// Package search builds the grouped suggestion list shown under the storefront
// search box. Matching itself is the store's substring search.
package search

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"tokoku/internal/domain"
	"tokoku/internal/validate"
)

const (
	TypeCategory = "category"
	TypeProduct  = "product"

	DefaultLimit = 5
	MaxLimit     = 20
)

// Source is the backend substring search.
type Source interface {
	SearchCategories(ctx context.Context, q string, limit int) ([]domain.Category, error)
	SearchProducts(ctx context.Context, q string, limit int) ([]domain.Product, error)
}

type Item struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	ImageURL string           `json:"image_url,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Href     string           `json:"href"`
}

type Group struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Items []Item `json:"items"`
}

type Suggester struct {
	src Source
}

func NewSuggester(src Source) *Suggester { return &Suggester{src: src} }

// Suggest returns category matches then product matches, each capped at
// limit. Empty groups are left out. An empty or invalid query returns no
// groups without touching the source.
func (s *Suggester) Suggest(ctx context.Context, q string, limit int) ([]Group, error) {
	q, ok := validate.Q(q)
	if !ok {
		return []Group{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var (
		cats  []domain.Category
		prods []domain.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cats, err = s.src.SearchCategories(gctx, q, limit)
		return errors.Wrap(err, "search categories")
	})
	g.Go(func() (err error) {
		prods, err = s.src.SearchProducts(gctx, q, limit)
		return errors.Wrap(err, "search products")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	groups := []Group{}
	if len(cats) > 0 {
		g := Group{Type: TypeCategory, Label: "Kategori"}
		for _, c := range cats[:min(len(cats), limit)] {
			g.Items = append(g.Items, Item{ID: c.ID, Name: c.Name, ImageURL: c.IconURL, Href: "/categories/" + c.ID})
		}
		groups = append(groups, g)
	}
	if len(prods) > 0 {
		g := Group{Type: TypeProduct, Label: "Produk"}
		for _, p := range prods[:min(len(prods), limit)] {
			price := p.Price
			g.Items = append(g.Items, Item{ID: p.ID, Name: p.Name, ImageURL: p.ImageURL, Price: &price, Href: "/products/" + p.ID})
		}
		groups = append(groups, g)
	}
	return groups, nil
}
