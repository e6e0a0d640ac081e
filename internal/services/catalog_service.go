package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"tokoku/internal/domain"
	"tokoku/internal/query"
	"tokoku/internal/repos"
	"tokoku/internal/validate"
)

// CatalogService reads go through the query cache; admin writes invalidate it.
type CatalogService struct {
	Cats  *repos.CategoryRepo
	Prods *repos.ProductRepo
	Q     *query.Client
}

func NewCatalogService(cats *repos.CategoryRepo, prods *repos.ProductRepo, q *query.Client) *CatalogService {
	return &CatalogService{Cats: cats, Prods: prods, Q: q}
}

func paging(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 12
	}
	return pageSize, (page - 1) * pageSize
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return query.Get(ctx, s.Q, keyCategories, s.Cats.List)
}

func (s *CatalogService) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	c, err := query.Get(ctx, s.Q, keyCategory(id), func(ctx context.Context) (domain.Category, error) {
		return s.Cats.Get(ctx, id)
	})
	return c, lookup(err, "category "+id)
}

func (s *CatalogService) ListProductsByCategory(ctx context.Context, catID string, page, pageSize int) ([]domain.Product, error) {
	limit, offset := paging(page, pageSize)
	key := query.NewKey("products", "category", catID, limit, offset)
	return query.Get(ctx, s.Q, key, func(ctx context.Context) ([]domain.Product, error) {
		return s.Prods.ListByCategory(ctx, catID, limit, offset)
	})
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := query.Get(ctx, s.Q, keyProduct(id), func(ctx context.Context) (domain.Product, error) {
		return s.Prods.Get(ctx, id)
	})
	return p, lookup(err, "product "+id)
}

func (s *CatalogService) Search(ctx context.Context, q, category string, page, pageSize int) ([]domain.Product, error) {
	limit, offset := paging(page, pageSize)
	q = strings.ToLower(q)
	key := query.NewKey("search", "products", q, category, limit, offset)
	return query.Get(ctx, s.Q, key, func(ctx context.Context) ([]domain.Product, error) {
		return s.Prods.Search(ctx, q, category, limit, offset)
	})
}

// SearchCategories and SearchProducts back the suggestion box.
func (s *CatalogService) SearchCategories(ctx context.Context, q string, limit int) ([]domain.Category, error) {
	q = strings.ToLower(q)
	return query.Get(ctx, s.Q, query.NewKey("search", "categories", q, limit), func(ctx context.Context) ([]domain.Category, error) {
		return s.Cats.Search(ctx, q, limit)
	})
}

func (s *CatalogService) SearchProducts(ctx context.Context, q string, limit int) ([]domain.Product, error) {
	return s.Search(ctx, q, "", 1, limit)
}

// Admin

func (s *CatalogService) AllProducts(ctx context.Context) ([]domain.Product, error) {
	return s.Prods.ListAll(ctx)
}

func checkCategory(c domain.Category) error {
	var err error
	if _, ok := validate.ID(c.ID); !ok {
		err = multierr.Append(err, invalidf("id must be 1-64 letters, digits, '-' or '_'"))
	}
	if _, ok := validate.Name(c.Name); !ok {
		err = multierr.Append(err, invalidf("name is required (max 80 chars)"))
	}
	return err
}

func (s *CatalogService) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	c.ID = strings.ToLower(strings.TrimSpace(c.ID))
	c.Name = strings.TrimSpace(c.Name)
	if err := checkCategory(c); err != nil {
		return domain.Category{}, invalid(err)
	}
	err := s.Q.Mutate(ctx, func(ctx context.Context) error {
		if err := s.Cats.Create(ctx, c); err != nil {
			return conflictOr(err, "category "+c.ID)
		}
		return nil
	}, keyCategories, keySearch)
	if err != nil {
		return domain.Category{}, err
	}
	return s.Cats.Get(ctx, c.ID)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := checkCategory(c); err != nil {
		return domain.Category{}, invalid(err)
	}
	err := s.Q.Mutate(ctx, func(ctx context.Context) error {
		return lookup(s.Cats.Update(ctx, c), "category "+c.ID)
	}, keyCategories, keySearch)
	if err != nil {
		return domain.Category{}, err
	}
	return s.Cats.Get(ctx, c.ID)
}

func (s *CatalogService) checkProduct(ctx context.Context, p domain.Product) error {
	var err error
	if _, ok := validate.Name(p.Name); !ok {
		err = multierr.Append(err, invalidf("name is required (max 80 chars)"))
	}
	if p.Price.IsNegative() {
		err = multierr.Append(err, invalidf("price cannot be negative"))
	}
	if _, ok := validate.Text(p.Description, 2000); !ok {
		err = multierr.Append(err, invalidf("description is too long"))
	}
	if _, cerr := s.Cats.Get(ctx, p.CategoryID); cerr != nil {
		err = multierr.Append(err, invalidf("unknown category %q", p.CategoryID))
	}
	return err
}

// CreateProduct adds a product with zero stock; stock arrives via purchases
// or adjustments.
func (s *CatalogService) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, ok := validate.ID(p.ID); !ok {
		return domain.Product{}, invalidf("invalid product id")
	}
	p.Name = strings.TrimSpace(p.Name)
	if err := s.checkProduct(ctx, p); err != nil {
		return domain.Product{}, invalid(err)
	}
	p.Stock = 0
	p.Active = true
	err := s.Q.Mutate(ctx, func(ctx context.Context) error {
		if err := s.Prods.Create(ctx, p); err != nil {
			return conflictOr(err, "product "+p.ID)
		}
		return nil
	}, keyProducts, keySearch)
	if err != nil {
		return domain.Product{}, err
	}
	return s.Prods.Get(ctx, p.ID)
}

func (s *CatalogService) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := s.checkProduct(ctx, p); err != nil {
		return domain.Product{}, invalid(err)
	}
	err := s.Q.Mutate(ctx, func(ctx context.Context) error {
		return lookup(s.Prods.Update(ctx, p), "product "+p.ID)
	}, keyProducts, keySearch, keyFlashSales)
	if err != nil {
		return domain.Product{}, err
	}
	return s.Prods.Get(ctx, p.ID)
}

func (s *CatalogService) SetProductActive(ctx context.Context, id string, active bool) error {
	return s.Q.Mutate(ctx, func(ctx context.Context) error {
		return lookup(s.Prods.SetActive(ctx, id, active), "product "+id)
	}, keyProducts, keySearch)
}

// SetProductImage points the product at an uploaded image.
func (s *CatalogService) SetProductImage(ctx context.Context, id, url string) (domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return domain.Product{}, lookup(err, "product "+id)
	}
	p.ImageURL = url
	return s.UpdateProduct(ctx, p)
}

func (s *CatalogService) SetCategoryIcon(ctx context.Context, id, url string) (domain.Category, error) {
	c, err := s.Cats.Get(ctx, id)
	if err != nil {
		return domain.Category{}, lookup(err, "category "+id)
	}
	c.IconURL = url
	return s.UpdateCategory(ctx, c)
}

func conflictOr(err error, what string) error {
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "unique") {
		return wrapConflict(what)
	}
	return err
}
