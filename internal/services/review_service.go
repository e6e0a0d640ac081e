package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"tokoku/internal/domain"
	"tokoku/internal/query"
	"tokoku/internal/repos"
	"tokoku/internal/validate"
)

const maxReviewComment = 500

type ReviewService struct {
	Reviews *repos.ReviewRepo
	Orders  *repos.OrderRepo
	Prods   *repos.ProductRepo
	Q       *query.Client
}

func NewReviewService(reviews *repos.ReviewRepo, orders *repos.OrderRepo, prods *repos.ProductRepo, q *query.Client) *ReviewService {
	return &ReviewService{Reviews: reviews, Orders: orders, Prods: prods, Q: q}
}

// ProductReviews is the review list shown on a product page.
type ProductReviews struct {
	Summary domain.RatingSummary `json:"summary"`
	Reviews []domain.Review      `json:"reviews"`
}

func (s *ReviewService) ForProduct(ctx context.Context, productID string) (ProductReviews, error) {
	return query.Get(ctx, s.Q, keyReviewsFor(productID), func(ctx context.Context) (ProductReviews, error) {
		sum, err := s.Reviews.Summary(ctx, productID)
		if err != nil {
			return ProductReviews{}, err
		}
		list, err := s.Reviews.ByProduct(ctx, productID, 50)
		if err != nil {
			return ProductReviews{}, err
		}
		return ProductReviews{Summary: sum, Reviews: list}, nil
	})
}

// Submit stores the user's review, replacing any earlier one for the product.
// Only customers with a non-cancelled order for the product may review it.
func (s *ReviewService) Submit(ctx context.Context, userID, productID string, rating int, comment string) (ProductReviews, error) {
	if rating < 1 || rating > 5 {
		return ProductReviews{}, invalidf("rating must be between 1 and 5")
	}
	comment, ok := validate.Text(strings.TrimSpace(comment), maxReviewComment)
	if !ok {
		return ProductReviews{}, invalidf("comment is limited to %d characters", maxReviewComment)
	}
	if _, err := s.Prods.Get(ctx, productID); err != nil {
		return ProductReviews{}, lookup(err, "product "+productID)
	}
	bought, err := s.Orders.HasPurchased(ctx, userID, productID)
	if err != nil {
		return ProductReviews{}, err
	}
	if !bought {
		return ProductReviews{}, errors.Wrap(ErrForbidden, "only customers who bought this product can review it")
	}
	err = s.Q.Mutate(ctx, func(ctx context.Context) error {
		return s.Reviews.Upsert(ctx, domain.Review{
			ID:        uuid.NewString(),
			ProductID: productID,
			UserID:    userID,
			Rating:    rating,
			Comment:   comment,
		})
	}, keyReviewsFor(productID))
	if err != nil {
		return ProductReviews{}, err
	}
	return s.ForProduct(ctx, productID)
}
