package services

import (
	"context"

	"tokoku/internal/domain"
	"tokoku/internal/repos"
)

type ReferralService struct {
	Users *repos.UserRepo
	Refs  *repos.ReferralRepo
}

func NewReferralService(users *repos.UserRepo, refs *repos.ReferralRepo) *ReferralService {
	return &ReferralService{Users: users, Refs: refs}
}

type ReferralSummary struct {
	Code      string            `json:"code"`
	Count     int               `json:"count"`
	Referrals []domain.Referral `json:"referrals"`
}

func (s *ReferralService) MyReferrals(ctx context.Context, userID string) (ReferralSummary, error) {
	u, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return ReferralSummary{}, lookup(err, "user "+userID)
	}
	list, err := s.Refs.ByReferrer(ctx, userID)
	if err != nil {
		return ReferralSummary{}, err
	}
	return ReferralSummary{Code: u.ReferralCode, Count: len(list), Referrals: list}, nil
}
