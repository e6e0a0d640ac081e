package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"tokoku/internal/auth"
	"tokoku/internal/domain"
	"tokoku/internal/repos"
	"tokoku/internal/validate"
)

type AuthService struct {
	Users     *repos.UserRepo
	Referrals *repos.ReferralRepo
	Tokens    *auth.Tokens
}

func NewAuthService(users *repos.UserRepo, refs *repos.ReferralRepo, tokens *auth.Tokens) *AuthService {
	return &AuthService{Users: users, Referrals: refs, Tokens: tokens}
}

// authenticate checks credentials without revealing which part was wrong.
func (s *AuthService) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, ErrBadCreds
	}
	if !auth.CheckPassword(u.Hash, password) {
		return nil, ErrBadCreds
	}
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.User, error) {
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Users.UnbindSession(ctx, sid)
}

func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	return s.Users.SessionUser(ctx, sid)
}

func (s *AuthService) UserByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Users.ByID(ctx, id)
	return u, lookup(err, "user "+id)
}

// Token is a signed bearer token for API clients.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *AuthService) IssueToken(ctx context.Context, email, password string) (Token, error) {
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return Token{}, err
	}
	raw, exp, err := s.Tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: raw, TokenType: "Bearer", ExpiresAt: exp}, nil
}

// UserFromToken resolves a bearer token to a current user record.
func (s *AuthService) UserFromToken(ctx context.Context, raw string) (*domain.User, error) {
	c, err := s.Tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.ByID(ctx, c.UserID)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return u, nil
}

type Registration struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	ReferralCode string `json:"referral_code"`
}

// Register creates a USER account and binds it to the session. A referral
// code, when given, must belong to an existing user.
func (s *AuthService) Register(ctx context.Context, sid string, r Registration) (*domain.User, error) {
	var verr error
	email, ok := validate.Email(r.Email)
	if !ok {
		verr = multierr.Append(verr, errors.New("invalid email"))
	}
	if !validate.Password(r.Password) {
		verr = multierr.Append(verr, errors.New("password must be 8-64 chars with upper, lower, digit and symbol"))
	}
	name, ok := validate.Name(r.Name)
	if !ok || name == "" {
		verr = multierr.Append(verr, errors.New("name is required"))
	}
	phone := ""
	if r.Phone != "" {
		if phone, ok = validate.Phone(r.Phone); !ok {
			verr = multierr.Append(verr, errors.New("invalid phone number"))
		}
	}
	address, ok := validate.Text(r.Address, 300)
	if !ok {
		verr = multierr.Append(verr, errors.New("address is too long"))
	}
	var referrer *domain.User
	if r.ReferralCode != "" {
		code, ok := validate.ReferralCode(r.ReferralCode)
		if ok {
			referrer, _ = s.Users.ByReferralCode(ctx, code)
		}
		if referrer == nil {
			verr = multierr.Append(verr, errors.New("unknown referral code"))
		}
	}
	if verr != nil {
		return nil, invalid(verr)
	}
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, wrapConflict("account " + email)
	}

	hash, err := auth.HashPassword(r.Password)
	if err != nil {
		return nil, err
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Hash:         hash,
		Role:         domain.RoleUser,
		Phone:        phone,
		Address:      address,
		ReferralCode: newReferralCode(Now()),
	}
	err = repos.WithTx(ctx, s.Users.DB, func(tx *sqlx.Tx) error {
		if err := s.Users.Create(ctx, tx, u); err != nil {
			return conflictOr(err, "account "+email)
		}
		if referrer != nil {
			return s.Referrals.Record(ctx, tx, referrer.ID, u.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

type Profile struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, p Profile) (*domain.User, error) {
	var verr error
	name, ok := validate.Name(p.Name)
	if !ok || name == "" {
		verr = multierr.Append(verr, errors.New("name is required"))
	}
	phone := ""
	if p.Phone != "" {
		if phone, ok = validate.Phone(p.Phone); !ok {
			verr = multierr.Append(verr, errors.New("invalid phone number"))
		}
	}
	address, ok := validate.Text(p.Address, 300)
	if !ok {
		verr = multierr.Append(verr, errors.New("address is too long"))
	}
	if verr != nil {
		return nil, invalid(verr)
	}
	if err := s.Users.UpdateProfile(ctx, userID, name, phone, address); err != nil {
		return nil, lookup(err, "user "+userID)
	}
	return s.UserByID(ctx, userID)
}

func (s *AuthService) Customers(ctx context.Context) ([]domain.User, error) {
	return s.Users.Customers(ctx)
}
