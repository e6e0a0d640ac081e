package services

import (
	"context"
	"encoding/json"

	"tokoku/internal/query"
	"tokoku/internal/repos"
	"tokoku/internal/settings"
)

type SettingsService struct {
	Repo *repos.SettingsRepo
	Q    *query.Client
}

func NewSettingsService(repo *repos.SettingsRepo, q *query.Client) *SettingsService {
	return &SettingsService{Repo: repo, Q: q}
}

func (s *SettingsService) raw(ctx context.Context, key string) ([]byte, bool, error) {
	type row struct {
		raw []byte
		ok  bool
	}
	r, err := query.Get(ctx, s.Q, keySetting(key), func(ctx context.Context) (row, error) {
		raw, ok, err := s.Repo.Get(ctx, key)
		return row{raw: raw, ok: ok}, err
	})
	return r.raw, r.ok, err
}

func (s *SettingsService) COD(ctx context.Context) (settings.CODSettings, error) {
	raw, ok, err := s.raw(ctx, settings.KeyCOD)
	if err != nil {
		return settings.CODSettings{}, err
	}
	return settings.COD(raw, ok), nil
}

func (s *SettingsService) SEO(ctx context.Context) (settings.SEOSettings, error) {
	raw, ok, err := s.raw(ctx, settings.KeySEO)
	if err != nil {
		return settings.SEOSettings{}, err
	}
	return settings.SEO(raw, ok), nil
}

func (s *SettingsService) Frontend(ctx context.Context) (settings.FrontendSettings, error) {
	raw, ok, err := s.raw(ctx, settings.KeyFrontend)
	if err != nil {
		return settings.FrontendSettings{}, err
	}
	return settings.Frontend(raw, ok), nil
}

// Public is everything the storefront needs to render.
type Public struct {
	COD      settings.CODSettings      `json:"cod"`
	SEO      settings.SEOSettings      `json:"seo"`
	Frontend settings.FrontendSettings `json:"frontend"`
}

func (s *SettingsService) Public(ctx context.Context) (Public, error) {
	var p Public
	var err error
	if p.COD, err = s.COD(ctx); err != nil {
		return Public{}, err
	}
	if p.SEO, err = s.SEO(ctx); err != nil {
		return Public{}, err
	}
	if p.Frontend, err = s.Frontend(ctx); err != nil {
		return Public{}, err
	}
	return p, nil
}

// Put validates raw against the key's schema and stores the normalized value.
func (s *SettingsService) Put(ctx context.Context, key string, raw []byte) (any, error) {
	v, err := settings.Parse(key, raw)
	if err != nil {
		return nil, invalid(err)
	}
	normalized, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	err = s.Q.Mutate(ctx, func(ctx context.Context) error {
		return s.Repo.Put(ctx, key, normalized)
	}, keySetting(key))
	if err != nil {
		return nil, err
	}
	return v, nil
}
