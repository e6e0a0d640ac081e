// Package settings types the storefront's key/value configuration rows.
// Each key decodes into its own struct; anything absent or malformed falls
// back to the defaults below.
package settings

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	applog "tokoku/internal/log"
)

const (
	KeyCOD      = "cod"
	KeySEO      = "seo"
	KeyFrontend = "frontend"
)

var ErrInvalid = errors.New("invalid settings")

type CODSettings struct {
	Enabled               bool            `json:"enabled"`
	DeliveryFee           decimal.Decimal `json:"delivery_fee"`
	MinOrder              decimal.Decimal `json:"min_order"`
	FreeShippingThreshold decimal.Decimal `json:"free_shipping_threshold"`
}

type SEOSettings struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	OGImage     string   `json:"og_image"`
}

type FrontendSettings struct {
	LogoURL    string   `json:"logo_url"`
	BannerURLs []string `json:"banner_urls"`
	HeaderText string   `json:"header_text"`
	FooterText string   `json:"footer_text"`
}

func DefaultCOD() CODSettings {
	return CODSettings{
		Enabled:               true,
		DeliveryFee:           decimal.NewFromInt(10000),
		MinOrder:              decimal.NewFromInt(20000),
		FreeShippingThreshold: decimal.Zero,
	}
}

func DefaultSEO() SEOSettings {
	return SEOSettings{
		Title:       "Tokoku",
		Description: "Belanja kebutuhan harian, bayar di tempat.",
		Keywords:    []string{"toko", "cod", "belanja"},
	}
}

func DefaultFrontend() FrontendSettings {
	return FrontendSettings{
		HeaderText: "Gratis ongkir untuk belanja tertentu",
		FooterText: "© Tokoku",
		BannerURLs: []string{},
	}
}

func (c CODSettings) Validate() error {
	var err error
	if c.DeliveryFee.IsNegative() {
		err = multierr.Append(err, errors.New("delivery_fee cannot be negative"))
	}
	if c.MinOrder.IsNegative() {
		err = multierr.Append(err, errors.New("min_order cannot be negative"))
	}
	if c.FreeShippingThreshold.IsNegative() {
		err = multierr.Append(err, errors.New("free_shipping_threshold cannot be negative"))
	}
	return err
}

func (s SEOSettings) Validate() error {
	var err error
	if s.Title == "" || len(s.Title) > 70 {
		err = multierr.Append(err, errors.New("title must be 1-70 characters"))
	}
	if len(s.Description) > 160 {
		err = multierr.Append(err, errors.New("description must be at most 160 characters"))
	}
	if s.OGImage != "" && !validURL(s.OGImage) {
		err = multierr.Append(err, errors.New("og_image must be a URL"))
	}
	return err
}

func (f FrontendSettings) Validate() error {
	var err error
	if f.LogoURL != "" && !validURL(f.LogoURL) {
		err = multierr.Append(err, errors.New("logo_url must be a URL"))
	}
	for _, b := range f.BannerURLs {
		if !validURL(b) {
			err = multierr.Append(err, errors.Errorf("banner url %q is not a URL", b))
		}
	}
	return err
}

// validURL accepts absolute http(s) URLs and site-relative paths.
func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme == "" {
		return u.Host == "" && len(u.Path) > 0 && u.Path[0] == '/'
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type validator interface{ Validate() error }

// decodeStrict decodes raw into v, rejecting unknown fields and anything after
// the value, then validates.
func decodeStrict(raw []byte, v validator) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.Wrap(ErrInvalid, "unexpected data after the value")
	}
	if err := v.Validate(); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	return nil
}

// ParseCOD decodes a stored value strictly. Fields missing from raw keep their
// default values.
func ParseCOD(raw []byte) (CODSettings, error) {
	v := DefaultCOD()
	if err := decodeStrict(raw, &v); err != nil {
		return CODSettings{}, err
	}
	return v, nil
}

func ParseSEO(raw []byte) (SEOSettings, error) {
	v := DefaultSEO()
	if err := decodeStrict(raw, &v); err != nil {
		return SEOSettings{}, err
	}
	return v, nil
}

func ParseFrontend(raw []byte) (FrontendSettings, error) {
	v := DefaultFrontend()
	if err := decodeStrict(raw, &v); err != nil {
		return FrontendSettings{}, err
	}
	return v, nil
}

// COD returns the stored settings, or the defaults when raw is absent or
// malformed. Malformed rows are logged.
func COD(raw []byte, ok bool) CODSettings {
	return orDefault(KeyCOD, raw, ok, ParseCOD, DefaultCOD)
}

func SEO(raw []byte, ok bool) SEOSettings {
	return orDefault(KeySEO, raw, ok, ParseSEO, DefaultSEO)
}

func Frontend(raw []byte, ok bool) FrontendSettings {
	return orDefault(KeyFrontend, raw, ok, ParseFrontend, DefaultFrontend)
}

func orDefault[T any](key string, raw []byte, ok bool, parse func([]byte) (T, error), def func() T) T {
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return def()
	}
	v, err := parse(raw)
	if err != nil {
		applog.L().Warn().Err(err).Str("key", key).Msg("[settings] malformed value, using defaults")
		return def()
	}
	return v
}

// Parse validates raw for key, returning the typed value.
func Parse(key string, raw []byte) (any, error) {
	switch key {
	case KeyCOD:
		return ParseCOD(raw)
	case KeySEO:
		return ParseSEO(raw)
	case KeyFrontend:
		return ParseFrontend(raw)
	}
	return nil, errors.Wrapf(ErrInvalid, "unknown settings key %q", key)
}

// ShippingCost is the COD delivery fee for an order subtotal; free once the
// subtotal reaches a positive threshold.
func ShippingCost(cod CODSettings, subtotal decimal.Decimal) decimal.Decimal {
	if cod.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(cod.FreeShippingThreshold) {
		return decimal.Zero
	}
	return cod.DeliveryFee
}

// MeetsMinimum reports whether subtotal satisfies the COD minimum order.
func MeetsMinimum(cod CODSettings, subtotal decimal.Decimal) bool {
	return subtotal.GreaterThanOrEqual(cod.MinOrder)
}
