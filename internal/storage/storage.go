// Package storage keeps uploaded images and assets in named buckets on the
// local disk or in S3 and hands out their public URLs.
package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	BucketProductImages  = "product-images"
	BucketCategoryIcons  = "category-icons"
	BucketAvatars        = "avatars"
	BucketFrontendAssets = "frontend-assets"
)

var Buckets = []string{BucketProductImages, BucketCategoryIcons, BucketAvatars, BucketFrontendAssets}

var (
	ErrUnknownBucket = errors.New("unknown bucket")
	ErrTooLarge      = errors.New("file too large")
	ErrBadType       = errors.New("unsupported file type")
	ErrBadKey        = errors.New("invalid object key")
	ErrNotFound      = errors.New("object not found")
)

// Backend stores raw objects.
type Backend interface {
	Put(ctx context.Context, bucket, key, contentType string, data []byte) error
	Delete(ctx context.Context, bucket, key string) error
	URL(bucket, key string) string
}

var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

const svgType = "image/svg+xml"

func allowsSVG(bucket string) bool {
	return bucket == BucketCategoryIcons || bucket == BucketFrontendAssets
}

func KnownBucket(b string) bool {
	for _, k := range Buckets {
		if k == b {
			return true
		}
	}
	return false
}

// Object describes a stored upload.
type Object struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Service struct {
	backend  Backend
	maxBytes int64
	now      func() time.Time
}

func NewService(b Backend, maxBytes int64) *Service {
	return &Service{backend: b, maxBytes: maxBytes, now: time.Now}
}

// Upload validates and stores r under a fresh key in bucket. The content type
// is sniffed from the data; the declared type only matters for SVG, which
// cannot be sniffed.
func (s *Service) Upload(ctx context.Context, bucket, name, declaredType string, r io.Reader) (Object, error) {
	if !KnownBucket(bucket) {
		return Object{}, errors.Wrap(ErrUnknownBucket, bucket)
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Object{}, errors.Wrap(err, "storage: read upload")
	}
	if int64(len(data)) > s.maxBytes {
		return Object{}, errors.Wrapf(ErrTooLarge, "limit is %d bytes", s.maxBytes)
	}
	if len(data) == 0 {
		return Object{}, errors.Wrap(ErrBadType, "empty file")
	}

	ct, ext, err := detectType(bucket, name, declaredType, data)
	if err != nil {
		return Object{}, err
	}
	key := s.now().UTC().Format("2006/01/") + uuid.NewString() + ext
	if err := s.backend.Put(ctx, bucket, key, ct, data); err != nil {
		return Object{}, errors.Wrap(err, "storage: put")
	}
	return Object{Bucket: bucket, Key: key, URL: s.backend.URL(bucket, key), ContentType: ct, Size: int64(len(data))}, nil
}

func detectType(bucket, name, declared string, data []byte) (string, string, error) {
	sniffed := http.DetectContentType(data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	if ext, ok := imageTypes[sniffed]; ok {
		return sniffed, ext, nil
	}
	if allowsSVG(bucket) && looksLikeSVG(name, declared, data) {
		return svgType, ".svg", nil
	}
	return "", "", errors.Wrapf(ErrBadType, "%s", sniffed)
}

func looksLikeSVG(name, declared string, data []byte) bool {
	if declared != svgType && !strings.EqualFold(path.Ext(name), ".svg") {
		return false
	}
	head := bytes.ToLower(data[:min(len(data), 512)])
	if bytes.Contains(head, []byte("<script")) {
		return false
	}
	return bytes.Contains(head, []byte("<svg"))
}

// CheckKey rejects keys that could escape the bucket.
func CheckKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrBadKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrBadKey
		}
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, bucket, key string) error {
	if !KnownBucket(bucket) {
		return errors.Wrap(ErrUnknownBucket, bucket)
	}
	if err := CheckKey(key); err != nil {
		return err
	}
	return s.backend.Delete(ctx, bucket, key)
}

func (s *Service) PublicURL(bucket, key string) (string, error) {
	if !KnownBucket(bucket) {
		return "", errors.Wrap(ErrUnknownBucket, bucket)
	}
	if err := CheckKey(key); err != nil {
		return "", err
	}
	return s.backend.URL(bucket, key), nil
}
