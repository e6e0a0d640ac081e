package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newLocal(t *testing.T, max int64) (*Service, *LocalBackend) {
	t.Helper()
	b := NewLocalBackend(t.TempDir(), "http://localhost:8080/")
	s := NewService(b, max)
	s.now = func() time.Time { return time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC) }
	return s, b
}

func TestUpload_Local(t *testing.T) {
	s, b := newLocal(t, 1024)
	obj, err := s.Upload(context.Background(), BucketProductImages, "kopi.png", "image/png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.Equal(t, "image/png", obj.ContentType)
	assert.True(t, strings.HasPrefix(obj.Key, "2026/10/"))
	assert.True(t, strings.HasSuffix(obj.Key, ".png"))
	assert.Equal(t, "http://localhost:8080/media/product-images/"+obj.Key, obj.URL)

	got, err := os.ReadFile(filepath.Join(b.Root(), BucketProductImages, filepath.FromSlash(obj.Key)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, got)

	require.NoError(t, s.Delete(context.Background(), BucketProductImages, obj.Key))
	assert.ErrorIs(t, s.Delete(context.Background(), BucketProductImages, obj.Key), ErrNotFound)
}

func TestUpload_Rejections(t *testing.T) {
	s, _ := newLocal(t, 16)
	ctx := context.Background()

	_, err := s.Upload(ctx, "secrets", "a.png", "", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrUnknownBucket)

	_, err = s.Upload(ctx, BucketAvatars, "big.png", "", bytes.NewReader(append(pngHeader, make([]byte, 32)...)))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Upload(ctx, BucketAvatars, "notes.txt", "text/plain", strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrBadType)

	_, err = s.Upload(ctx, BucketAvatars, "empty.png", "", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrBadType)
}

func TestUpload_SVGOnlyWhereAllowed(t *testing.T) {
	s, _ := newLocal(t, 1024)
	ctx := context.Background()
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><rect/></svg>`

	obj, err := s.Upload(ctx, BucketCategoryIcons, "icon.svg", "image/svg+xml", strings.NewReader(svg))
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", obj.ContentType)

	_, err = s.Upload(ctx, BucketProductImages, "icon.svg", "image/svg+xml", strings.NewReader(svg))
	assert.ErrorIs(t, err, ErrBadType)

	evil := `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`
	_, err = s.Upload(ctx, BucketFrontendAssets, "x.svg", "image/svg+xml", strings.NewReader(evil))
	assert.ErrorIs(t, err, ErrBadType)
}

func TestCheckKey(t *testing.T) {
	for _, bad := range []string{"", "/etc/passwd", "../x.png", "a/../../b", "a//b", `a\b`} {
		assert.ErrorIs(t, CheckKey(bad), ErrBadKey, bad)
	}
	assert.NoError(t, CheckKey("2026/10/abc.png"))
}

func TestPublicURL(t *testing.T) {
	s, _ := newLocal(t, 1024)
	u, err := s.PublicURL(BucketAvatars, "2026/10/a.png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/avatars/2026/10/a.png", u)

	_, err = s.PublicURL(BucketAvatars, "../a.png")
	assert.ErrorIs(t, err, ErrBadKey)
}

func TestS3BackendURL(t *testing.T) {
	b := &S3Backend{prefix: "tokoku-", region: "ap-southeast-1"}
	assert.Equal(t, "https://tokoku-avatars.s3.ap-southeast-1.amazonaws.com/k.png", b.URL(BucketAvatars, "k.png"))

	b.endpoint = "http://minio:9000"
	assert.Equal(t, "http://minio:9000/tokoku-avatars/k.png", b.URL(BucketAvatars, "k.png"))
}
