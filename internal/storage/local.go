package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// LocalBackend writes objects to <root>/<bucket>/<key> and serves them from
// <baseURL>/media/<bucket>/<key>.
type LocalBackend struct {
	root    string
	baseURL string
}

func NewLocalBackend(root, baseURL string) *LocalBackend {
	return &LocalBackend{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (l *LocalBackend) Root() string { return l.root }

func (l *LocalBackend) path(bucket, key string) (string, error) {
	if !KnownBucket(bucket) {
		return "", ErrUnknownBucket
	}
	if err := CheckKey(key); err != nil {
		return "", err
	}
	return filepath.Join(l.root, bucket, filepath.FromSlash(key)), nil
}

func (l *LocalBackend) Put(_ context.Context, bucket, key, _ string, data []byte) error {
	p, err := l.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "mkdir")
	}
	return errors.Wrap(os.WriteFile(p, data, 0o644), "write")
}

func (l *LocalBackend) Delete(_ context.Context, bucket, key string) error {
	p, err := l.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return errors.Wrap(err, "remove")
	}
	return nil
}

func (l *LocalBackend) URL(bucket, key string) string {
	return l.baseURL + "/media/" + bucket + "/" + key
}
