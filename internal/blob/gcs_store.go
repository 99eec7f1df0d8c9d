package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/cesarano/2026-Strategy/internal/gcp"
	"google.golang.org/api/iterator"
)

const (
	maxUploadRetries = 4
	uploadTimeout    = 50 * time.Second
)

// GCSStore keeps images as objects under a prefix of a Cloud Storage bucket.
type GCSStore struct {
	bucket         *storage.BucketHandle
	prefix         string
	initialBackoff time.Duration
}

func NewGCSStore(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{bucket: client.Bucket(bucket), prefix: strings.Trim(prefix, "/"), initialBackoff: time.Second}
}

func (s *GCSStore) object(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return s.objectPrefix() + name, nil
}

func (s *GCSStore) objectPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

// Put never overwrites, so a retried upload that already landed succeeds.
func (s *GCSStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	obj, err := s.object(name)
	if err != nil {
		return err
	}

	backoff := s.initialBackoff
	var lastErr error
	for i := 0; i < maxUploadRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
			defer cancel()
			return gcp.SaveToGCSAtomically(writeCtx, s.bucket, obj, data, contentType)
		}()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", obj,
			"attempt", i+1,
			"maxRetries", maxUploadRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("upload for %s failed after all retries: %w", obj, lastErr)
}

func (s *GCSStore) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.object(name)
	if err != nil {
		return nil, err
	}
	data, err := gcp.ReadObject(ctx, s.bucket, obj)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

func (s *GCSStore) Exists(ctx context.Context, name string) (bool, error) {
	obj, err := s.object(name)
	if err != nil {
		return false, err
	}
	if _, err := s.bucket.Object(obj).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat gs object %s: %w", obj, err)
	}
	return true, nil
}

func (s *GCSStore) Delete(ctx context.Context, name string) error {
	obj, err := s.object(name)
	if err != nil {
		return err
	}
	if err := s.bucket.Object(obj).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete gs object %s: %w", obj, err)
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	base := s.objectPrefix()
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: base + prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs objects: %w", err)
		}
		name := strings.TrimPrefix(attrs.Name, base)
		if ValidName(name) {
			names = append(names, name)
		}
	}
	return names, nil
}
