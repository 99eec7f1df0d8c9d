package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/cesarano/2026-Strategy/internal/gcp"
	"github.com/cesarano/2026-Strategy/internal/models"
)

// ObjectFetcher downloads an object named by a storage event.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, object string) ([]byte, error)
}

// GCSFetcher reads objects from Cloud Storage.
type GCSFetcher struct {
	Client *storage.Client
}

func (f *GCSFetcher) Fetch(ctx context.Context, bucket, object string) ([]byte, error) {
	return gcp.ReadObject(ctx, f.Client.Bucket(bucket), object)
}

// IngestFunction creates receipts from images dropped into the intake bucket.
type IngestFunction struct {
	receipts     *ReceiptService
	fetcher      ObjectFetcher
	bucket       string
	ignorePrefix string
}

// NewIngestFunction accepts events from bucket only; an empty bucket accepts any.
// Objects under ignorePrefix are image files this service wrote itself and are
// never ingested.
func NewIngestFunction(receipts *ReceiptService, fetcher ObjectFetcher, bucket, ignorePrefix string) *IngestFunction {
	return &IngestFunction{receipts: receipts, fetcher: fetcher, bucket: bucket, ignorePrefix: ignorePrefix}
}

// Process handles one object-finalized event. Events for other buckets,
// folders and non-image objects are skipped and return (nil, nil).
func (f *IngestFunction) Process(ctx context.Context, e models.GCSEvent) (*models.Receipt, error) {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	if f.bucket != "" && e.Bucket != f.bucket {
		logCtx.Warn("Event is for an unexpected bucket, skipping.", "expected", f.bucket)
		return nil, nil
	}
	if e.Name == "" || strings.HasSuffix(e.Name, "/") {
		logCtx.Info("Object is a folder placeholder, skipping.")
		return nil, nil
	}
	if f.ignorePrefix != "" && strings.HasPrefix(e.Name, f.ignorePrefix) {
		logCtx.Info("Object is a stored receipt image, skipping.", "prefix", f.ignorePrefix)
		return nil, nil
	}
	if e.ContentType != "" && !strings.HasPrefix(e.ContentType, "image/") {
		logCtx.Info("Object is not an image, skipping.", "contentType", e.ContentType)
		return nil, nil
	}

	data, err := f.fetcher.Fetch(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download intake object", "error", err)
		return nil, fmt.Errorf("failed to download %s/%s: %w", e.Bucket, e.Name, err)
	}

	r, err := f.receipts.Create(ctx, data, e.ContentType, path.Base(e.Name))
	if err != nil {
		logCtx.Error("Failed to create receipt from intake object", "error", err)
		return nil, err
	}
	logCtx.Info("Receipt ingested.", "receiptId", r.ID)
	return r, nil
}
