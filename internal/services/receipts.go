package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/cesarano/2026-Strategy/internal/blob"
	"github.com/cesarano/2026-Strategy/internal/extract"
	"github.com/cesarano/2026-Strategy/internal/models"
	"github.com/cesarano/2026-Strategy/internal/store"
	"github.com/cesarano/2026-Strategy/internal/transform"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Defaults applied to fields the extractor could not read.
const (
	DefaultStoreName = "Unknown Store"
	DefaultCurrency  = "USD"
	DefaultCategory  = "Uncategorized"
)

const imageDeleteConcurrency = 4

var validate = validator.New()

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// ReceiptService owns the receipt lifecycle: creation from an uploaded image,
// metadata edits, image enhancement, display selection and deletion.
type ReceiptService struct {
	records     store.ReceiptStore
	images      blob.ImageStore
	extractor   extract.Extractor
	transformer transform.Transformer
	logger      *slog.Logger
	now         func() time.Time
	locks       *keyedMutex
}

func NewReceiptService(records store.ReceiptStore, images blob.ImageStore, extractor extract.Extractor, transformer transform.Transformer, logger *slog.Logger) *ReceiptService {
	if logger == nil {
		logger = slog.Default()
	}
	if transformer == nil {
		transformer = transform.NewEngine()
	}
	return &ReceiptService{
		records:     records,
		images:      images,
		extractor:   extractor,
		transformer: transformer,
		logger:      logger,
		now:         time.Now,
		locks:       newKeyedMutex(),
	}
}

func (s *ReceiptService) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// Create stores the uploaded image, extracts its fields and persists a new
// record that displays the original image. Nothing is persisted when
// extraction fails.
func (s *ReceiptService) Create(ctx context.Context, image []byte, mimeType, originalFilename string) (*models.Receipt, error) {
	if len(image) == 0 {
		return nil, apperr.Validation("no image uploaded")
	}
	detected := mimetype.Detect(image)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, apperr.Validation("uploaded file is not an image")
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = detected.String()
	}

	now := s.now()
	fileName := fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString(), uploadExtension(originalFilename, detected))
	logCtx := s.logger.With("fileName", fileName, "mimeType", mimeType)
	logCtx.Info("Creating receipt from upload.", "originalFilename", originalFilename, "bytes", len(image))

	if err := s.images.Put(ctx, fileName, image, mimeType); err != nil {
		logCtx.Error("Failed to store uploaded image", "error", err)
		return nil, apperr.Wrap(apperr.CodeCreation, "failed to save receipt image", err)
	}

	extracted, err := s.extractor.Extract(ctx, image, mimeType)
	if err != nil {
		logCtx.Error("Receipt extraction failed", "error", err)
		s.removeImage(ctx, logCtx, fileName)
		return nil, apperr.Wrap(apperr.CodeCreation, "failed to process receipt", err)
	}

	ts := now.UTC().Format(time.RFC3339)
	r := &models.Receipt{
		ID:               uuid.NewString(),
		StoreName:        orDefault(extracted.StoreName, DefaultStoreName),
		Date:             orDefault(extracted.Date, now.UTC().Format("2006-01-02")),
		TotalAmount:      extracted.TotalAmount,
		Currency:         orDefault(extracted.Currency, DefaultCurrency),
		Category:         orDefault(extracted.Category, DefaultCategory),
		Items:            extracted.Items,
		OriginalImageURL: blob.URL(fileName),
		DisplayVersion:   models.DisplayOriginal,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
	if r.TotalAmount == nil {
		zero := 0.0
		r.TotalAmount = &zero
	}
	if r.Items == nil {
		r.Items = []models.ReceiptItem{}
	}

	if err := s.records.Save(ctx, r); err != nil {
		logCtx.Error("Failed to save receipt record", "error", err, "receiptId", r.ID)
		s.removeImage(ctx, logCtx, fileName)
		return nil, apperr.Wrap(apperr.CodeCreation, "failed to save receipt", err)
	}
	logCtx.Info("Receipt created.", "receiptId", r.ID, "items", len(r.Items))
	return r, nil
}

func uploadExtension(originalFilename string, detected *mimetype.MIME) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if safeExt.MatchString(ext) {
		return ext
	}
	return detected.Extension()
}

func orDefault(v *string, fallback string) *string {
	if v != nil && *v != "" {
		return v
	}
	return &fallback
}

// Get returns one record.
func (s *ReceiptService) Get(ctx context.Context, id string) (*models.Receipt, error) {
	r, err := s.records.Get(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load receipt", "receiptId", id, "error", err)
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound("receipt not found")
	}
	return r, nil
}

// List returns every record, newest first. A storage failure is logged and
// yields an empty list.
func (s *ReceiptService) List(ctx context.Context) []*models.Receipt {
	receipts, err := s.records.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list receipts", "error", err)
		return []*models.Receipt{}
	}
	return receipts
}

// Update applies a metadata patch. Image references are not patchable.
func (s *ReceiptService) Update(ctx context.Context, id string, patch models.ReceiptPatch) (*models.Receipt, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "invalid receipt update", err)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.StoreName != nil {
		r.StoreName = patch.StoreName
	}
	if patch.Date != nil {
		r.Date = patch.Date
	}
	if patch.TotalAmount != nil {
		r.TotalAmount = patch.TotalAmount
	}
	if patch.Currency != nil {
		currency := strings.ToUpper(*patch.Currency)
		r.Currency = &currency
	}
	if patch.Category != nil {
		r.Category = patch.Category
	}
	if patch.Items != nil {
		r.Items = *patch.Items
		if r.Items == nil {
			r.Items = []models.ReceiptItem{}
		}
	}
	r.UpdatedAt = s.timestamp()

	if err := s.records.Save(ctx, r); err != nil {
		s.logger.Error("Failed to save receipt update", "receiptId", id, "error", err)
		return nil, err
	}
	return r, nil
}

// Enhance transforms the original image, stores the result as a new derived
// file and makes it the displayed image. The original is never modified, so
// calling Enhance again always starts from the original. Earlier derived
// files are kept until the receipt is deleted.
func (s *ReceiptService) Enhance(ctx context.Context, id string, opts transform.Options) (*models.Receipt, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	logCtx := s.logger.With("receiptId", id)

	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	original, err := s.readImage(ctx, r.OriginalImageURL)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidName) {
			logCtx.Warn("Original image file is missing", "originalImageUrl", r.OriginalImageURL)
			return nil, apperr.NotFound("original image file not found")
		}
		logCtx.Error("Failed to read original image", "error", err)
		return nil, apperr.Wrap(apperr.CodeProcessing, "failed to crop and enhance image", err)
	}

	out, err := s.transformer.Process(original, opts)
	if err != nil {
		if apperr.Is(err, apperr.CodeValidation) {
			return nil, err
		}
		logCtx.Error("Image transform failed", "error", err)
		return nil, apperr.Wrap(apperr.CodeProcessing, "failed to crop and enhance image", err)
	}

	format, err := transform.DetectFormat(out)
	if err != nil {
		logCtx.Error("Transformed image is unreadable", "error", err)
		return nil, apperr.Wrap(apperr.CodeProcessing, "failed to crop and enhance image", err)
	}
	derived := fmt.Sprintf("%s%d-%s%s", derivedPrefix(id), s.now().UnixMilli(), uuid.NewString(), transform.Extension(format))
	if err := s.images.Put(ctx, derived, out, transform.MIMEType(format)); err != nil {
		logCtx.Error("Failed to store optimized image", "error", err, "fileName", derived)
		return nil, apperr.Wrap(apperr.CodeProcessing, "failed to crop and enhance image", err)
	}

	r.OptimizedImageURL = blob.URL(derived)
	r.DisplayVersion = models.DisplayOptimized
	r.UpdatedAt = s.timestamp()
	if err := s.records.Save(ctx, r); err != nil {
		logCtx.Error("Failed to save enhanced receipt", "error", err)
		s.removeImage(ctx, logCtx, derived)
		return nil, apperr.Wrap(apperr.CodeProcessing, "failed to crop and enhance image", err)
	}

	logCtx.Info("Receipt image enhanced.", "optimizedImageUrl", r.OptimizedImageURL, "bytes", len(out))
	return r, nil
}

// SetDisplayVersion selects which image the record displays.
func (s *ReceiptService) SetDisplayVersion(ctx context.Context, id, version string) (*models.Receipt, error) {
	v, err := models.ParseDisplayVersion(version)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "invalid version specified", err)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == models.DisplayOptimized && r.OptimizedImageURL == "" {
		return nil, apperr.InvalidState("optimized image not available")
	}
	if r.DisplayVersion == v {
		return r, nil
	}

	r.DisplayVersion = v
	r.UpdatedAt = s.timestamp()
	if err := s.records.Save(ctx, r); err != nil {
		s.logger.Error("Failed to save display version", "receiptId", id, "error", err)
		return nil, err
	}
	return r, nil
}

// Delete removes the record and then, best effort, its original image and
// every optimized image ever derived from it. It reports false when the id
// is unknown.
func (s *ReceiptService) Delete(ctx context.Context, id string) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	logCtx := s.logger.With("receiptId", id)

	r, err := s.records.Get(ctx, id)
	if err != nil {
		logCtx.Error("Failed to load receipt for deletion", "error", err)
		return false, err
	}
	if r == nil {
		return false, nil
	}

	deleted, err := s.records.Delete(ctx, id)
	if err != nil {
		logCtx.Error("Failed to delete receipt record", "error", err)
		return false, err
	}
	if !deleted {
		return false, nil
	}

	names := map[string]struct{}{}
	for _, ref := range []string{r.OriginalImageURL, r.OptimizedImageURL} {
		if ref == "" {
			continue
		}
		name, err := blob.NameFromURL(ref)
		if err != nil {
			logCtx.Warn("Skipping unresolvable image reference", "ref", ref)
			continue
		}
		names[name] = struct{}{}
	}
	derived, err := s.images.List(ctx, derivedPrefix(id))
	if err != nil {
		logCtx.Warn("Failed to list earlier optimized images", "error", err)
	}
	for _, name := range derived {
		names[name] = struct{}{}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imageDeleteConcurrency)
	for name := range names {
		g.Go(func() error {
			s.removeImage(gctx, logCtx, name)
			return nil
		})
	}
	_ = g.Wait()

	logCtx.Info("Receipt deleted.")
	return true, nil
}

// DisplayImage returns the bytes, content type and file name of the image
// the record currently displays.
func (s *ReceiptService) DisplayImage(ctx context.Context, id string) ([]byte, string, string, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", "", err
	}
	ref := r.DisplayImageURL()
	data, err := s.readImage(ctx, ref)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidName) {
			return nil, "", "", apperr.NotFound("image file not found")
		}
		return nil, "", "", apperr.Wrap(apperr.CodeStorage, "failed to read image", err)
	}
	return data, mimetype.Detect(data).String(), strings.TrimPrefix(ref, blob.URLPrefix), nil
}

// Image returns a stored image file by name.
func (s *ReceiptService) Image(ctx context.Context, name string) ([]byte, string, error) {
	if !blob.ValidName(name) {
		return nil, "", apperr.NotFound("image file not found")
	}
	data, err := s.images.Get(ctx, name)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, "", apperr.NotFound("image file not found")
		}
		return nil, "", apperr.Wrap(apperr.CodeStorage, "failed to read image", err)
	}
	return data, mimetype.Detect(data).String(), nil
}

// derivedPrefix is the file name prefix shared by every optimized image of id.
func derivedPrefix(id string) string {
	return id + "-optimized-"
}

func (s *ReceiptService) readImage(ctx context.Context, ref string) ([]byte, error) {
	name, err := blob.NameFromURL(ref)
	if err != nil {
		return nil, err
	}
	return s.images.Get(ctx, name)
}

func (s *ReceiptService) removeImage(ctx context.Context, logCtx *slog.Logger, name string) {
	if err := s.images.Delete(ctx, name); err != nil && !errors.Is(err, blob.ErrNotFound) {
		logCtx.Warn("Failed to remove image file", "fileName", name, "error", err)
	}
}
