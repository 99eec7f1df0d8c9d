package store

import (
	"context"
	"errors"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/cesarano/2026-Strategy/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps one document per receipt, keyed by receipt id.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

// NewFirestoreStore returns a store over the given collection.
func NewFirestoreStore(client *firestore.Client, collection string, logger *slog.Logger) *FirestoreStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FirestoreStore{client: client, collection: collection, logger: logger}
}

func (s *FirestoreStore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

// Save overwrites the document with the full record.
func (s *FirestoreStore) Save(ctx context.Context, r *models.Receipt) error {
	if !ValidID(r.ID) {
		return apperr.Validation("invalid receipt id")
	}
	if _, err := s.doc(r.ID).Set(ctx, r.Raw()); err != nil {
		return apperr.Wrap(apperr.CodeStorage, "failed to save receipt", err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*models.Receipt, error) {
	if !ValidID(id) {
		return nil, nil
	}
	snap, err := s.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, "failed to read receipt", err)
	}
	var raw models.RawReceipt
	if err := snap.DataTo(&raw); err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, "failed to decode receipt", err)
	}
	if raw.ID == "" {
		raw.ID = snap.Ref.ID
	}
	return Normalize(raw), nil
}

// List reads the whole collection. Documents that fail to decode are logged
// and skipped.
func (s *FirestoreStore) List(ctx context.Context) ([]*models.Receipt, error) {
	it := s.client.Collection(s.collection).Documents(ctx)
	defer it.Stop()

	receipts := []*models.Receipt{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeStorage, "failed to list receipts", err)
		}
		var raw models.RawReceipt
		if err := snap.DataTo(&raw); err != nil {
			s.logger.Error("Failed to decode receipt document, skipping.", "documentId", snap.Ref.ID, "error", err)
			continue
		}
		if raw.ID == "" {
			raw.ID = snap.Ref.ID
		}
		receipts = append(receipts, Normalize(raw))
	}

	SortNewestFirst(receipts)
	return receipts, nil
}

// Delete removes the document, reporting false when it did not exist.
func (s *FirestoreStore) Delete(ctx context.Context, id string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	_, err := s.doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.CodeStorage, "failed to delete receipt", err)
	}
	return true, nil
}
