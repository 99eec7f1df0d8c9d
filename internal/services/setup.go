package services

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/cesarano/2026-Strategy/internal/blob"
	"github.com/cesarano/2026-Strategy/internal/config"
	"github.com/cesarano/2026-Strategy/internal/extract"
	"github.com/cesarano/2026-Strategy/internal/gcp"
	"github.com/cesarano/2026-Strategy/internal/store"
	"github.com/cesarano/2026-Strategy/internal/transform"
	"github.com/go-git/go-billy/v5/osfs"
)

// Clients holds the process-wide cloud clients. Fields are nil when the
// configuration does not need them.
type Clients struct {
	Vertex  *gcp.VertexClient
	Storage *storage.Client
}

// NewClients creates the clients cfg requires.
func NewClients(ctx context.Context, cfg *config.Config) (*Clients, error) {
	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	c := &Clients{Vertex: vertexClient}
	if cfg.ImageStore == config.StoreGCS || cfg.IntakeBucket != "" {
		if c.Storage, err = gcp.NewStorageClient(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewReceiptServiceFromConfig wires the record store, image store and
// extractor selected by cfg.
func NewReceiptServiceFromConfig(ctx context.Context, cfg *config.Config, clients *Clients) (*ReceiptService, error) {
	logger := slog.Default()

	var records store.ReceiptStore
	switch cfg.ReceiptStore {
	case config.StoreFirestore:
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID, cfg.FirestoreDatabase)
		if err != nil {
			return nil, err
		}
		records = store.NewFirestoreStore(client, cfg.FirestoreCollection, logger)
	default:
		fileStore, err := store.NewFileStore(osfs.New(cfg.ReceiptsDir()), ".", logger)
		if err != nil {
			return nil, err
		}
		records = fileStore
	}

	var images blob.ImageStore
	switch cfg.ImageStore {
	case config.StoreGCS:
		images = blob.NewGCSStore(clients.Storage, cfg.ReceiptImagesBucket, blob.GCSPrefix)
	default:
		fileStore, err := blob.NewFileStore(osfs.New(cfg.ReceiptImagesDir()), ".")
		if err != nil {
			return nil, err
		}
		images = fileStore
	}

	extractor, err := extract.NewVertexExtractor(clients.Vertex.ReceiptModel, logger)
	if err != nil {
		return nil, err
	}

	slog.Info("Receipt service initialized.", "receiptStore", cfg.ReceiptStore, "imageStore", cfg.ImageStore)
	return NewReceiptService(records, images, extractor, transform.NewEngine(), logger), nil
}

// NewStrategyServiceFromConfig wires the chat store and the strategy model.
func NewStrategyServiceFromConfig(cfg *config.Config, clients *Clients) (*StrategyService, error) {
	chats, err := store.NewChatStore(osfs.New(cfg.DataDir), ".", slog.Default())
	if err != nil {
		return nil, err
	}
	responder := &VertexResponder{Model: clients.Vertex.StrategyModel}
	slog.Info("Strategy service initialized.", "model", clients.Vertex.ModelName)
	return NewStrategyService(chats, responder, clients.Vertex.ModelName, slog.Default()), nil
}
