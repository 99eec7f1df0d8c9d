package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cesarano/2026-Strategy/internal/blob"
	"github.com/cesarano/2026-Strategy/internal/config"
	"github.com/cesarano/2026-Strategy/internal/models"
	"github.com/cesarano/2026-Strategy/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	ingestInstance *services.IngestFunction
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Triggered by object finalize events on the intake bucket.
	functions.CloudEvent("IngestReceipt", ingestReceipt)
}

// main is required by the Go Functions Framework.
func main() {}

func setup(ctx context.Context) (*services.IngestFunction, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.IntakeBucket == "" {
		return nil, fmt.Errorf("INTAKE_BUCKET environment variable must be set")
	}
	clients, err := services.NewClients(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewReceiptServiceFromConfig(ctx, cfg, clients)
	if err != nil {
		return nil, err
	}
	return services.NewIngestFunction(svc, &services.GCSFetcher{Client: clients.Storage}, cfg.IntakeBucket, blob.GCSPrefix+"/"), nil
}

func ingestReceipt(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		ingestInstance, initErr = setup(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Returning the error marks the invocation as failed so the event is retried.
	_, err := ingestInstance.Process(ctx, gcsEvent)
	return err
}
