package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cesarano/2026-Strategy/internal/api"
	"github.com/cesarano/2026-Strategy/internal/config"
	"github.com/cesarano/2026-Strategy/internal/services"
)

var (
	handler http.Handler
	once    sync.Once
	initErr error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleReceipts" is the entry point name configured in GCP.
	functions.HTTP("HandleReceipts", handleReceipts)
}

// main is required by the Go Functions Framework.
func main() {}

func setup(ctx context.Context) (http.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	clients, err := services.NewClients(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewReceiptServiceFromConfig(ctx, cfg, clients)
	if err != nil {
		return nil, err
	}
	return api.NewReceiptsHandler(svc), nil
}

func handleReceipts(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		handler, initErr = setup(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: receipts service initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	handler.ServeHTTP(w, r)
}
