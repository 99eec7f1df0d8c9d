// Package config loads service configuration from an optional YAML file and
// the environment. Environment variables override the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cesarano/2026-Strategy/internal/gcp"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	StoreFile      = "file"
	StoreFirestore = "firestore"
	StoreGCS       = "gcs"
)

type Config struct {
	ProjectID      string `yaml:"PROJECT_ID" validate:"required"`
	VertexAIRegion string `yaml:"VERTEX_AI_REGION" validate:"required"`
	GeminiModel    string `yaml:"GEMINI_MODEL" validate:"required"`

	DataDir    string `yaml:"DATA_DIR" validate:"required"`
	UploadsDir string `yaml:"UPLOADS_DIR" validate:"required"`

	ReceiptStore        string `yaml:"RECEIPT_STORE" validate:"oneof=file firestore"`
	FirestoreDatabase   string `yaml:"FIRESTORE_DATABASE"`
	FirestoreCollection string `yaml:"FIRESTORE_COLLECTION" validate:"required_if=ReceiptStore firestore"`

	ImageStore          string `yaml:"IMAGE_STORE" validate:"oneof=file gcs"`
	ReceiptImagesBucket string `yaml:"RECEIPT_IMAGES_BUCKET" validate:"required_if=ImageStore gcs"`
	// An intake bucket that is also the image bucket would re-ingest every
	// stored image.
	IntakeBucket string `yaml:"INTAKE_BUCKET" validate:"omitempty,nefield=ReceiptImagesBucket"`
}

var validate = validator.New()

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		VertexAIRegion:      "us-central1",
		GeminiModel:         gcp.DefaultModel,
		DataDir:             "data",
		UploadsDir:          "uploads",
		ReceiptStore:        StoreFile,
		FirestoreCollection: "receipts",
		ImageStore:          StoreFile,
	}
}

// Load reads CONFIG_FILE when set, applies environment overrides and
// validates the result.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := gcp.GetEnv("CONFIG_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ProjectID = gcp.GetEnv("PROJECT_ID", gcp.GetEnv("GOOGLE_CLOUD_PROJECT", cfg.ProjectID))
	cfg.VertexAIRegion = gcp.GetEnv("VERTEX_AI_REGION", cfg.VertexAIRegion)
	cfg.GeminiModel = gcp.GetEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.DataDir = gcp.GetEnv("DATA_DIR", cfg.DataDir)
	cfg.UploadsDir = gcp.GetEnv("UPLOADS_DIR", cfg.UploadsDir)
	cfg.ReceiptStore = gcp.GetEnv("RECEIPT_STORE", cfg.ReceiptStore)
	cfg.FirestoreDatabase = gcp.GetEnv("FIRESTORE_DATABASE", cfg.FirestoreDatabase)
	cfg.FirestoreCollection = gcp.GetEnv("FIRESTORE_COLLECTION", cfg.FirestoreCollection)
	cfg.ImageStore = gcp.GetEnv("IMAGE_STORE", cfg.ImageStore)
	cfg.ReceiptImagesBucket = gcp.GetEnv("RECEIPT_IMAGES_BUCKET", cfg.ReceiptImagesBucket)
	cfg.IntakeBucket = gcp.GetEnv("INTAKE_BUCKET", cfg.IntakeBucket)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ReceiptsDir is where receipt records are kept by the file store.
func (c *Config) ReceiptsDir() string {
	return filepath.Join(c.DataDir, "receipts")
}

// ReceiptImagesDir is where uploaded and derived images are kept by the file store.
func (c *Config) ReceiptImagesDir() string {
	return filepath.Join(c.UploadsDir, "receipts")
}
