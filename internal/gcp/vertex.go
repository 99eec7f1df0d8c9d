package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// DefaultModel is used when GEMINI_MODEL is not configured.
const DefaultModel = "gemini-2.0-flash"

// --- Receipt Model Prompts ---
const ReceiptSystemPrompt = "You are a specialized receipt scanner. You read photographs of shop receipts and return the purchase details as a single strict JSON object."
const ReceiptUserPrompt = `Analyze the provided image of a receipt.
Extract the following information and return it as a strict JSON object:

- storeName: (string, or null if not found)
- date: (string in ISO 8601 format YYYY-MM-DD, or null)
- totalAmount: (number, or null)
- currency: (string, ISO 4217 code such as "USD" or "EUR", or null)
- category: (string, infer from items, e.g. "Groceries", "Dining", "Electronics", "Travel")
- items: (array of objects with "name" (string), "price" (number), "quantity" (number, default 1))

Ensure the JSON is valid. Do not include any markdown formatting like a json code fence. Return only the raw JSON object.`

// --- Strategy Model Prompts ---
const StrategySystemPrompt = "You are a strategy assistant. You help the user reason about plans, goals and decisions for the year ahead. Use any attached documents and context the user provides, cite them when relevant, and answer in Markdown."

// VertexClient holds all pre-configured generative models for our app.
type VertexClient struct {
	ReceiptModel  *genai.GenerativeModel
	StrategyModel *genai.GenerativeModel
	ModelName     string
	baseClient    *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	// --- Configure the receipt model ---
	receiptModel := baseClient.GenerativeModel(modelName)
	receiptModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ReceiptSystemPrompt)},
	}
	receiptModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	// --- Configure the strategy model ---
	strategyModel := baseClient.GenerativeModel(modelName)
	strategyModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(StrategySystemPrompt)},
	}
	strategyModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.7),
	}
	strategyModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
	}

	return &VertexClient{
		ReceiptModel:  receiptModel,
		StrategyModel: strategyModel,
		ModelName:     modelName,
		baseClient:    baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
