package models

// These structs define the JSON payloads exchanged with the HTTP entry points.

// EnhanceResponse is returned by the crop-enhance endpoint.
type EnhanceResponse struct {
	Message         string `json:"message"`
	DisplayImageURL string `json:"displayImageUrl"`
}

// SetDisplayImageRequest is the body of the set-display-image endpoint.
type SetDisplayImageRequest struct {
	Version string `json:"version"`
}

// SetDisplayImageResponse is returned by the set-display-image endpoint.
type SetDisplayImageResponse struct {
	Message         string `json:"message"`
	DisplayImageURL string `json:"displayImageUrl"`
}

// ReceiptPatch is a partial update of a receipt's metadata. Nil fields are
// left unchanged; image references, id and createdAt cannot be patched.
type ReceiptPatch struct {
	StoreName   *string        `json:"storeName" validate:"omitempty,max=200"`
	Date        *string        `json:"date" validate:"omitempty,datetime=2006-01-02"`
	TotalAmount *float64       `json:"totalAmount" validate:"omitempty,gte=0"`
	Currency    *string        `json:"currency" validate:"omitempty,alpha,len=3"`
	Category    *string        `json:"category" validate:"omitempty,max=100"`
	Items       *[]ReceiptItem `json:"items" validate:"omitempty,dive"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// MessageResponse is a generic success body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ChatFile is a file attached to a strategy-assistant prompt.
type ChatFile struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"` // base64 in JSON
}

// StrategyChatRequest is the input for the strategy-chat function.
type StrategyChatRequest struct {
	SessionID string         `json:"sessionId,omitempty"`
	Prompt    string         `json:"prompt"`
	Context   map[string]any `json:"context,omitempty"`
	Files     []ChatFile     `json:"files,omitempty"`
}

// StrategyChatResponse is the output of the strategy-chat function.
type StrategyChatResponse struct {
	SessionID string         `json:"sessionId"`
	Reply     ChatMessage    `json:"reply"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// GCSEvent is the payload of a Cloud Storage object-finalized event.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}
