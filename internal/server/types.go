package server

// CreateGenerationRequest is the payload accepted by POST /api/generations.
type CreateGenerationRequest struct {
	Prompt        string `json:"prompt"`
	ImageBase64   string `json:"image_base64,omitempty" validate:"omitempty,base64"`
	ImageMIMEType string `json:"image_mime_type,omitempty"`
	VideoCount    int    `json:"video_count,omitempty" validate:"omitempty,min=1,max=4"`
}

// CreateGenerationResponse acknowledges an accepted generation request.
type CreateGenerationResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// VideoInfo describes one materialized video of a generation.
type VideoInfo struct {
	Index    int    `json:"index"`
	FileName string `json:"file_name"`
	URL      string `json:"url"`
	S3URL    string `json:"s3_url,omitempty"`
	Size     int64  `json:"size"`
}

// GenerationResponse is the snapshot returned by GET /api/generations/{id}.
type GenerationResponse struct {
	ID                string      `json:"id"`
	Status            string      `json:"status"`
	Prompt            string      `json:"prompt"`
	HasImage          bool        `json:"has_image"`
	VideoCount        int         `json:"video_count"`
	Progress          string      `json:"progress,omitempty"`
	Error             string      `json:"error,omitempty"`
	QuotaExceeded     bool        `json:"quota_exceeded,omitempty"`
	InvalidCredential bool        `json:"invalid_credential,omitempty"`
	Videos            []VideoInfo `json:"videos,omitempty"`
	CreatedAt         string      `json:"created_at"`
	UpdatedAt         string      `json:"updated_at"`
}

// SaveKeyRequest is the payload accepted by PUT /api/key. A blank key
// clears the stored credential.
type SaveKeyRequest struct {
	APIKey string `json:"api_key"`
}

// KeyStatusResponse reports where the active API key comes from without
// ever echoing the key itself.
type KeyStatusResponse struct {
	Configured bool   `json:"configured"`
	Source     string `json:"source"`
}

// ErrorResponse is the error envelope for all API endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Event is pushed over the per-generation WebSocket while a job runs.
type Event struct {
	Type              string `json:"type"`
	JobID             string `json:"job_id"`
	Status            string `json:"status,omitempty"`
	Message           string `json:"message,omitempty"`
	Index             int    `json:"index,omitempty"`
	VideoURL          string `json:"video_url,omitempty"`
	QuotaExceeded     bool   `json:"quota_exceeded,omitempty"`
	InvalidCredential bool   `json:"invalid_credential,omitempty"`
}

// Event types pushed to subscribed browsers.
const (
	EventStatus    = "status"
	EventProgress  = "progress"
	EventVideo     = "video"
	EventCompleted = "completed"
	EventFailed    = "failed"
)
