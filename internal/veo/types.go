// Package veo provides an HTTP client for the Veo video generation API
// exposed through the Generative Language service.
package veo

import "fmt"

// Video references one generated video on the provider side.
// The URI must be fetched with the API key appended as a query parameter.
type Video struct {
	URI string
}

// Operation is the provider-side handle for an in-flight generation job.
// A fresh submit returns an Operation that is usually not done yet; the
// same shape comes back from every poll until a terminal state is reached.
type Operation struct {
	// Name is the opaque operation identifier used for polling.
	Name string
	// Done reports whether the job reached a terminal state.
	Done bool
	// Videos holds the generated results in provider order (only when Done).
	Videos []Video
	// Err holds the provider failure (only when Done and the job failed).
	Err *APIError
}

// Image is an optional reference image for the generation request.
type Image struct {
	// Data is the raw image payload.
	Data []byte
	// MIMEType is the media type of Data, e.g. "image/png".
	MIMEType string
}

// GenerateParams contains the inputs for submitting a generation job.
type GenerateParams struct {
	// Model is the Veo model identifier, e.g. "veo-2.0-generate-001".
	Model string
	// Prompt is the text prompt for the video.
	Prompt string
	// Image is an optional reference image.
	Image *Image
	// SampleCount is the number of videos to generate (minimum 1).
	SampleCount int
}

// APIError is a structured failure reported by the provider, either as a
// non-2xx HTTP response or inside a completed operation. Raw preserves the
// provider's error body verbatim so callers can re-parse it.
type APIError struct {
	Code    int
	Message string
	Raw     string
}

// Error returns the provider's raw error body when available, so the
// structured shape survives the trip through the error chain.
func (e *APIError) Error() string {
	if e.Raw != "" {
		return e.Raw
	}
	return fmt.Sprintf("veo: API error %d: %s", e.Code, e.Message)
}

// DownloadError is returned when fetching a result video fails.
type DownloadError struct {
	StatusCode int
	Body       string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("veo: download failed with status %d: %s", e.StatusCode, e.Body)
}

// submitRequest is the request body for the predictLongRunning endpoint.
type submitRequest struct {
	Instances  []submitInstance `json:"instances"`
	Parameters submitParameters `json:"parameters"`
}

// submitInstance is one generation instance in the submit request.
type submitInstance struct {
	Prompt string       `json:"prompt"`
	Image  *submitImage `json:"image,omitempty"`
}

// submitImage is the inline reference image in the submit request.
type submitImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

// submitParameters are the generation parameters in the submit request.
type submitParameters struct {
	SampleCount int `json:"sampleCount"`
}

// operationResponse is the wire shape of a long-running operation.
type operationResponse struct {
	Name     string           `json:"name"`
	Done     bool             `json:"done"`
	Error    *errorBody       `json:"error,omitempty"`
	Response *operationResult `json:"response,omitempty"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

// operationResult is the response payload of a completed operation.
type operationResult struct {
	GenerateVideoResponse *generateVideoResponse `json:"generateVideoResponse,omitempty"`
}

// generateVideoResponse holds the generated samples.
type generateVideoResponse struct {
	GeneratedSamples []generatedSample `json:"generatedSamples,omitempty"`
}

// generatedSample references one generated video.
type generatedSample struct {
	Video *videoRef `json:"video,omitempty"`
}

// videoRef is the provider-side video resource locator.
type videoRef struct {
	URI string `json:"uri"`
}

// errorBody is the provider's structured error payload.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// errorEnvelope is the top-level error shape of non-2xx responses.
type errorEnvelope struct {
	Error *errorBody `json:"error"`
}
