package veo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// Static errors for Veo client operations.
var (
	// ErrModelRequired is returned when the model identifier is not provided.
	ErrModelRequired = errors.New("veo: model is required")
	// ErrOperationNameRequired is returned when the operation name is not provided.
	ErrOperationNameRequired = errors.New("veo: operation name is required")
	// ErrNoOperationName is returned when the submit response contains no operation name.
	ErrNoOperationName = errors.New("veo: submit failed: no operation name returned")
	// ErrVideoURIRequired is returned when the video URI is not provided.
	ErrVideoURIRequired = errors.New("veo: video URI is required")
)

// KeySource resolves the API key for each request. Resolving per request
// lets a key saved through the settings dialog take effect immediately.
type KeySource func() (string, error)

// Client defines the interface for interacting with the Veo API.
type Client interface {
	// Submit starts a long-running video generation job.
	Submit(ctx context.Context, params GenerateParams) (Operation, error)

	// Poll fetches the current state of a long-running operation.
	Poll(ctx context.Context, name string) (Operation, error)

	// Download fetches the bytes of a generated video. The API key is
	// appended as a query parameter as the provider requires for file URIs.
	Download(ctx context.Context, uri string) ([]byte, error)
}

// HTTPClient is the HTTP implementation of the Veo Client interface.
type HTTPClient struct {
	keySource  KeySource
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithKeySource sets the API key resolver.
func WithKeySource(src KeySource) ClientOption {
	return func(hc *HTTPClient) {
		hc.keySource = src
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the Veo API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
	}
}

// NewClient creates a new Veo HTTP client. If no key source is provided,
// the GEMINI_API_KEY environment variable is used.
func NewClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.keySource == nil {
		c.keySource = func() (string, error) {
			return os.Getenv("GEMINI_API_KEY"), nil
		}
	}

	return c
}

// Submit starts a long-running video generation job and returns the
// initial operation state.
func (c *HTTPClient) Submit(ctx context.Context, params GenerateParams) (Operation, error) {
	if params.Model == "" {
		return Operation{}, ErrModelRequired
	}
	if params.SampleCount < 1 {
		params.SampleCount = 1
	}

	instance := submitInstance{Prompt: params.Prompt}
	if params.Image != nil {
		instance.Image = &submitImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(params.Image.Data),
			MimeType:           params.Image.MIMEType,
		}
	}

	reqBody := submitRequest{
		Instances:  []submitInstance{instance},
		Parameters: submitParameters{SampleCount: params.SampleCount},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Operation{}, fmt.Errorf("veo: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, params.Model)

	var resp operationResponse
	if err := c.doRequest(ctx, http.MethodPost, endpoint, bodyBytes, &resp); err != nil {
		return Operation{}, err
	}

	if resp.Name == "" {
		return Operation{}, ErrNoOperationName
	}

	return mapOperation(resp), nil
}

// Poll fetches the current state of a long-running operation.
func (c *HTTPClient) Poll(ctx context.Context, name string) (Operation, error) {
	if name == "" {
		return Operation{}, ErrOperationNameRequired
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, name)

	var resp operationResponse
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return Operation{}, err
	}

	return mapOperation(resp), nil
}

// Download fetches the bytes of a generated video. Authenticated file URIs
// require the key as a query parameter rather than a header.
func (c *HTTPClient) Download(ctx context.Context, uri string) ([]byte, error) {
	if uri == "" {
		return nil, ErrVideoURIRequired
	}

	key, err := c.keySource()
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("veo: parse video URI: %w", err)
	}
	q := u.Query()
	q.Set("key", key)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("veo: create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("veo: download request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("veo: read download response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &DownloadError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// doRequest performs a single HTTP request against the Veo API.
// There is deliberately no transport-level retry: the generation workflow
// re-queries on its own fixed interval and nothing else repeats.
func (c *HTTPClient) doRequest(ctx context.Context, method, endpoint string, body []byte, result *operationResponse) error {
	key, err := c.keySource()
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("veo: create request: %w", err)
	}

	req.Header.Set("x-goog-api-key", key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("veo: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("veo: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiErrorFromBody(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("veo: unmarshal response: %w", err)
	}

	return nil
}

// apiErrorFromBody builds an APIError from a non-2xx response, preserving
// the raw body so the structured error shape survives for classification.
func apiErrorFromBody(statusCode int, body []byte) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return &APIError{
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
			Raw:     string(body),
		}
	}
	return &APIError{Code: statusCode, Message: string(body)}
}

// mapOperation converts the wire operation into the public Operation value.
func mapOperation(resp operationResponse) Operation {
	op := Operation{
		Name: resp.Name,
		Done: resp.Done,
	}

	if resp.Error != nil {
		raw, _ := json.Marshal(errorEnvelope{Error: resp.Error})
		op.Err = &APIError{
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
			Raw:     string(raw),
		}
	}

	if resp.Response != nil && resp.Response.GenerateVideoResponse != nil {
		for _, sample := range resp.Response.GenerateVideoResponse.GeneratedSamples {
			if sample.Video != nil && sample.Video.URI != "" {
				op.Videos = append(op.Videos, Video{URI: sample.Video.URI})
			}
		}
	}

	return op
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
