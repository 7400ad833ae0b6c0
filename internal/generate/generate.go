// Package generate orchestrates the video generation workflow: submit a
// request to the Veo provider, poll the operation on a fixed interval until
// it reaches a terminal state, then download each result strictly in order.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wilweb04/Veo-Minacast/internal/veo"
)

// Static errors for the generation workflow.
var (
	// ErrPromptRequired is returned when the prompt is empty or whitespace.
	// Nothing is submitted to the provider in that case.
	ErrPromptRequired = errors.New("generate: prompt is required")
	// ErrEmptyResult is returned when a job completes with zero videos.
	ErrEmptyResult = errors.New("generate: generation completed with no videos")
)

// ImagePayload is an optional reference image attached to a request.
type ImagePayload struct {
	// Data is the raw image payload.
	Data []byte
	// MIMEType is the media type of Data, e.g. "image/png".
	MIMEType string
}

// Request describes one generation attempt. It is immutable once submitted;
// the workflow never mutates it and keeps no state across invocations.
type Request struct {
	// Prompt is the text prompt. Must be non-blank.
	Prompt string
	// Image is an optional reference image.
	Image *ImagePayload
	// VideoCount is the number of videos to request (defaults to 1).
	VideoCount int
}

// ProgressFunc receives cosmetic progress messages while a job is in flight.
type ProgressFunc func(message string)

// VideoFunc receives one materialized video. Index is the zero-based
// position in provider order. Returning an error aborts the remaining
// downloads; results already delivered are not retried.
type VideoFunc func(index int, data []byte) error

// defaultProgressMessages cycle on the progress interval while waiting.
var defaultProgressMessages = []string{
	"Warming up the cameras...",
	"Scouting the perfect location...",
	"Directing the scene...",
	"Rendering the first frames...",
	"Adding a touch of movie magic...",
	"Polishing the final cut...",
	"Almost there, the credits are rolling...",
}

// Service runs generation attempts against a Veo client.
type Service struct {
	client           veo.Client
	logger           *slog.Logger
	model            string
	pollInterval     time.Duration
	progressInterval time.Duration
	progressMessages []string
}

// ServiceOption is a function that configures a Service.
type ServiceOption func(*Service)

// WithPollInterval sets the fixed interval between status polls.
func WithPollInterval(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithProgressInterval sets the fixed interval between progress messages.
func WithProgressInterval(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.progressInterval = d
		}
	}
}

// WithProgressMessages replaces the default progress message cycle.
func WithProgressMessages(messages []string) ServiceOption {
	return func(s *Service) {
		if len(messages) > 0 {
			s.progressMessages = messages
		}
	}
}

// NewService creates a generation Service for the given model.
func NewService(client veo.Client, model string, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		client:           client,
		logger:           logger,
		model:            model,
		pollInterval:     1 * time.Second,
		progressInterval: 4 * time.Second,
		progressMessages: defaultProgressMessages,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate runs one complete generation attempt: validate, submit, poll to
// a terminal state, then download each result in provider order through
// onVideo. Progress messages flow to onProgress only while the job is in
// flight; the reporter is torn down before Generate returns on every path.
func (s *Service) Generate(ctx context.Context, req Request, onProgress ProgressFunc, onVideo VideoFunc) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return ErrPromptRequired
	}

	videos, err := s.submitAndAwait(ctx, req, onProgress)
	if err != nil {
		return err
	}

	// Sequential on purpose: a download failure is attributable to a
	// specific ordinal, and earlier results stay delivered.
	for i, video := range videos {
		data, err := s.client.Download(ctx, video.URI)
		if err != nil {
			return fmt.Errorf("generate: download video %d: %w", i+1, err)
		}
		if onVideo != nil {
			if err := onVideo(i, data); err != nil {
				return fmt.Errorf("generate: deliver video %d: %w", i+1, err)
			}
		}
	}

	return nil
}

// submitAndAwait submits the request and polls until the operation reaches
// a terminal state. The progress reporter is scoped to this call: the
// deferred stop runs on success, provider failure, and transport error
// alike, and stop returns only after the reporter goroutine has exited.
func (s *Service) submitAndAwait(ctx context.Context, req Request, onProgress ProgressFunc) ([]veo.Video, error) {
	stop := startReporting(s.progressInterval, s.progressMessages, onProgress)
	defer stop()

	count := req.VideoCount
	if count < 1 {
		count = 1
	}

	var img *veo.Image
	if req.Image != nil {
		img = &veo.Image{Data: req.Image.Data, MIMEType: req.Image.MIMEType}
	}

	op, err := s.client.Submit(ctx, veo.GenerateParams{
		Model:       s.model,
		Prompt:      req.Prompt,
		Image:       img,
		SampleCount: count,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: submit: %w", err)
	}

	s.logger.Info("generation submitted",
		slog.String("operation", op.Name),
		slog.String("model", s.model),
		slog.Int("sample_count", count),
	)

	// Fixed-interval poll, unbounded: the loop runs until the provider
	// reports a terminal state or the context is cancelled.
	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("generate: wait for completion: %w", ctx.Err())
		case <-time.After(s.pollInterval):
		}

		op, err = s.client.Poll(ctx, op.Name)
		if err != nil {
			return nil, fmt.Errorf("generate: poll: %w", err)
		}
	}

	if op.Err != nil {
		return nil, op.Err
	}
	if len(op.Videos) == 0 {
		return nil, ErrEmptyResult
	}

	s.logger.Info("generation completed",
		slog.String("operation", op.Name),
		slog.Int("videos", len(op.Videos)),
	)

	return op.Videos, nil
}
