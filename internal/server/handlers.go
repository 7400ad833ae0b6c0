package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wilweb04/Veo-Minacast/internal/credentials"
	"github.com/wilweb04/Veo-Minacast/internal/generate"
	"github.com/wilweb04/Veo-Minacast/internal/job"
	"github.com/wilweb04/Veo-Minacast/internal/storage"
)

const defaultImageMIMEType = "image/png"

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	runner             *Runner
	repo               job.Repository
	creds              *credentials.Store
	store              storage.Storage
	hub                *Hub
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateGeneration only records the job and returns
// without starting the workflow. Tests drive the runner directly.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(runner *Runner, repo job.Repository, creds *credentials.Store, store storage.Storage, hub *Hub, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		runner:             runner,
		repo:               repo,
		creds:              creds,
		store:              store,
		hub:                hub,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateGeneration handles POST /api/generations requests.
func (h *Handlers) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req CreateGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// A whitespace-only prompt is as empty as a missing one, which the
	// validator's required tag would not catch.
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "please enter a prompt to generate a video", "PROMPT_REQUIRED")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	genReq := generate.Request{
		Prompt:     req.Prompt,
		VideoCount: req.VideoCount,
	}
	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "image_base64 is not valid base64", "VALIDATION_ERROR")
			return
		}
		mimeType := req.ImageMIMEType
		if mimeType == "" {
			mimeType = defaultImageMIMEType
		}
		genReq.Image = &generate.ImagePayload{Data: data, MIMEType: mimeType}
	}

	j := job.New(req.Prompt, req.VideoCount, genReq.Image != nil)
	if err := h.repo.Save(r.Context(), j); err != nil {
		h.logger.Error("failed to create generation",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create generation", "GENERATION_CREATE_FAILED")
		return
	}

	// The workflow outlives the request, so it runs on a detached
	// context that survives the client disconnecting.
	if h.enableAsyncProcess {
		go h.runner.Run(context.WithoutCancel(r.Context()), j, genReq)
	}

	h.logger.Info("generation created",
		slog.String("job_id", j.ID),
		slog.Int("video_count", j.VideoCount),
		slog.Bool("has_image", j.HasImage),
	)

	writeJSON(w, http.StatusAccepted, CreateGenerationResponse{
		ID:     j.ID,
		Status: string(j.GetStatus()),
	})
}

// GetGeneration handles GET /api/generations/{id} requests.
func (h *Handlers) GetGeneration(w http.ResponseWriter, r *http.Request) {
	j, ok := h.findJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toGenerationResponse(j))
}

// DownloadVideo handles GET /api/generations/{id}/videos/{n} requests.
// Videos are numbered from 1 in request order.
func (h *Handlers) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	j, ok := h.findJob(w, r)
	if !ok {
		return
	}

	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "video number must be a positive integer", "INVALID_VIDEO_NUMBER")
		return
	}

	var artifact *job.Artifact
	for i := range j.Artifacts {
		if j.Artifacts[i].Index == n-1 {
			artifact = &j.Artifacts[i]
			break
		}
	}
	if artifact == nil {
		writeError(w, http.StatusNotFound, "video not found", "VIDEO_NOT_FOUND")
		return
	}

	f, err := h.store.Open(r.Context(), artifact.Path)
	if err != nil {
		h.logger.Error("failed to open video",
			slog.String("job_id", j.ID),
			slog.String("path", artifact.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read video", "VIDEO_READ_FAILED")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="video-`+strconv.Itoa(n)+`.mp4"`)
	if artifact.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(artifact.Size, 10))
	}
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Warn("video download interrupted",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Events handles GET /api/generations/{id}/ws requests by upgrading to
// a WebSocket subscribed to the generation's event stream.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	j, ok := h.findJob(w, r)
	if !ok {
		return
	}
	h.hub.Serve(w, r, j.ID)
}

// GetKey handles GET /api/key requests. The key itself is never
// returned, only where the active one comes from.
func (h *Handlers) GetKey(w http.ResponseWriter, r *http.Request) {
	source := h.creds.Source()
	writeJSON(w, http.StatusOK, KeyStatusResponse{
		Configured: source != credentials.SourceNone,
		Source:     string(source),
	})
}

// SaveKey handles PUT /api/key requests. A blank key clears the saved
// credential, falling back to the environment if one is set there.
func (h *Handlers) SaveKey(w http.ResponseWriter, r *http.Request) {
	var req SaveKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.creds.Save(req.APIKey); err != nil {
		h.logger.Error("failed to save API key",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save API key", "KEY_SAVE_FAILED")
		return
	}

	source := h.creds.Source()
	h.logger.Info("API key updated", slog.String("source", string(source)))
	writeJSON(w, http.StatusOK, KeyStatusResponse{
		Configured: source != credentials.SourceNone,
		Source:     string(source),
	})
}

func (h *Handlers) findJob(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "generation ID is required", "MISSING_GENERATION_ID")
		return nil, false
	}

	j, err := h.repo.FindByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "generation not found", "GENERATION_NOT_FOUND")
			return nil, false
		}
		h.logger.Error("failed to get generation",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get generation", "GENERATION_FETCH_FAILED")
		return nil, false
	}
	return j, true
}

func toGenerationResponse(j *job.Job) GenerationResponse {
	resp := GenerationResponse{
		ID:         j.ID,
		Status:     string(j.Status),
		Prompt:     j.Prompt,
		HasImage:   j.HasImage,
		VideoCount: j.VideoCount,
		Progress:   j.Progress,
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  j.UpdatedAt.Format(time.RFC3339),
	}
	if j.Failure != nil {
		resp.Error = j.Failure.Message
		resp.QuotaExceeded = j.Failure.QuotaExceeded
		resp.InvalidCredential = j.Failure.InvalidCredential
	}
	for _, a := range j.Artifacts {
		n := a.Index + 1
		resp.Videos = append(resp.Videos, VideoInfo{
			Index:    n,
			FileName: "video-" + strconv.Itoa(n) + ".mp4",
			URL:      videoPath(j.ID, n),
			S3URL:    a.URL,
			Size:     a.Size,
		})
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
