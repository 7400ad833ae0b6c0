package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wilweb04/Veo-Minacast/internal/generate"
	"github.com/wilweb04/Veo-Minacast/internal/job"
	"github.com/wilweb04/Veo-Minacast/internal/storage"
)

// Runner drives one generation from PENDING to a terminal state. It
// persists every observable change and mirrors it to the WebSocket hub
// so the browser never has to guess.
type Runner struct {
	service *generate.Service
	repo    job.Repository
	store   storage.Storage
	hub     *Hub
	logger  *slog.Logger
}

// NewRunner wires a runner over the generation service and its sinks.
func NewRunner(service *generate.Service, repo job.Repository, store storage.Storage, hub *Hub, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		service: service,
		repo:    repo,
		store:   store,
		hub:     hub,
		logger:  logger,
	}
}

// Run executes the generation workflow for j. It owns j for the whole
// run and saves a snapshot after each mutation. The outcome, success or
// failure, is always recorded before Run returns.
func (r *Runner) Run(ctx context.Context, j *job.Job, req generate.Request) {
	if err := j.Start(); err != nil {
		r.logger.Error("cannot start generation",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()))
		return
	}
	r.save(ctx, j)
	r.hub.Broadcast(j.ID, Event{Type: EventStatus, Status: string(job.StatusRunning)})

	onProgress := func(message string) {
		j.SetProgress(message)
		r.save(ctx, j)
		r.hub.Broadcast(j.ID, Event{Type: EventProgress, Message: message})
	}

	onVideo := func(index int, data []byte) error {
		artifact, err := r.materialize(ctx, j, index, data)
		if err != nil {
			return err
		}
		j.AddArtifact(artifact)
		r.save(ctx, j)
		r.hub.Broadcast(j.ID, Event{
			Type:     EventVideo,
			Index:    index + 1,
			VideoURL: videoPath(j.ID, index+1),
		})
		return nil
	}

	if err := r.service.Generate(ctx, req, onProgress, onVideo); err != nil {
		r.fail(ctx, j, err)
		return
	}

	if err := j.Complete(); err != nil {
		r.logger.Error("cannot complete generation",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()))
		return
	}
	r.save(ctx, j)
	r.hub.Broadcast(j.ID, Event{Type: EventCompleted, Status: string(job.StatusCompleted)})
	r.logger.Info("generation completed",
		slog.String("job_id", j.ID),
		slog.Int("videos", len(j.GetArtifacts())))
}

// materialize writes one video to local storage and, when object
// storage is configured, uploads a copy there as well.
func (r *Runner) materialize(ctx context.Context, j *job.Job, index int, data []byte) (job.Artifact, error) {
	name := fmt.Sprintf("%s-video-%d.mp4", j.ID, index+1)

	path, err := r.store.SaveVideo(ctx, name, bytes.NewReader(data))
	if err != nil {
		return job.Artifact{}, fmt.Errorf("save video %d: %w", index+1, err)
	}

	artifact := job.Artifact{
		Index: index,
		Path:  path,
		Size:  int64(len(data)),
	}

	url, err := r.store.UploadToS3(ctx, name, bytes.NewReader(data))
	switch {
	case errors.Is(err, storage.ErrS3NotConfigured):
		// Local-only deployment.
	case err != nil:
		// The video is already safe on disk, so an upload failure
		// degrades the result instead of failing the generation.
		r.logger.Warn("s3 upload failed",
			slog.String("job_id", j.ID),
			slog.String("key", name),
			slog.String("error", err.Error()))
	default:
		artifact.URL = url
	}

	return artifact, nil
}

func (r *Runner) fail(ctx context.Context, j *job.Job, cause error) {
	cls := generate.Classify(cause)
	failure := job.Failure{
		Message:           cls.Message,
		QuotaExceeded:     cls.QuotaExceeded,
		InvalidCredential: cls.InvalidCredential,
	}
	if err := j.Fail(failure); err != nil {
		r.logger.Error("cannot record failure",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()))
		return
	}
	r.save(ctx, j)
	r.hub.Broadcast(j.ID, Event{
		Type:              EventFailed,
		Status:            string(job.StatusFailed),
		Message:           failure.Message,
		QuotaExceeded:     failure.QuotaExceeded,
		InvalidCredential: failure.InvalidCredential,
	})
	r.logger.Error("generation failed",
		slog.String("job_id", j.ID),
		slog.String("error", cause.Error()),
		slog.Bool("quota_exceeded", failure.QuotaExceeded),
		slog.Bool("invalid_credential", failure.InvalidCredential))
}

func (r *Runner) save(ctx context.Context, j *job.Job) {
	if err := r.repo.Save(ctx, j); err != nil {
		r.logger.Error("cannot persist generation",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()))
	}
}

func videoPath(jobID string, n int) string {
	return fmt.Sprintf("/api/generations/%s/videos/%d", jobID, n)
}
