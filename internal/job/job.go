// Package job provides the generation-attempt aggregate backing the UI.
// A Job tracks one trip through the generation workflow: its monotonic
// status, the current progress message, the classified failure, and the
// ordered video artifacts produced on success.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/wilweb04/Veo-Minacast/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusPending indicates the attempt was accepted but not yet submitted.
	StatusPending Status = "PENDING"
	// StatusRunning indicates the provider job is in flight.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates every result video was materialized.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the attempt ended with a classified error.
	StatusFailed Status = "FAILED"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
// Transitions are monotonic: a terminal job never moves again.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusRunning, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Artifact is one materialized result video.
type Artifact struct {
	// Index is the zero-based position in provider order.
	Index int
	// Path is the local file holding the video bytes.
	Path string
	// URL is the S3 URL of the video when S3 upload is configured.
	URL string
	// Size is the video size in bytes.
	Size int64
}

// Failure is the classified error of a failed attempt.
type Failure struct {
	// Message is the user-facing error text.
	Message string
	// QuotaExceeded marks provider rate/quota limiting.
	QuotaExceeded bool
	// InvalidCredential marks a bad request or bad API key.
	InvalidCredential bool
}

// Job represents one generation attempt.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this attempt.
	ID string
	// Status is the current state.
	Status Status
	// Prompt is the submitted text prompt.
	Prompt string
	// VideoCount is the requested number of videos.
	VideoCount int
	// HasImage records whether a reference image was attached.
	HasImage bool
	// Progress is the latest cosmetic progress message.
	Progress string
	// Failure holds the classified error when Status is FAILED.
	Failure *Failure
	// Artifacts are the materialized videos in provider order.
	Artifacts []Artifact
	// CreatedAt is when the attempt was accepted.
	CreatedAt time.Time
	// UpdatedAt is when the attempt was last updated.
	UpdatedAt time.Time
	// StartedAt is when the provider job was submitted.
	StartedAt time.Time
	// CompletedAt is when the attempt reached a terminal state.
	CompletedAt time.Time
}

// New creates a new Job in PENDING state with a generated ID.
func New(prompt string, videoCount int, hasImage bool) *Job {
	if videoCount < 1 {
		videoCount = 1
	}
	now := time.Now()
	return &Job{
		ID:         id.Generate(),
		Status:     StatusPending,
		Prompt:     prompt,
		VideoCount: videoCount,
		HasImage:   hasImage,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from PENDING to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED state.
func (j *Job) Complete() error {
	j.mu.Lock()
	j.Progress = ""
	j.mu.Unlock()
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED state with a classified failure.
func (j *Job) Fail(failure Failure) error {
	j.mu.Lock()
	j.Failure = &failure
	j.Progress = ""
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// SetProgress records the latest progress message.
func (j *Job) SetProgress(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = message
	j.UpdatedAt = time.Now()
}

// AddArtifact appends a materialized video artifact.
func (j *Job) AddArtifact(a Artifact) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Artifacts = append(j.Artifacts, a)
	j.UpdatedAt = time.Now()
}

// GetArtifacts returns a copy of the materialized videos so far.
func (j *Job) GetArtifacts() []Artifact {
	j.mu.RLock()
	defer j.mu.RUnlock()
	artifacts := make([]Artifact, len(j.Artifacts))
	copy(artifacts, j.Artifacts)
	return artifacts
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status.IsTerminal()
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	artifacts := make([]Artifact, len(j.Artifacts))
	copy(artifacts, j.Artifacts)

	var failure *Failure
	if j.Failure != nil {
		f := *j.Failure
		failure = &f
	}

	return &Job{
		ID:          j.ID,
		Status:      j.Status,
		Prompt:      j.Prompt,
		VideoCount:  j.VideoCount,
		HasImage:    j.HasImage,
		Progress:    j.Progress,
		Failure:     failure,
		Artifacts:   artifacts,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
