package model

import "time"

// RenderJob is a durable row in the render queue. Producers create it with
// status pending; only the worker orchestrator claims, progresses and
// terminates it. Terminal rows are retained indefinitely for audit/replay.
type RenderJob struct {
	ID       string       `json:"id"`
	TrackID  string       `json:"trackId"`
	UserID   string       `json:"userId"`
	Status   JobStatus    `json:"status"`
	Progress int          `json:"progress"`
	Stage    string       `json:"stage,omitempty"`
	Payload  RenderConfig `json:"payload"`

	// Result is set iff Status == completed; Error iff Status == failed.
	Result *RenderResult `json:"result,omitempty"`
	Error  *string       `json:"error,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ClaimedAt *time.Time `json:"claimedAt,omitempty"`
	ClaimedBy string     `json:"claimedBy,omitempty"`

	// ClaimGen increments on every claim. Terminal transitions carry the
	// generation they were claimed under; a write from a superseded claim
	// is rejected, so a slow worker cannot overwrite a reclaimed job.
	ClaimGen int64 `json:"claimGen"`
}

// RenderResult describes the finished artifact of a completed job.
type RenderResult struct {
	ArtifactURL     string  `json:"artifactUrl"`
	PreviewURL      string  `json:"previewUrl"`
	DurationSeconds float64 `json:"durationSeconds"`
	SizeBytes       int64   `json:"sizeBytes"`
	Format          Format  `json:"format"`
}

// RenderStartRequest is the producer-boundary payload for creating a job.
type RenderStartRequest struct {
	TrackID string       `json:"trackId" validate:"required,uuid4"`
	Config  RenderConfig `json:"config" validate:"required"`
}

// RenderStartResponse acknowledges job creation.
type RenderStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// RenderStatusResponse reports current job state to producers.
type RenderStatusResponse struct {
	JobID     string     `json:"jobId"`
	TrackID   string     `json:"trackId"`
	Status    JobStatus  `json:"status"`
	Progress  int        `json:"progress"`
	Stage     string     `json:"stage,omitempty"`
	Error     *string    `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ClaimedAt *time.Time `json:"claimedAt,omitempty"`
}
