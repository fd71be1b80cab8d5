package service

import (
	"context"
	"fmt"

	"github.com/AlchemyApps/mindScript-sub006/internal/model"
	"github.com/AlchemyApps/mindScript-sub006/internal/queue"
)

// RenderService is the producer boundary around the job queue: it validates
// payloads and inserts pending jobs, and reads status/result back out. It
// never claims or transitions jobs — that is the worker orchestrator's side
// of the contract.
type RenderService struct {
	store *queue.Store
}

func NewRenderService(store *queue.Store) *RenderService {
	return &RenderService{store: store}
}

// StartRender validates the payload and inserts a pending job.
func (s *RenderService) StartRender(ctx context.Context, userID string, req *model.RenderStartRequest) (*model.RenderStartResponse, error) {
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}

	job, err := s.store.CreateJob(ctx, req.TrackID, userID, req.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return &model.RenderStartResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}, nil
}

// GetStatus returns the current state of a render job.
func (s *RenderService) GetStatus(ctx context.Context, jobID string) (*model.RenderStatusResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.RenderStatusResponse{
		JobID:     job.ID,
		TrackID:   job.TrackID,
		Status:    job.Status,
		Progress:  job.Progress,
		Stage:     job.Stage,
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
		ClaimedAt: job.ClaimedAt,
	}, nil
}

// GetResult returns the artifact descriptor of a completed job.
func (s *RenderService) GetResult(ctx context.Context, jobID string) (*model.RenderResult, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusCompleted || job.Result == nil {
		return nil, ErrJobNotCompleted
	}
	return job.Result, nil
}

// ErrJobNotCompleted is returned when a result is requested for a job that
// has not completed.
var ErrJobNotCompleted = fmt.Errorf("job not completed")
