// Package worker runs the render pipeline: it claims bounded batches of jobs
// from the queue store, drives each one through the synthesis engine, and
// writes the outcome back. Invocations may overlap in time; the store's
// atomic claim is the only thing preventing duplicate processing, and the
// claim generation fences late writes from superseded workers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/AlchemyApps/mindScript-sub006/internal/model"
	"github.com/AlchemyApps/mindScript-sub006/internal/queue"
	"github.com/AlchemyApps/mindScript-sub006/internal/synth"
)

// TaskTypeTick is the asynq task that triggers one orchestrator invocation.
const TaskTypeTick = "pipeline:tick"

// DefaultBatchSize bounds how many jobs one invocation may claim.
const DefaultBatchSize = 5

// Renderer is the synthesis engine boundary.
type Renderer interface {
	Render(ctx context.Context, job *model.RenderJob, progress synth.ProgressFunc) (*model.RenderResult, error)
}

// ProgressSink receives job lifecycle fan-out (websocket hub in production,
// a recorder in tests).
type ProgressSink interface {
	BroadcastProgress(jobID string, progress int, status model.JobStatus, stage string)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID string, code, message string)
}

// Orchestrator claims and processes render jobs.
type Orchestrator struct {
	store     *queue.Store
	engine    Renderer
	sink      ProgressSink
	batchSize int
	workerID  string
}

// NewOrchestrator creates an orchestrator with a unique worker identity.
// sink may be nil.
func NewOrchestrator(store *queue.Store, engine Renderer, sink ProgressSink, batchSize int) *Orchestrator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Orchestrator{
		store:     store,
		engine:    engine,
		sink:      sink,
		batchSize: batchSize,
		workerID:  "worker-" + uuid.New().String(),
	}
}

// BatchReport summarizes one invocation.
type BatchReport struct {
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// ProcessBatch claims up to the batch size and processes each job in turn.
// One job's failure never aborts the rest of the batch.
func (o *Orchestrator) ProcessBatch(ctx context.Context) BatchReport {
	var report BatchReport
	for i := 0; i < o.batchSize; i++ {
		job, err := o.store.ClaimNextJob(ctx, o.workerID)
		if err != nil {
			log.Printf("[worker] claim failed: %v", err)
			break
		}
		if job == nil {
			break
		}
		report.Claimed++

		if o.processJob(ctx, job) {
			report.Completed++
		} else {
			report.Failed++
		}
	}
	return report
}

// processJob runs one claimed job to a terminal state. Returns true on
// success. Panics inside the engine are contained here: a crashing job must
// never take down the orchestrator process.
func (o *Orchestrator) processJob(ctx context.Context, job *model.RenderJob) (ok bool) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.failJob(ctx, job, fmt.Sprintf("internal error: panic: %v", r))
			log.Printf("[worker] job=%s outcome=panic elapsed=%s", job.ID, time.Since(start).Round(time.Millisecond))
			ok = false
		}
	}()

	progress := func(pct int, stage string) {
		if err := o.store.UpdateProgress(ctx, job.ID, pct, stage); err != nil {
			log.Printf("[worker] job=%s progress update failed: %v", job.ID, err)
		}
		if o.sink != nil {
			o.sink.BroadcastProgress(job.ID, pct, model.JobStatusProcessing, stage)
		}
	}

	result, err := o.engine.Render(ctx, job, progress)
	if err != nil {
		o.failJob(ctx, job, model.FailureMessage(err))
		log.Printf("[worker] job=%s outcome=failed elapsed=%s error=%v", job.ID, time.Since(start).Round(time.Millisecond), err)
		return false
	}

	if err := o.store.CompleteJob(ctx, job.ID, job.ClaimGen, result); err != nil {
		if errors.Is(err, queue.ErrStaleClaim) {
			// Another worker reclaimed the job while this one was slow.
			// Its result stands; ours is discarded.
			log.Printf("[worker] job=%s outcome=superseded elapsed=%s", job.ID, time.Since(start).Round(time.Millisecond))
			return false
		}
		log.Printf("[worker] job=%s outcome=complete-write-failed elapsed=%s error=%v", job.ID, time.Since(start).Round(time.Millisecond), err)
		return false
	}

	if o.sink != nil {
		o.sink.BroadcastComplete(job.ID, result)
	}
	log.Printf("[worker] job=%s outcome=completed elapsed=%s duration=%.1fs size=%d",
		job.ID, time.Since(start).Round(time.Millisecond), result.DurationSeconds, result.SizeBytes)
	return true
}

func (o *Orchestrator) failJob(ctx context.Context, job *model.RenderJob, msg string) {
	if err := o.store.FailJob(ctx, job.ID, job.ClaimGen, msg); err != nil {
		if errors.Is(err, queue.ErrStaleClaim) {
			log.Printf("[worker] job=%s failure superseded by a newer claim", job.ID)
			return
		}
		log.Printf("[worker] job=%s failed to mark as failed: %v", job.ID, err)
		return
	}
	if o.sink != nil {
		o.sink.BroadcastError(job.ID, "RENDER_FAILED", msg)
	}
}

// ProcessTask adapts ProcessBatch to the asynq scheduler tick.
func (o *Orchestrator) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	report := o.ProcessBatch(ctx)
	if report.Claimed > 0 {
		log.Printf("[worker] tick claimed=%d completed=%d failed=%d", report.Claimed, report.Completed, report.Failed)
	}
	return nil
}

// NewTickTask builds the periodic scheduler task.
func NewTickTask() *asynq.Task {
	return asynq.NewTask(TaskTypeTick, nil)
}
