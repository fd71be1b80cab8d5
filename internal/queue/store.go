// Package queue implements the durable render-job queue on Redis. Jobs live
// in hashes indexed by two sorted sets (pending by creation time, processing
// by claim time). Every state transition runs as a Lua script, so concurrent
// worker invocations serialize on the claim and no two callers can ever
// receive the same job.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AlchemyApps/mindScript-sub006/internal/model"
)

const (
	jobKeyPrefix  = "render:job:"
	pendingKey    = "render:jobs:pending"
	processingKey = "render:jobs:processing"

	// DefaultStaleness is how long a job may sit in processing before a
	// later claim treats its worker as dead and takes it over.
	DefaultStaleness = 10 * time.Minute
)

var (
	// ErrNotFound is returned when a job id has no stored row.
	ErrNotFound = errors.New("job not found")

	// ErrStaleClaim is returned when a terminal write carries a claim
	// generation that has been superseded by a reclaim. The late worker's
	// result is discarded; the current claim owns the row.
	ErrStaleClaim = errors.New("claim superseded")
)

// claimScript picks the oldest eligible job: the oldest pending row, or a
// processing row whose claim is older than the staleness threshold —
// whichever was created first. The winner moves to processing under a fresh
// claim generation.
var claimScript = redis.NewScript(`
local prefix = ARGV[4]
local pending = redis.call('ZRANGE', KEYS[1], 0, 0)
local stale = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[2], 'LIMIT', 0, 1)

local id
if pending[1] and stale[1] then
  local cp = tonumber(redis.call('HGET', prefix .. pending[1], 'created_at')) or 0
  local cs = tonumber(redis.call('HGET', prefix .. stale[1], 'created_at')) or 0
  if cs <= cp then id = stale[1] else id = pending[1] end
elseif pending[1] then
  id = pending[1]
elseif stale[1] then
  id = stale[1]
else
  return false
end

local key = prefix .. id
redis.call('ZREM', KEYS[1], id)
redis.call('ZADD', KEYS[2], tonumber(ARGV[1]), id)
redis.call('HINCRBY', key, 'claim_gen', 1)
redis.call('HSET', key,
  'status', 'processing',
  'progress', 0,
  'stage', 'claimed',
  'claimed_at', ARGV[1],
  'claimed_by', ARGV[3],
  'updated_at', ARGV[1])
return id
`)

// progressScript writes progress/stage only while the job is processing, and
// never lets progress move backwards within a claim.
var progressScript = redis.NewScript(`
local st = redis.call('HGET', KEYS[1], 'status')
if st ~= 'processing' then return 0 end
local cur = tonumber(redis.call('HGET', KEYS[1], 'progress')) or 0
local p = tonumber(ARGV[1])
if p > cur then
  redis.call('HSET', KEYS[1], 'progress', p)
end
redis.call('HSET', KEYS[1], 'stage', ARGV[2], 'updated_at', ARGV[3])
return 1
`)

// terminalScript moves processing → completed/failed exactly once. A repeat
// call on a terminal row is a no-op; a write under a superseded claim
// generation is rejected.
var terminalScript = redis.NewScript(`
local st = redis.call('HGET', KEYS[1], 'status')
if st == 'completed' or st == 'failed' then return 0 end
if st ~= 'processing' then return -2 end
if tonumber(redis.call('HGET', KEYS[1], 'claim_gen')) ~= tonumber(ARGV[2]) then return -1 end

if ARGV[1] == 'completed' then
  redis.call('HSET', KEYS[1], 'status', 'completed', 'progress', 100, 'stage', 'completed', 'result', ARGV[3], 'updated_at', ARGV[5])
else
  redis.call('HSET', KEYS[1], 'status', 'failed', 'stage', 'failed', 'error', ARGV[3], 'updated_at', ARGV[5])
end
redis.call('ZREM', KEYS[2], ARGV[4])
return 1
`)

// Store is the durable job queue. All mutation goes through atomic scripts.
type Store struct {
	rdb       *redis.Client
	staleness time.Duration

	// now is swappable so staleness behavior is testable without sleeping.
	now func() time.Time
}

// NewStore creates a queue store. A non-positive staleness falls back to the
// default threshold.
func NewStore(rdb *redis.Client, staleness time.Duration) *Store {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	return &Store{rdb: rdb, staleness: staleness, now: time.Now}
}

// SetClock overrides the store's clock. Intended for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// CreateJob inserts a new pending job. This is the producer boundary: the
// only way work enters the pipeline.
func (s *Store) CreateJob(ctx context.Context, trackID, userID string, cfg model.RenderConfig) (*model.RenderJob, error) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	now := s.now().UTC()
	job := &model.RenderJob{
		ID:        uuid.New().String(),
		TrackID:   trackID,
		UserID:    userID,
		Status:    model.JobStatusPending,
		Payload:   cfg,
		CreatedAt: now,
		UpdatedAt: now,
	}

	key := jobKeyPrefix + job.ID
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"id", job.ID,
			"track_id", trackID,
			"user_id", userID,
			"status", string(model.JobStatusPending),
			"progress", 0,
			"stage", "",
			"payload", string(payload),
			"created_at", now.UnixMilli(),
			"updated_at", now.UnixMilli(),
			"claim_gen", 0,
		)
		pipe.ZAdd(ctx, pendingKey, redis.Z{Score: float64(now.UnixMilli()), Member: job.ID})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// ClaimNextJob atomically claims the next eligible job for workerID and
// returns it with a fresh claim generation. Returns (nil, nil) when no
// pending or stale-processing job exists.
func (s *Store) ClaimNextJob(ctx context.Context, workerID string) (*model.RenderJob, error) {
	now := s.now().UTC()
	staleBefore := now.Add(-s.staleness)

	res, err := claimScript.Run(ctx, s.rdb,
		[]string{pendingKey, processingKey},
		now.UnixMilli(), staleBefore.UnixMilli(), workerID, jobKeyPrefix,
	).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	id, ok := res.(string)
	if !ok || id == "" {
		return nil, nil
	}
	return s.GetJob(ctx, id)
}

// UpdateProgress records progress and a stage label for a processing job.
// Calls against a terminal or pending job are silent no-ops.
func (s *Store) UpdateProgress(ctx context.Context, jobID string, progress int, stage string) error {
	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}
	err := progressScript.Run(ctx, s.rdb,
		[]string{jobKeyPrefix + jobID},
		progress, stage, s.now().UTC().UnixMilli(),
	).Err()
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// CompleteJob transitions a processing job to completed. Idempotent on
// terminal rows; rejects superseded claim generations with ErrStaleClaim.
func (s *Store) CompleteJob(ctx context.Context, jobID string, gen int64, result *model.RenderResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.terminal(ctx, jobID, gen, "completed", string(data))
}

// FailJob transitions a processing job to failed with a human-readable
// message. Same idempotency and fencing rules as CompleteJob.
func (s *Store) FailJob(ctx context.Context, jobID string, gen int64, errMsg string) error {
	return s.terminal(ctx, jobID, gen, "failed", errMsg)
}

func (s *Store) terminal(ctx context.Context, jobID string, gen int64, status, detail string) error {
	res, err := terminalScript.Run(ctx, s.rdb,
		[]string{jobKeyPrefix + jobID, processingKey},
		status, gen, detail, jobID, s.now().UTC().UnixMilli(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%s job: %w", status, err)
	}
	switch res {
	case -1:
		return ErrStaleClaim
	case -2:
		return fmt.Errorf("job %s is not processing", jobID)
	default:
		return nil
	}
}

// GetJob reads one job row.
func (s *Store) GetJob(ctx context.Context, jobID string) (*model.RenderJob, error) {
	fields, err := s.rdb.HGetAll(ctx, jobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return jobFromHash(fields)
}

// PendingCount reports the queue depth, used by the health check.
func (s *Store) PendingCount(ctx context.Context) (int64, error) {
	return s.rdb.ZCard(ctx, pendingKey).Result()
}

// Ping verifies the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func jobFromHash(fields map[string]string) (*model.RenderJob, error) {
	job := &model.RenderJob{
		ID:        fields["id"],
		TrackID:   fields["track_id"],
		UserID:    fields["user_id"],
		Status:    model.JobStatus(fields["status"]),
		Stage:     fields["stage"],
		ClaimedBy: fields["claimed_by"],
	}
	job.Progress, _ = strconv.Atoi(fields["progress"])
	job.ClaimGen, _ = strconv.ParseInt(fields["claim_gen"], 10, 64)

	if raw := fields["payload"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &job.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if raw := fields["result"]; raw != "" {
		var res model.RenderResult
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		job.Result = &res
	}
	if msg := fields["error"]; msg != "" {
		job.Error = &msg
	}

	job.CreatedAt = timeFromMilli(fields["created_at"])
	job.UpdatedAt = timeFromMilli(fields["updated_at"])
	if t := timeFromMilli(fields["claimed_at"]); !t.IsZero() {
		job.ClaimedAt = &t
	}
	return job, nil
}

func timeFromMilli(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
