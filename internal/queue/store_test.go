package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/AlchemyApps/mindScript-sub006/internal/model"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := NewStore(rdb, 10*time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })
	return store, &now
}

func testConfig() model.RenderConfig {
	return model.RenderConfig{
		Script: "Relax.",
		Voice: model.VoiceConfig{
			Provider: model.ProviderElevenLabs,
			VoiceID:  "voice-1",
		},
		Output: model.OutputConfig{
			TargetDurationSeconds: 300,
			PauseSeconds:          5,
			Format:                model.FormatWAV,
		},
	}
}

func mustCreate(t *testing.T, store *Store, trackID string) *model.RenderJob {
	t.Helper()
	job, err := store.CreateJob(context.Background(), trackID, "user-1", testConfig())
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	return job
}

func TestCreateAndGetJob(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created := mustCreate(t, store, "track-1")

	got, err := store.GetJob(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != model.JobStatusPending {
		t.Errorf("expected pending, got %s", got.Status)
	}
	if got.TrackID != "track-1" || got.UserID != "user-1" {
		t.Errorf("identity fields lost: %+v", got)
	}
	if got.Payload.Script != "Relax." {
		t.Errorf("payload lost: %+v", got.Payload)
	}
	if got.Payload.Output.TargetDurationSeconds != 300 {
		t.Errorf("payload output lost: %+v", got.Payload.Output)
	}
	if got.ClaimGen != 0 {
		t.Errorf("expected claim gen 0, got %d", got.ClaimGen)
	}

	count, err := store.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 pending, got %d", count)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetJob(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimNextJob_Empty(t *testing.T) {
	store, _ := newTestStore(t)

	job, err := store.ClaimNextJob(context.Background(), "worker-1")
	if err != nil {
		t.Fatalf("ClaimNextJob failed: %v", err)
	}
	if job != nil {
		t.Errorf("expected no job, got %+v", job)
	}
}

func TestClaimNextJob_OldestFirst(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	first := mustCreate(t, store, "track-1")
	*now = now.Add(time.Second)
	second := mustCreate(t, store, "track-2")
	*now = now.Add(time.Second)
	third := mustCreate(t, store, "track-3")

	for i, want := range []*model.RenderJob{first, second, third} {
		got, err := store.ClaimNextJob(ctx, "worker-1")
		if err != nil {
			t.Fatalf("claim %d failed: %v", i, err)
		}
		if got == nil || got.ID != want.ID {
			t.Fatalf("claim %d: expected %s, got %+v", i, want.ID, got)
		}
		if got.Status != model.JobStatusProcessing {
			t.Errorf("claim %d: expected processing, got %s", i, got.Status)
		}
		if got.ClaimGen != 1 {
			t.Errorf("claim %d: expected claim gen 1, got %d", i, got.ClaimGen)
		}
		if got.ClaimedBy != "worker-1" {
			t.Errorf("claim %d: expected worker-1, got %s", i, got.ClaimedBy)
		}
	}

	count, _ := store.PendingCount(ctx)
	if count != 0 {
		t.Errorf("expected empty pending set, got %d", count)
	}
}

func TestClaimNextJob_NeverHandsOutTwice(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, store, "track-1")
	*now = now.Add(time.Second)
	mustCreate(t, store, "track-2")

	a, err := store.ClaimNextJob(ctx, "worker-a")
	if err != nil || a == nil {
		t.Fatalf("first claim: %v %v", a, err)
	}
	b, err := store.ClaimNextJob(ctx, "worker-b")
	if err != nil || b == nil {
		t.Fatalf("second claim: %v %v", b, err)
	}
	if a.ID == b.ID {
		t.Fatal("two workers claimed the same job")
	}

	c, err := store.ClaimNextJob(ctx, "worker-c")
	if err != nil {
		t.Fatalf("third claim: %v", err)
	}
	if c != nil {
		t.Errorf("expected queue drained, got %+v", c)
	}
}

func TestClaimNextJob_ReclaimsStale(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	job := mustCreate(t, store, "track-1")

	claimed, err := store.ClaimNextJob(ctx, "worker-dead")
	if err != nil || claimed == nil {
		t.Fatalf("initial claim: %v %v", claimed, err)
	}

	// Within the staleness window the processing job is untouchable
	*now = now.Add(5 * time.Minute)
	if got, _ := store.ClaimNextJob(ctx, "worker-2"); got != nil {
		t.Fatalf("claimed a fresh processing job: %+v", got)
	}

	// Past the window it is taken over under a new generation
	*now = now.Add(6 * time.Minute)
	reclaimed, err := store.ClaimNextJob(ctx, "worker-2")
	if err != nil {
		t.Fatalf("reclaim failed: %v", err)
	}
	if reclaimed == nil || reclaimed.ID != job.ID {
		t.Fatalf("expected stale job %s, got %+v", job.ID, reclaimed)
	}
	if reclaimed.ClaimGen != 2 {
		t.Errorf("expected claim gen 2 after takeover, got %d", reclaimed.ClaimGen)
	}
	if reclaimed.ClaimedBy != "worker-2" {
		t.Errorf("expected worker-2, got %s", reclaimed.ClaimedBy)
	}
}

func TestClaimNextJob_StaleBeatsNewerPending(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	old := mustCreate(t, store, "track-old")
	if got, _ := store.ClaimNextJob(ctx, "worker-dead"); got == nil {
		t.Fatal("initial claim failed")
	}

	*now = now.Add(15 * time.Minute)
	newer := mustCreate(t, store, "track-new")

	got, err := store.ClaimNextJob(ctx, "worker-2")
	if err != nil || got == nil {
		t.Fatalf("claim failed: %v %v", got, err)
	}
	if got.ID != old.ID {
		t.Errorf("expected the older stale job %s, got %s", old.ID, got.ID)
	}

	next, err := store.ClaimNextJob(ctx, "worker-2")
	if err != nil || next == nil {
		t.Fatalf("second claim failed: %v %v", next, err)
	}
	if next.ID != newer.ID {
		t.Errorf("expected pending job %s next, got %s", newer.ID, next.ID)
	}
}

func TestUpdateProgress(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := mustCreate(t, store, "track-1")

	// No-op while pending
	if err := store.UpdateProgress(ctx, job.ID, 50, "early"); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	got, _ := store.GetJob(ctx, job.ID)
	if got.Progress != 0 || got.Status != model.JobStatusPending {
		t.Errorf("progress write should not touch pending job: %+v", got)
	}

	if _, err := store.ClaimNextJob(ctx, "worker-1"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	if err := store.UpdateProgress(ctx, job.ID, 40, "mixing"); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	got, _ = store.GetJob(ctx, job.ID)
	if got.Progress != 40 || got.Stage != "mixing" {
		t.Errorf("expected 40/mixing, got %d/%s", got.Progress, got.Stage)
	}

	// Progress never moves backwards; stage still updates
	if err := store.UpdateProgress(ctx, job.ID, 20, "late-stage"); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	got, _ = store.GetJob(ctx, job.ID)
	if got.Progress != 40 {
		t.Errorf("progress moved backwards to %d", got.Progress)
	}
	if got.Stage != "late-stage" {
		t.Errorf("expected stage update, got %s", got.Stage)
	}
}

func TestCompleteJob(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := mustCreate(t, store, "track-1")
	claimed, _ := store.ClaimNextJob(ctx, "worker-1")

	result := &model.RenderResult{
		ArtifactURL:     "https://cdn.test/a.wav",
		PreviewURL:      "https://cdn.test/a.preview.wav",
		DurationSeconds: 300,
		SizeBytes:       52920000,
		Format:          model.FormatWAV,
	}
	if err := store.CompleteJob(ctx, job.ID, claimed.ClaimGen, result); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}

	got, _ := store.GetJob(ctx, job.ID)
	if got.Status != model.JobStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.Progress != 100 {
		t.Errorf("expected progress 100, got %d", got.Progress)
	}
	if got.Result == nil || got.Result.ArtifactURL != result.ArtifactURL {
		t.Errorf("result lost: %+v", got.Result)
	}

	// Terminal writes are idempotent
	if err := store.CompleteJob(ctx, job.ID, claimed.ClaimGen, result); err != nil {
		t.Errorf("repeat complete should be a no-op, got %v", err)
	}
	if err := store.FailJob(ctx, job.ID, claimed.ClaimGen, "late failure"); err != nil {
		t.Errorf("fail after complete should be a no-op, got %v", err)
	}
	got, _ = store.GetJob(ctx, job.ID)
	if got.Status != model.JobStatusCompleted {
		t.Errorf("terminal status changed to %s", got.Status)
	}
}

func TestFailJob(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := mustCreate(t, store, "track-1")
	claimed, _ := store.ClaimNextJob(ctx, "worker-1")

	if err := store.FailJob(ctx, job.ID, claimed.ClaimGen, "provider error: elevenlabs (status 500)"); err != nil {
		t.Fatalf("FailJob failed: %v", err)
	}

	got, _ := store.GetJob(ctx, job.ID)
	if got.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.Error == nil || *got.Error != "provider error: elevenlabs (status 500)" {
		t.Errorf("error message lost: %v", got.Error)
	}
}

func TestTerminal_RejectsSupersededClaim(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	job := mustCreate(t, store, "track-1")
	first, _ := store.ClaimNextJob(ctx, "worker-dead")

	*now = now.Add(11 * time.Minute)
	second, err := store.ClaimNextJob(ctx, "worker-2")
	if err != nil || second == nil {
		t.Fatalf("reclaim failed: %v %v", second, err)
	}

	// The dead worker comes back and tries to finish under its old claim
	err = store.CompleteJob(ctx, job.ID, first.ClaimGen, &model.RenderResult{ArtifactURL: "stale"})
	if !errors.Is(err, ErrStaleClaim) {
		t.Fatalf("expected ErrStaleClaim, got %v", err)
	}

	got, _ := store.GetJob(ctx, job.ID)
	if got.Status != model.JobStatusProcessing {
		t.Errorf("stale write changed status to %s", got.Status)
	}

	// The current claim still completes normally
	if err := store.CompleteJob(ctx, job.ID, second.ClaimGen, &model.RenderResult{ArtifactURL: "fresh"}); err != nil {
		t.Fatalf("current claim complete failed: %v", err)
	}
	got, _ = store.GetJob(ctx, job.ID)
	if got.Result == nil || got.Result.ArtifactURL != "fresh" {
		t.Errorf("expected current claim's result, got %+v", got.Result)
	}
}

func TestTerminal_RequiresProcessing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := mustCreate(t, store, "track-1")

	err := store.CompleteJob(ctx, job.ID, 0, &model.RenderResult{})
	if err == nil {
		t.Fatal("expected error completing a pending job")
	}
	if errors.Is(err, ErrStaleClaim) {
		t.Error("pending job must not report a stale claim")
	}
}
