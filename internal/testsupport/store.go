package testsupport

import (
	"context"
	"testing"
	"time"

	"glossa/internal/config"
	"glossa/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedJob inserts a job record in the given terminal or in-flight state.
func SeedJob(t testing.TB, store *jobs.Store, id string, status jobs.Status) *jobs.Job {
	t.Helper()

	now := time.Now().UTC()
	job := &jobs.Job{
		ID:             id,
		CorrelationID:  id + "-corr",
		SourcePath:     "/tmp/" + id + ".pdf",
		SourceFilename: id + ".pdf",
		Service:        "google",
		Threads:        4,
		LangIn:         "en",
		LangOut:        "zh",
		Status:         jobs.StatusSubmitted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	ctx := context.Background()
	if err := store.Insert(ctx, job); err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	switch status {
	case jobs.StatusSubmitted:
	case jobs.StatusStreaming:
		if err := store.UpdateProgress(ctx, id, 10, "parse", "parsing layout"); err != nil {
			t.Fatalf("store.UpdateProgress: %v", err)
		}
	case jobs.StatusCompleted:
		if err := store.Complete(ctx, id, "/tmp/"+id+"-out.pdf"); err != nil {
			t.Fatalf("store.Complete: %v", err)
		}
	case jobs.StatusFailed:
		if err := store.Fail(ctx, id, "translation failed"); err != nil {
			t.Fatalf("store.Fail: %v", err)
		}
	default:
		t.Fatalf("unknown status %q", status)
	}

	seeded, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("store.GetByID: %v", err)
	}
	return seeded
}
