package api

import (
	"testing"
	"time"

	"glossa/internal/events"
	"glossa/internal/jobs"
)

func TestFromJobCarriesProgressAndCompletion(t *testing.T) {
	completed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	job := &jobs.Job{
		ID:              "job-1",
		CorrelationID:   "corr-1",
		SourcePath:      "/tmp/paper.pdf",
		SourceFilename:  "paper.pdf",
		Service:         "bing",
		Threads:         8,
		LangIn:          "en",
		LangOut:         "zh",
		Status:          jobs.StatusCompleted,
		ProgressPercent: 100,
		ProgressStage:   "export",
		OutputFile:      "/out/paper (双语).pdf",
		CreatedAt:       completed.Add(-time.Minute),
		UpdatedAt:       completed,
		CompletedAt:     &completed,
	}

	item := FromJob(job)
	if item.Status != "completed" || item.Progress.Percent != 100 || item.Progress.Stage != "export" {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.CompletedAt == "" || item.CreatedAt == "" {
		t.Fatal("timestamps not formatted")
	}
	if item.OutputFile != "/out/paper (双语).pdf" {
		t.Fatalf("output file = %q", item.OutputFile)
	}
}

func TestFromJobsSkipsNil(t *testing.T) {
	list := FromJobs([]*jobs.Job{nil, {ID: "job-1", Status: jobs.StatusSubmitted}})
	if len(list) != 1 || list[0].ID != "job-1" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestFromEventPreservesTerminalFields(t *testing.T) {
	evt := FromEvent(events.Event{
		Sequence:   7,
		Timestamp:  time.Now(),
		JobID:      "job-1",
		Type:       events.TypeDone,
		Pct:        100,
		OK:         true,
		OutputFile: "/out/a.pdf",
	})
	if evt.Sequence != 7 || evt.Type != "done" || !evt.OK || evt.OutputFile == "" {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

func TestFromSummary(t *testing.T) {
	stats := FromSummary(jobs.Summary{Total: 4, Submitted: 1, Streaming: 1, Completed: 1, Failed: 1})
	if stats.Total != 4 || stats.Streaming != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
