package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a translation job.
type Status string

const (
	// StatusSubmitted means the worker accepted the job but no progress
	// event has arrived yet.
	StatusSubmitted Status = "submitted"
	// StatusStreaming means progress events are flowing for the job.
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusSubmitted,
	StatusStreaming,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// validTransitions lists the statuses a job may move to from each status.
var validTransitions = map[Status][]Status{
	StatusSubmitted: {StatusStreaming, StatusCompleted, StatusFailed},
	StatusStreaming: {StatusCompleted, StatusFailed},
}

// ParseStatus normalizes a status string, returning false for unknown values.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a job may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Job is one row of translation history.
type Job struct {
	ID              string
	CorrelationID   string
	SourcePath      string
	SourceFilename  string
	Service         string
	Threads         int
	LangIn          string
	LangOut         string
	Status          Status
	ProgressPercent float64
	ProgressStage   string
	ProgressMessage string
	ErrorMessage    string
	OutputFile      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// Active reports whether the job has not reached an end state.
func (j *Job) Active() bool {
	return j != nil && !j.Status.Terminal()
}

// Summary aggregates job counts per lifecycle state.
type Summary struct {
	Total     int
	Submitted int
	Streaming int
	Completed int
	Failed    int
}

// Active returns the number of jobs still in flight.
func (s Summary) Active() int {
	return s.Submitted + s.Streaming
}
