// Package api defines the transport DTOs shared by the loopback HTTP API,
// the IPC surface, and the CLI.
package api

import (
	"time"

	"glossa/internal/engine"
	"glossa/internal/events"
	"glossa/internal/jobs"
	"glossa/internal/logging"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobItem describes a translation job in a transport-friendly format.
type JobItem struct {
	ID             string      `json:"id"`
	CorrelationID  string      `json:"correlationId,omitempty"`
	SourcePath     string      `json:"sourcePath"`
	SourceFilename string      `json:"sourceFilename"`
	Service        string      `json:"service"`
	Threads        int         `json:"threads"`
	LangIn         string      `json:"langIn,omitempty"`
	LangOut        string      `json:"langOut,omitempty"`
	Status         string      `json:"status"`
	Progress       JobProgress `json:"progress"`
	ErrorMessage   string      `json:"errorMessage,omitempty"`
	OutputFile     string      `json:"outputFile,omitempty"`
	CreatedAt      string      `json:"createdAt,omitempty"`
	UpdatedAt      string      `json:"updatedAt,omitempty"`
	CompletedAt    string      `json:"completedAt,omitempty"`
}

// JobProgress captures the latest progress frame for a job.
type JobProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// FromJob converts a stored job into its transport form.
func FromJob(job *jobs.Job) JobItem {
	if job == nil {
		return JobItem{}
	}
	item := JobItem{
		ID:             job.ID,
		CorrelationID:  job.CorrelationID,
		SourcePath:     job.SourcePath,
		SourceFilename: job.SourceFilename,
		Service:        job.Service,
		Threads:        job.Threads,
		LangIn:         job.LangIn,
		LangOut:        job.LangOut,
		Status:         string(job.Status),
		Progress: JobProgress{
			Stage:   job.ProgressStage,
			Percent: job.ProgressPercent,
			Message: job.ProgressMessage,
		},
		ErrorMessage: job.ErrorMessage,
		OutputFile:   job.OutputFile,
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
	}
	if job.CompletedAt != nil {
		item.CompletedAt = formatTime(*job.CompletedAt)
	}
	return item
}

// FromJobs converts a job slice, skipping nil entries.
func FromJobs(list []*jobs.Job) []JobItem {
	out := make([]JobItem, 0, len(list))
	for _, job := range list {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job))
	}
	return out
}

// JobEvent is one progress frame on a job's event stream.
type JobEvent struct {
	Sequence   uint64  `json:"seq"`
	Timestamp  string  `json:"ts"`
	JobID      string  `json:"jobId"`
	Type       string  `json:"type"`
	Pct        float64 `json:"pct"`
	Stage      string  `json:"stage,omitempty"`
	Message    string  `json:"message,omitempty"`
	Detail     string  `json:"detail,omitempty"`
	OK         bool    `json:"ok"`
	OutputFile string  `json:"outputFile,omitempty"`
}

// FromEvent converts a hub event into its transport form.
func FromEvent(evt events.Event) JobEvent {
	return JobEvent{
		Sequence:   evt.Sequence,
		Timestamp:  formatTime(evt.Timestamp),
		JobID:      evt.JobID,
		Type:       evt.Type,
		Pct:        evt.Pct,
		Stage:      evt.Stage,
		Message:    evt.Message,
		Detail:     evt.Detail,
		OK:         evt.OK,
		OutputFile: evt.OutputFile,
	}
}

// FromEvents converts a hub event slice.
func FromEvents(list []events.Event) []JobEvent {
	out := make([]JobEvent, 0, len(list))
	for _, evt := range list {
		out = append(out, FromEvent(evt))
	}
	return out
}

// JobEventsResponse carries one page of a job's event stream.
type JobEventsResponse struct {
	Events   []JobEvent `json:"events"`
	Next     uint64     `json:"next"`
	Finished bool       `json:"finished"`
}

// EngineStatus reports the supervised worker process state.
type EngineStatus struct {
	Running        bool `json:"running"`
	PID            int  `json:"pid"`
	Port           int  `json:"port"`
	LaunchPending  bool `json:"launchPending"`
	RecentRestarts int  `json:"recentRestarts"`
}

// FromEngineStatus converts a supervisor snapshot into its transport form.
func FromEngineStatus(status engine.Status) EngineStatus {
	return EngineStatus{
		Running:        status.Running,
		PID:            status.PID,
		Port:           status.Port,
		LaunchPending:  status.Pending,
		RecentRestarts: status.Restarts,
	}
}

// JobStats aggregates job counts per lifecycle state.
type JobStats struct {
	Total     int `json:"total"`
	Submitted int `json:"submitted"`
	Streaming int `json:"streaming"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// FromSummary converts store counts into their transport form.
func FromSummary(summary jobs.Summary) JobStats {
	return JobStats{
		Total:     summary.Total,
		Submitted: summary.Submitted,
		Streaming: summary.Streaming,
		Completed: summary.Completed,
		Failed:    summary.Failed,
	}
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Engine       EngineStatus       `json:"engine"`
	Jobs         JobStats           `json:"jobs"`
	JobDBPath    string             `json:"jobDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	OutputDir    string             `json:"outputDir"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// SubmitRequest is the HTTP submission payload.
type SubmitRequest struct {
	SourcePath string `json:"sourcePath"`
	Service    string `json:"service,omitempty"`
	Threads    int    `json:"threads,omitempty"`
	LangIn     string `json:"langIn,omitempty"`
	LangOut    string `json:"langOut,omitempty"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	Job JobItem `json:"job"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []JobItem `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobItem `json:"job"`
}

// JobsClearResponse reports the number of removed history rows.
type JobsClearResponse struct {
	Removed int64 `json:"removed"`
}

// LogEvent mirrors a structured log line for API consumers.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	JobID         string            `json:"jobId,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// FromLogEvents converts hub log events into their transport form.
func FromLogEvents(list []logging.LogEvent) []LogEvent {
	out := make([]LogEvent, 0, len(list))
	for _, evt := range list {
		out = append(out, LogEvent{
			Sequence:      evt.Sequence,
			Timestamp:     evt.Timestamp,
			Level:         evt.Level,
			Message:       evt.Message,
			Component:     evt.Component,
			JobID:         evt.JobID,
			CorrelationID: evt.CorrelationID,
			Fields:        evt.Fields,
		})
	}
	return out
}

// LogStreamResponse carries one page of the log stream.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}
