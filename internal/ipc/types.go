package ipc

import "glossa/internal/api"

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse mirrors the HTTP status payload for IPC callers.
type StatusResponse = api.DaemonStatus

// TranslateRequest submits a PDF for translation.
type TranslateRequest struct {
	SourcePath string `json:"source_path"`
	Service    string `json:"service"`
	Threads    int    `json:"threads"`
	LangIn     string `json:"lang_in"`
	LangOut    string `json:"lang_out"`
}

// TranslateResponse acknowledges an accepted submission.
type TranslateResponse struct {
	Job api.JobItem `json:"job"`
}

// JobListRequest lists translation history.
type JobListRequest struct {
	Limit int `json:"limit"`
}

// JobListResponse contains history entries.
type JobListResponse struct {
	Jobs []api.JobItem `json:"jobs"`
}

// JobDescribeRequest fetches a single job by id.
type JobDescribeRequest struct {
	ID string `json:"id"`
}

// JobDescribeResponse contains a single job.
type JobDescribeResponse struct {
	Job api.JobItem `json:"job"`
}

// JobEventsRequest fetches a page of a job's event stream.
type JobEventsRequest struct {
	JobID string `json:"job_id"`
	Since uint64 `json:"since"`
	Limit int    `json:"limit"`
	Wait  bool   `json:"wait"`
}

// JobEventsResponse returns event frames and the next cursor.
type JobEventsResponse = api.JobEventsResponse

// JobsClearRequest removes history entries.
type JobsClearRequest struct {
	All bool `json:"all"`
}

// JobsClearResponse reports number of removed entries.
type JobsClearResponse struct {
	Removed int64 `json:"removed"`
}

// LogTailRequest fetches buffered log events.
type LogTailRequest struct {
	Since  uint64 `json:"since"`
	Limit  int    `json:"limit"`
	Follow bool   `json:"follow"`
}

// LogTailResponse returns log events and the next cursor.
type LogTailResponse = api.LogStreamResponse
