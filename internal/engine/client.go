package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPDoer abstracts the HTTP client so tests can swap transports.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TranslateRequest is the submission payload for the worker's translate
// endpoint. Paths are absolute on the local filesystem; the worker reads the
// source PDF directly.
type TranslateRequest struct {
	SourcePath     string `json:"source_path"`
	SourceFilename string `json:"source_filename"`
	Service        string `json:"service"`
	Threads        int    `json:"threads"`
	LangIn         string `json:"lang_in,omitempty"`
	LangOut        string `json:"lang_out,omitempty"`
}

// TranslateResponse carries the worker-assigned job identifier.
type TranslateResponse struct {
	JobID string `json:"jobId"`
}

// StreamEvent is one frame of the worker's per-job event stream.
type StreamEvent struct {
	Type    string  `json:"type"`
	Pct     float64 `json:"pct"`
	Stage   string  `json:"stage"`
	Message string  `json:"message"`
	Detail  string  `json:"detail"`
}

// ResultPayload is the worker's result-fetch response. OK false with the
// not-finished sentinel error means the result is not available yet.
type ResultPayload struct {
	OK        bool   `json:"ok"`
	Filename  string `json:"filename"`
	PDFBase64 string `json:"pdf_base64"`
	Error     string `json:"error"`
	Detail    string `json:"detail"`
}

// NotFinishedError is the sentinel the worker returns while a job's result
// is still being produced.
const NotFinishedError = "job not finished"

// NotFinished reports whether the payload is the transient not-ready sentinel.
func (p ResultPayload) NotFinished() bool {
	return !p.OK && p.Error == NotFinishedError
}

// Client talks to a running worker over loopback HTTP.
type Client struct {
	httpClient HTTPDoer
	// streamClient has no timeout; event streams stay open for the
	// lifetime of a job.
	streamClient HTTPDoer
}

// NewClient constructs a worker client with sensible request timeouts.
func NewClient() *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
	}
}

func baseURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

func jobURL(port int, path, jobID string) string {
	query := url.Values{"jobId": {jobID}}
	return baseURL(port) + path + "?" + query.Encode()
}

// Translate submits a job to the worker and returns the assigned job ID.
func (c *Client) Translate(ctx context.Context, port int, req TranslateRequest) (TranslateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return TranslateResponse{}, fmt.Errorf("encode translate request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL(port)+"/translate", bytes.NewReader(body))
	if err != nil {
		return TranslateResponse{}, fmt.Errorf("build translate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return TranslateResponse{}, fmt.Errorf("submit translate request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return TranslateResponse{}, fmt.Errorf("translate request rejected: status %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	var out TranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return TranslateResponse{}, fmt.Errorf("decode translate response: %w", err)
	}
	if out.JobID == "" {
		return TranslateResponse{}, fmt.Errorf("translate response missing job id")
	}
	return out, nil
}

// OpenEvents opens the worker's event stream for a job. The caller owns the
// returned body and must close it.
func (c *Client) OpenEvents(ctx context.Context, port int, jobID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL(port, "/events", jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("build event stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream rejected: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// FetchResult performs a single result fetch for a job.
func (c *Client) FetchResult(ctx context.Context, port int, jobID string) (ResultPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL(port, "/result", jobID), nil)
	if err != nil {
		return ResultPayload{}, fmt.Errorf("build result request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ResultPayload{}, fmt.Errorf("fetch result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ResultPayload{}, fmt.Errorf("result request rejected: status %d", resp.StatusCode)
	}

	var out ResultPayload
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ResultPayload{}, fmt.Errorf("decode result response: %w", err)
	}
	return out, nil
}
