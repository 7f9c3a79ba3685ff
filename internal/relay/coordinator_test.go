package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"glossa/internal/config"
	"glossa/internal/engine"
	"glossa/internal/events"
	"glossa/internal/jobs"
	"glossa/internal/logging"
)

type fakeReadiness struct {
	mu    sync.Mutex
	calls int
	port  int
	err   error
}

func (f *fakeReadiness) EnsureReady(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.port, nil
}

func (f *fakeReadiness) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClient struct {
	mu             sync.Mutex
	translateResp  engine.TranslateResponse
	translateErr   error
	translateCalls int
	stream         string
	streamErr      error
	openErr        error
	results        []engine.ResultPayload
	fetchErr       error
	fetchCalls     int
}

// brokenStream yields its buffered bytes, then the given error instead of EOF.
type brokenStream struct {
	r   io.Reader
	err error
}

func (b *brokenStream) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF {
		return n, b.err
	}
	return n, err
}

func (f *fakeClient) Translate(ctx context.Context, port int, req engine.TranslateRequest) (engine.TranslateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.translateCalls++
	return f.translateResp, f.translateErr
}

func (f *fakeClient) OpenEvents(ctx context.Context, port int, jobID string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	if f.streamErr != nil {
		return io.NopCloser(&brokenStream{r: strings.NewReader(f.stream), err: f.streamErr}), nil
	}
	return io.NopCloser(strings.NewReader(f.stream)), nil
}

func (f *fakeClient) FetchResult(ctx context.Context, port int, jobID string) (engine.ResultPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return engine.ResultPayload{}, f.fetchErr
	}
	idx := f.fetchCalls - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx], nil
}

func (f *fakeClient) counts() (translate, fetch int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.translateCalls, f.fetchCalls
}

type fixture struct {
	coordinator *Coordinator
	cfg         *config.Config
	store       *jobs.Store
	hub         *events.Hub
	client      *fakeClient
	readiness   *fakeReadiness
	sourcePath  string
}

func newFixture(t *testing.T, client *fakeClient) *fixture {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OutputDir = filepath.Join(base, "out")

	store, err := jobs.Open(&cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sourcePath := filepath.Join(base, "paper.pdf")
	if err := os.WriteFile(sourcePath, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	hub := events.NewHub(64)
	readiness := &fakeReadiness{port: 43000}
	coordinator := NewCoordinator(&cfg, logging.NewNop(), readiness, client, store, hub, nil)
	coordinator.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	t.Cleanup(coordinator.Close)

	return &fixture{
		coordinator: coordinator,
		cfg:         &cfg,
		store:       store,
		hub:         hub,
		client:      client,
		readiness:   readiness,
		sourcePath:  sourcePath,
	}
}

func (f *fixture) waitSettled(t *testing.T, jobID string) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := f.store.GetByID(context.Background(), jobID)
		if err == nil && job.Status.Terminal() && f.hub.Finished(jobID) {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never settled", jobID)
	return nil
}

func (f *fixture) collectEvents(t *testing.T, jobID string) []events.Event {
	t.Helper()
	list, _, err := f.hub.Fetch(context.Background(), jobID, 0, 0, false)
	if err != nil {
		t.Fatalf("fetch events: %v", err)
	}
	return list
}

func sseFrames(payloads ...string) string {
	var b strings.Builder
	for _, p := range payloads {
		b.WriteString("data: ")
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	return b.String()
}

func notFinished(n int) []engine.ResultPayload {
	out := make([]engine.ResultPayload, n)
	for i := range out {
		out[i] = engine.ResultPayload{OK: false, Error: engine.NotFinishedError}
	}
	return out
}

func TestSubmitRelaysProgressAndSavesResult(t *testing.T) {
	pdfBytes := []byte("%PDF-1.4 translated")
	client := &fakeClient{
		translateResp: engine.TranslateResponse{JobID: "job-1"},
		stream: sseFrames(
			`{"type":"progress","pct":10,"stage":"parse","message":"reading pages"}`,
			`{"type":"progress","pct":70,"stage":"translate","message":"page 5 of 7"}`,
			`{"type":"done","pct":100}`,
		),
		results: append(notFinished(9), engine.ResultPayload{
			OK:        true,
			Filename:  "paper (双语).pdf",
			PDFBase64: base64.StdEncoding.EncodeToString(pdfBytes),
		}),
	}
	f := newFixture(t, client)

	job, err := f.coordinator.Submit(context.Background(), SubmitRequest{SourcePath: f.sourcePath})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.ID != "job-1" || job.Service != "google" || job.Threads != 4 {
		t.Fatalf("unexpected job: %+v", job)
	}

	settled := f.waitSettled(t, job.ID)
	if settled.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", settled.Status, settled.ErrorMessage)
	}
	wantOutput := filepath.Join(f.cfg.Paths.OutputDir, "paper (双语).pdf")
	if settled.OutputFile != wantOutput {
		t.Fatalf("output = %q, want %q", settled.OutputFile, wantOutput)
	}
	saved, err := os.ReadFile(wantOutput)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(saved) != string(pdfBytes) {
		t.Fatal("saved PDF does not match worker payload")
	}

	// Nine not-finished answers then success: ten fetches total.
	if _, fetches := client.counts(); fetches != 10 {
		t.Fatalf("fetch calls = %d, want 10", fetches)
	}

	evts := f.collectEvents(t, job.ID)
	if len(evts) != 3 {
		t.Fatalf("event count = %d, want 3: %+v", len(evts), evts)
	}
	if evts[0].Type != events.TypeProgress || evts[0].Pct != 10 || evts[0].Stage != "parse" {
		t.Fatalf("unexpected first event: %+v", evts[0])
	}
	final := evts[len(evts)-1]
	if final.Type != events.TypeDone || !final.OK || final.OutputFile != wantOutput || final.Pct != 100 {
		t.Fatalf("unexpected terminal event: %+v", final)
	}
}

func TestResultRetryBudgetExhausted(t *testing.T) {
	client := &fakeClient{
		translateResp: engine.TranslateResponse{JobID: "job-1"},
		stream:        sseFrames(`{"type":"done","pct":100}`),
		results:       notFinished(20),
	}
	f := newFixture(t, client)
	f.cfg.Result.Attempts = 10

	job, err := f.coordinator.Submit(context.Background(), SubmitRequest{SourcePath: f.sourcePath})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	settled := f.waitSettled(t, job.ID)
	if settled.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", settled.Status)
	}
	if settled.ErrorMessage != resultUnavailableMessage {
		t.Fatalf("error = %q", settled.ErrorMessage)
	}

	// One initial fetch plus ten retries.
	if _, fetches := client.counts(); fetches != 11 {
		t.Fatalf("fetch calls = %d, want 11", fetches)
	}

	evts := f.collectEvents(t, job.ID)
	if len(evts) != 2 {
		t.Fatalf("event count = %d, want error plus done: %+v", len(evts), evts)
	}
	if evts[0].Type != events.TypeError || evts[0].Message != resultUnavailableMessage {
		t.Fatalf("unexpected error event: %+v", evts[0])
	}
	if evts[0].Detail != engine.NotFinishedError {
		t.Fatalf("error detail = %q, want sentinel text", evts[0].Detail)
	}
	if final := evts[1]; final.Type != events.TypeDone || final.OK {
		t.Fatalf("unexpected terminal event: %+v", final)
	}
}

func TestHardResultFailureStopsRetrying(t *testing.T) {
	client := &fakeClient{
		translateResp: engine.TranslateResponse{JobID: "job-1"},
		stream:        sseFrames(`{"type":"done","pct":100}`),
		results: []engine.ResultPayload{
			{OK: false, Error: "translation failed", Detail: "service quota exceeded"},
		},
	}
	f := newFixture(t, client)

	job, err := f.coordinator.Submit(context.Background(), SubmitRequest{SourcePath: f.sourcePath})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	settled := f.waitSettled(t, job.ID)
	if settled.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", settled.Status)
	}
	if !strings.Contains(settled.ErrorMessage, "translation failed") ||
		!strings.Contains(settled.ErrorMessage, "service quota exceeded") {
		t.Fatalf("error = %q", settled.ErrorMessage)
	}
	if _, fetches := client.counts(); fetches != 1 {
		t.Fatalf("fetch calls = %d, want 1", fetches)
	}
}

func TestWorkerErrorFrameFailsJobWithoutFetch(t *testing.T) {
	client := &fakeClient{
		translateResp: engine.TranslateResponse{JobID: "job-1"},
		stream: sseFrames(
			`{"type":"progress","pct":30,"stage":"translate"}`,
			`{"type":"error","message":"translation failed","detail":"bad glyph table"}`,
		),
		results: notFinished(1),
	}
	f := newFixture(t, client)

	job, err := f.coordinator.Submit(context.Background(), SubmitRequest{SourcePath: f.sourcePath})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	settled := f.waitSettled(t, job.ID)
	if settled.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", settled.Status)
	}
	if _, fetches := client.counts(); fetches != 0 {
		t.Fatalf("fetch calls = %d, want 0", fetches)
	}

	evts := f.collectEvents(t, job.ID)
	if len(evts) != 3 {
		t.Fatalf("event count = %d: %+v", len(evts), evts)
	}
	if evts[1].Type != events.TypeError || evts[1].Detail != "bad glyph table" {
		t.Fatalf("unexpected error event: %+v", evts[1])
	}
}

func TestStreamEndingEarlyFailsJob(t *testing.T) {
	client := &fakeClient{
		translateResp: engine.TranslateResponse{JobID: "job-1"},
		stream:        sseFrames(`{"type":"progress","pct":50}`),
	}
	f := newFixture(t, client)

	job, err := f.coordinator.Submit(context.Background(), SubmitRequest{SourcePath: f.sourcePath})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	settled := f.waitSettled(t, job.ID)
	if settled.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", settled.Status)
	}
	if !strings.Contains(settled.ErrorMessage, "ended before the job finished") {
		t.Fatalf("error = %q", settled.ErrorMessage)
	}
}

func TestStreamTransportFailureCarriesUnderlyingError(t *testing.T) {
	client := &fakeClient{
		translateResp: engine.TranslateResponse{JobID: "job-1"},
		stream:        sseFrames(`{"type":"progress","pct":40,"stage":"translate"}`),
		streamErr:     errors.New("read tcp 127.0.0.1:43000: connection reset by peer"),
	}
	f := newFixture(t, client)

	job, err := f.coordinator.Submit(context.Background(), SubmitRequest{SourcePath: f.sourcePath})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	settled := f.waitSettled(t, job.ID)
	if settled.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", settled.Status)
	}
	if !strings.Contains(settled.ErrorMessage, "event stream failed") ||
		!strings.Contains(settled.ErrorMessage, "connection reset by peer") {
		t.Fatalf("error = %q", settled.ErrorMessage)
	}
	if _, fetches := client.counts(); fetches != 0 {
		t.Fatalf("fetch calls = %d, want 0", fetches)
	}

	evts := f.collectEvents(t, job.ID)
	if len(evts) != 3 {
		t.Fatalf("event count = %d: %+v", len(evts), evts)
	}
	if evts[1].Type != events.TypeError || !strings.Contains(evts[1].Message, "connection reset by peer") {
		t.Fatalf("error event missing transport message: %+v", evts[1])
	}
	if final := evts[2]; final.Type != events.TypeDone || final.OK {
		t.Fatalf("unexpected terminal event: %+v", final)
	}
}

func TestStreamOpenFailureFailsJob(t *testing.T) {
	client := &fakeClient{
		translateResp: engine.TranslateResponse{JobID: "job-1"},
		openErr:       errors.New("connect: connection refused"),
	}
	f := newFixture(t, client)

	job, err := f.coordinator.Submit(context.Background(), SubmitRequest{SourcePath: f.sourcePath})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	settled := f.waitSettled(t, job.ID)
	if settled.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", settled.Status)
	}
	if !strings.Contains(settled.ErrorMessage, "event stream unavailable") ||
		!strings.Contains(settled.ErrorMessage, "connection refused") {
		t.Fatalf("error = %q", settled.ErrorMessage)
	}

	evts := f.collectEvents(t, job.ID)
	if len(evts) != 2 || evts[0].Type != events.TypeError ||
		!strings.Contains(evts[0].Message, "connection refused") {
		t.Fatalf("unexpected events: %+v", evts)
	}
}

func TestSubmitRejectsUnsupportedServiceBeforeWorkerContact(t *testing.T) {
	client := &fakeClient{}
	f := newFixture(t, client)

	_, err := f.coordinator.Submit(context.Background(), SubmitRequest{
		SourcePath: f.sourcePath,
		Service:    "deepl",
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported translation service") {
		t.Fatalf("err = %v", err)
	}
	if f.readiness.callCount() != 0 {
		t.Fatal("EnsureReady called for an invalid submission")
	}
	if translates, _ := client.counts(); translates != 0 {
		t.Fatal("worker contacted for an invalid submission")
	}
}

func TestSubmitRejectsEmptyAndMissingPaths(t *testing.T) {
	client := &fakeClient{}
	f := newFixture(t, client)

	if _, err := f.coordinator.Submit(context.Background(), SubmitRequest{SourcePath: "  "}); err == nil {
		t.Fatal("expected error for empty path")
	}
	missing := filepath.Join(t.TempDir(), "absent.pdf")
	if _, err := f.coordinator.Submit(context.Background(), SubmitRequest{SourcePath: missing}); err == nil {
		t.Fatal("expected error for missing file")
	}
	if f.readiness.callCount() != 0 {
		t.Fatal("EnsureReady called despite validation failure")
	}
}

func TestSubmitSurfacesEngineUnavailable(t *testing.T) {
	client := &fakeClient{}
	f := newFixture(t, client)
	f.readiness.err = errors.New("no engine executable found")

	_, err := f.coordinator.Submit(context.Background(), SubmitRequest{SourcePath: f.sourcePath})
	if err == nil || !strings.Contains(err.Error(), "engine not available") {
		t.Fatalf("err = %v", err)
	}
}

func TestOutputNameCollisionGetsSuffix(t *testing.T) {
	pdf := base64.StdEncoding.EncodeToString([]byte("pdf-two"))
	client := &fakeClient{
		translateResp: engine.TranslateResponse{JobID: "job-1"},
		stream:        sseFrames(`{"type":"done","pct":100}`),
		results: []engine.ResultPayload{
			{OK: true, Filename: "paper (双语).pdf", PDFBase64: pdf},
		},
	}
	f := newFixture(t, client)
	if err := os.MkdirAll(f.cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	existing := filepath.Join(f.cfg.Paths.OutputDir, "paper (双语).pdf")
	if err := os.WriteFile(existing, []byte("pdf-one"), 0o644); err != nil {
		t.Fatalf("seed existing output: %v", err)
	}

	job, err := f.coordinator.Submit(context.Background(), SubmitRequest{SourcePath: f.sourcePath})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	settled := f.waitSettled(t, job.ID)
	want := filepath.Join(f.cfg.Paths.OutputDir, "paper (双语) (1).pdf")
	if settled.OutputFile != want {
		t.Fatalf("output = %q, want %q", settled.OutputFile, want)
	}
	if data, _ := os.ReadFile(existing); string(data) != "pdf-one" {
		t.Fatal("existing output was overwritten")
	}
}

func TestWorkerErrorMessageFormatting(t *testing.T) {
	cases := []struct {
		message string
		detail  string
		want    string
	}{
		{"", "", "translation failed"},
		{"boom", "", "boom"},
		{"", "deep detail", "deep detail"},
		{"boom", "boom", "boom"},
		{"boom", "deep detail", "boom: deep detail"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%s", tc.message, tc.detail), func(t *testing.T) {
			if got := workerErrorMessage(tc.message, tc.detail); got != tc.want {
				t.Fatalf("workerErrorMessage(%q, %q) = %q, want %q", tc.message, tc.detail, got, tc.want)
			}
		})
	}
}
