package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"glossa/internal/config"
	"glossa/internal/engine"
	"glossa/internal/events"
	"glossa/internal/fileutil"
	"glossa/internal/jobs"
	"glossa/internal/jsonline"
	"glossa/internal/logging"
	"glossa/internal/notifications"
)

// ssePrefix marks payload lines on the worker's event stream.
const ssePrefix = "data:"

// resultUnavailableMessage is reported when the worker keeps answering
// not-finished after the retry budget runs out.
const resultUnavailableMessage = "translated result never became available"

// Readiness supplies a ready worker port on demand.
type Readiness interface {
	EnsureReady(ctx context.Context) (int, error)
}

// WorkerClient is the slice of the engine client the coordinator needs.
type WorkerClient interface {
	Translate(ctx context.Context, port int, req engine.TranslateRequest) (engine.TranslateResponse, error)
	OpenEvents(ctx context.Context, port int, jobID string) (io.ReadCloser, error)
	FetchResult(ctx context.Context, port int, jobID string) (engine.ResultPayload, error)
}

// SubmitRequest describes one translation submission. Zero-valued fields
// fall back to configured defaults.
type SubmitRequest struct {
	SourcePath string
	Service    string
	Threads    int
	LangIn     string
	LangOut    string
}

// Coordinator owns job submission and event relaying.
type Coordinator struct {
	cfg       *config.Config
	logger    *slog.Logger
	readiness Readiness
	client    WorkerClient
	store     *jobs.Store
	hub       *events.Hub
	notifier  notifications.Service

	// sleep is swapped in tests to avoid real retry delays.
	sleep func(ctx context.Context, d time.Duration) error

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewCoordinator wires the coordinator to its collaborators.
func NewCoordinator(cfg *config.Config, logger *slog.Logger, readiness Readiness, client WorkerClient, store *jobs.Store, hub *events.Hub, notifier notifications.Service) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Coordinator{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "relay"),
		readiness: readiness,
		client:    client,
		store:     store,
		hub:       hub,
		notifier:  notifier,
		sleep:     sleepContext,
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Close stops all followers and waits for them to drain.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}

// Submit validates and posts a translation job. Validation failures never
// touch the worker; in particular an unsupported service is rejected before
// any process launch or HTTP request.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest) (*jobs.Job, error) {
	sourcePath := strings.TrimSpace(req.SourcePath)
	if sourcePath == "" {
		return nil, errors.New("source path is required")
	}
	absPath, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("source file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source path %s is a directory", absPath)
	}

	service := strings.TrimSpace(req.Service)
	if service == "" {
		service = c.cfg.Engine.DefaultService
	}
	if !config.ServiceSupported(service) {
		return nil, fmt.Errorf("unsupported translation service %q (supported: %s)",
			service, strings.Join(config.Services, ", "))
	}
	threads := req.Threads
	if threads <= 0 {
		threads = c.cfg.Engine.Threads
	}
	langIn := strings.TrimSpace(req.LangIn)
	if langIn == "" {
		langIn = c.cfg.Engine.LangIn
	}
	langOut := strings.TrimSpace(req.LangOut)
	if langOut == "" {
		langOut = c.cfg.Engine.LangOut
	}

	correlationID := uuid.NewString()
	logger := c.logger.With(
		logging.String(logging.FieldCorrelationID, correlationID),
		logging.String(logging.FieldService, service))

	port, err := c.readiness.EnsureReady(ctx)
	if err != nil {
		logger.Error("engine unavailable for submission", logging.Error(err))
		return nil, fmt.Errorf("engine not available: %w", err)
	}

	resp, err := c.client.Translate(ctx, port, engine.TranslateRequest{
		SourcePath:     absPath,
		SourceFilename: filepath.Base(absPath),
		Service:        service,
		Threads:        threads,
		LangIn:         langIn,
		LangOut:        langOut,
	})
	if err != nil {
		logger.Error("submission rejected", logging.Error(err))
		return nil, err
	}

	job := &jobs.Job{
		ID:             resp.JobID,
		CorrelationID:  correlationID,
		SourcePath:     absPath,
		SourceFilename: filepath.Base(absPath),
		Service:        service,
		Threads:        threads,
		LangIn:         langIn,
		LangOut:        langOut,
	}
	if err := c.store.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("record job: %w", err)
	}

	logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", job.SourceFilename))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.follow(job.ID, port, logger.With(logging.String(logging.FieldJobID, job.ID)))
	}()
	return job, nil
}

// follow tails the worker's event stream for one job and settles the job
// when the stream ends.
func (c *Coordinator) follow(jobID string, port int, logger *slog.Logger) {
	ctx := c.baseCtx

	body, err := c.client.OpenEvents(ctx, port, jobID)
	if err != nil {
		c.failJob(ctx, jobID, fmt.Sprintf("event stream unavailable: %v", err), "", logger)
		return
	}
	defer body.Close()

	var (
		sawDone   bool
		sawError  bool
		errorMsg  string
		streamErr error
	)
	decoder := jsonline.NewDecoder(body, jsonline.WithPrefix(ssePrefix))
	for {
		payload, decodeErr := decoder.Next()
		if decodeErr != nil {
			if decodeErr != io.EOF {
				streamErr = decodeErr
				logger.Warn("event stream read failed", logging.Error(decodeErr))
			}
			break
		}
		var evt engine.StreamEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			continue
		}
		switch evt.Type {
		case events.TypeProgress:
			c.hub.Publish(events.Event{
				JobID:   jobID,
				Type:    events.TypeProgress,
				Pct:     evt.Pct,
				Stage:   evt.Stage,
				Message: evt.Message,
			})
			if err := c.store.UpdateProgress(ctx, jobID, evt.Pct, evt.Stage, evt.Message); err != nil {
				logger.Warn("progress not recorded", logging.Error(err))
			}
		case events.TypeError:
			sawError = true
			errorMsg = workerErrorMessage(evt.Message, evt.Detail)
			c.hub.Publish(events.Event{
				JobID:   jobID,
				Type:    events.TypeError,
				Message: evt.Message,
				Detail:  evt.Detail,
			})
		case events.TypeDone:
			sawDone = true
		}
		if sawDone {
			break
		}
	}

	switch {
	case sawDone:
		c.settleResult(ctx, jobID, port, logger)
	case sawError:
		c.finishFailed(ctx, jobID, errorMsg, logger)
	case streamErr != nil:
		c.failJob(ctx, jobID, fmt.Sprintf("event stream failed: %v", streamErr), "", logger)
	default:
		c.failJob(ctx, jobID, "event stream ended before the job finished", "", logger)
	}
}

// settleResult fetches the finished PDF, retrying through the worker's
// not-finished window, and completes or fails the job accordingly.
func (c *Coordinator) settleResult(ctx context.Context, jobID string, port int, logger *slog.Logger) {
	delay := time.Duration(c.cfg.Result.DelayMS) * time.Millisecond
	retries := c.cfg.Result.Attempts

	var (
		payload engine.ResultPayload
		err     error
	)
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
				c.failJob(ctx, jobID, "shutdown before the result was fetched", "", logger)
				return
			}
		}
		payload, err = c.client.FetchResult(ctx, port, jobID)
		if err != nil {
			c.failJob(ctx, jobID, fmt.Sprintf("result fetch failed: %v", err), "", logger)
			return
		}
		if payload.OK {
			c.persistResult(ctx, jobID, payload, logger)
			return
		}
		if !payload.NotFinished() {
			// A hard failure from the worker; do not keep polling.
			c.failJob(ctx, jobID, workerErrorMessage(payload.Error, payload.Detail), payload.Detail, logger)
			return
		}
	}

	// Retry budget exhausted on the not-finished sentinel.
	detail := payload.Detail
	if detail == "" {
		detail = payload.Error
	}
	c.failJob(ctx, jobID, resultUnavailableMessage, detail, logger)
}

// persistResult decodes and saves the translated PDF, then completes the job.
func (c *Coordinator) persistResult(ctx context.Context, jobID string, payload engine.ResultPayload, logger *slog.Logger) {
	pdf, err := base64.StdEncoding.DecodeString(payload.PDFBase64)
	if err != nil {
		c.failJob(ctx, jobID, fmt.Sprintf("result payload corrupt: %v", err), "", logger)
		return
	}

	outputPath, err := c.writeOutput(payload.Filename, pdf)
	if err != nil {
		c.failJob(ctx, jobID, fmt.Sprintf("save translated PDF: %v", err), "", logger)
		return
	}

	if err := c.store.Complete(ctx, jobID, outputPath); err != nil {
		logger.Warn("completion not recorded", logging.Error(err))
	}
	c.hub.Publish(events.Event{
		JobID:      jobID,
		Type:       events.TypeDone,
		Pct:        100,
		OK:         true,
		OutputFile: outputPath,
	})
	logger.Info("job completed", logging.String("output", outputPath))
	if err := c.notifier.NotifyTranslationCompleted(ctx, c.jobFilename(ctx, jobID), outputPath); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}
}

// finishFailed settles a job the worker itself reported as failed. The error
// event was already relayed, so only the terminal frame is published here.
func (c *Coordinator) finishFailed(ctx context.Context, jobID, message string, logger *slog.Logger) {
	if err := c.store.Fail(ctx, jobID, message); err != nil {
		logger.Warn("failure not recorded", logging.Error(err))
	}
	c.hub.Publish(events.Event{
		JobID:   jobID,
		Type:    events.TypeDone,
		Message: message,
	})
	logger.Warn("job failed", logging.String("reason", message))
	if err := c.notifier.NotifyTranslationFailed(ctx, c.jobFilename(ctx, jobID), message); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
}

// jobFilename resolves the source filename for notification text, falling
// back to the job ID when the record is unavailable.
func (c *Coordinator) jobFilename(ctx context.Context, jobID string) string {
	job, err := c.store.GetByID(ctx, jobID)
	if err != nil || job.SourceFilename == "" {
		return jobID
	}
	return job.SourceFilename
}

// failJob publishes an error frame on the job's stream and settles it failed.
func (c *Coordinator) failJob(ctx context.Context, jobID, message, detail string, logger *slog.Logger) {
	c.hub.Publish(events.Event{
		JobID:   jobID,
		Type:    events.TypeError,
		Message: message,
		Detail:  detail,
	})
	c.finishFailed(ctx, jobID, message, logger)
}

// writeOutput saves the PDF bytes under the configured output directory,
// never overwriting an existing file.
func (c *Coordinator) writeOutput(filename string, pdf []byte) (string, error) {
	name := fileutil.SanitizeFilename(filename, "translated.pdf")
	return fileutil.WriteFileUnique(c.cfg.Paths.OutputDir, name, pdf)
}

func workerErrorMessage(message, detail string) string {
	message = strings.TrimSpace(message)
	detail = strings.TrimSpace(detail)
	switch {
	case message == "" && detail == "":
		return "translation failed"
	case message == "":
		return detail
	case detail == "" || detail == message:
		return message
	default:
		return message + ": " + detail
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
