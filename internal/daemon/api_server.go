package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"glossa/internal/api"
	"glossa/internal/config"
	"glossa/internal/jobs"
	"glossa/internal/logging"
	"glossa/internal/relay"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/translate", srv.handleTranslate)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/jobs/", srv.handleJob)
	mux.HandleFunc("/api/events", srv.handleEvents)
	mux.HandleFunc("/api/logs", srv.handleLogs)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Long-poll handlers hold the response open.
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr returns the bound address, useful when the bind port is zero.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.APIStatus(r.Context()))
}

func (s *apiServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := s.daemon.Submit(r.Context(), relay.SubmitRequest{
		SourcePath: req.SourcePath,
		Service:    req.Service,
		Threads:    req.Threads,
		LangIn:     req.LangIn,
		LangOut:    req.LangOut,
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.SubmitResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		list, err := s.daemon.ListJobs(r.Context(), limit)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(list)})
	case http.MethodDelete:
		all := r.URL.Query().Get("all") == "1" || strings.EqualFold(r.URL.Query().Get("all"), "true")
		removed, err := s.daemon.ClearJobs(r.Context(), all)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.JobsClearResponse{Removed: removed})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, err := s.daemon.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	jobID := strings.TrimSpace(query.Get("jobId"))
	if jobID == "" {
		s.writeError(w, http.StatusBadRequest, "jobId is required")
		return
	}
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")

	ctx := r.Context()
	if follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	list, finished, err := s.daemon.JobEvents(ctx, jobID, since, limit, follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	next := since
	if len(list) > 0 {
		next = list[len(list)-1].Sequence
	}
	s.writeJSON(w, http.StatusOK, api.JobEventsResponse{
		Events:   api.FromEvents(list),
		Next:     next,
		Finished: finished,
	})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	hub := s.daemon.LogStream()
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: nil, Next: 0})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")
	tail := query.Get("tail") == "1" || strings.EqualFold(query.Get("tail"), "true")
	jobID := strings.TrimSpace(query.Get("jobId"))
	component := strings.TrimSpace(query.Get("component"))

	var (
		raw  []logging.LogEvent
		next uint64
	)
	if tail && since == 0 && !follow {
		raw, next = hub.Tail(limit)
	} else {
		ctx := r.Context()
		if follow {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
		}
		var err error
		raw, next, err = hub.Fetch(ctx, since, limit, follow)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	converted := api.FromLogEvents(raw)
	filtered := make([]api.LogEvent, 0, len(converted))
	for _, evt := range converted {
		if jobID != "" && evt.JobID != jobID {
			continue
		}
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		filtered = append(filtered, evt)
	}

	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: filtered, Next: next})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
