package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"glossa/internal/api"
	"glossa/internal/daemon"
	"glossa/internal/jobs"
	"glossa/internal/logging"
	"glossa/internal/relay"
)

// followWaitBudget bounds how long a blocking JobEvents or LogTail call may
// hold its connection.
const followWaitBudget = 30 * time.Second

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Glossa", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun glossa stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.APIStatus(s.ctx)
	return nil
}

func (s *service) Translate(req TranslateRequest, resp *TranslateResponse) error {
	job, err := s.daemon.Submit(s.ctx, relay.SubmitRequest{
		SourcePath: req.SourcePath,
		Service:    req.Service,
		Threads:    req.Threads,
		LangIn:     req.LangIn,
		LangOut:    req.LangOut,
	})
	if err != nil {
		return err
	}
	resp.Job = api.FromJob(job)
	return nil
}

func (s *service) JobList(req JobListRequest, resp *JobListResponse) error {
	list, err := s.daemon.ListJobs(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Jobs = api.FromJobs(list)
	return nil
}

func (s *service) JobDescribe(req JobDescribeRequest, resp *JobDescribeResponse) error {
	if req.ID == "" {
		return errors.New("job id is required")
	}
	job, err := s.daemon.GetJob(s.ctx, req.ID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return fmt.Errorf("job %s not found", req.ID)
		}
		return err
	}
	resp.Job = api.FromJob(job)
	return nil
}

func (s *service) JobEvents(req JobEventsRequest, resp *JobEventsResponse) error {
	if req.JobID == "" {
		return errors.New("job id is required")
	}
	ctx := s.ctx
	if req.Wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, followWaitBudget)
		defer cancel()
	}
	list, finished, err := s.daemon.JobEvents(ctx, req.JobID, req.Since, req.Limit, req.Wait)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Events = api.FromEvents(list)
	resp.Finished = finished
	resp.Next = req.Since
	if len(list) > 0 {
		resp.Next = list[len(list)-1].Sequence
	}
	return nil
}

func (s *service) JobsClear(req JobsClearRequest, resp *JobsClearResponse) error {
	s.log().Debug("job history clear requested")
	removed, err := s.daemon.ClearJobs(s.ctx, req.All)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("job history cleared",
		logging.String(logging.FieldEventType, "jobs_clear"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	hub := s.daemon.LogStream()
	if hub == nil {
		resp.Events = nil
		resp.Next = 0
		return nil
	}
	ctx := s.ctx
	if req.Follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, followWaitBudget)
		defer cancel()
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 200
	}
	raw, next, err := hub.Fetch(ctx, req.Since, limit, req.Follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Events = api.FromLogEvents(raw)
	resp.Next = next
	return nil
}
