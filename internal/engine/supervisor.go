package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"glossa/internal/config"
	"glossa/internal/jsonline"
	"glossa/internal/logging"
)

var commandContext = exec.CommandContext

// stderrTailBytes bounds the retained stderr diagnostic context.
const stderrTailBytes = 2000

const shutdownGrace = 3 * time.Second

// ErrShuttingDown is returned by EnsureReady once shutdown has begun.
var ErrShuttingDown = errors.New("engine supervisor is shutting down")

// Supervisor owns the worker process handle. At most one worker runs at a
// time and at most one launch is in flight; concurrent EnsureReady calls
// share the pending launch instead of spawning duplicates.
type Supervisor struct {
	cfg    *config.Config
	logger *slog.Logger

	mu           sync.Mutex
	cmd          *exec.Cmd
	pid          int
	port         int
	pending      *launchAttempt
	shuttingDown bool
	restarts     []time.Time
	stderrTail   *tailBuffer
	exitWait     chan struct{}
}

// Status is a snapshot of supervisor state.
type Status struct {
	Running  bool
	PID      int
	Port     int
	Pending  bool
	Restarts int
}

type launchAttempt struct {
	done chan struct{}
	port int
	err  error
}

// NewSupervisor constructs a supervisor for the configured engine.
func NewSupervisor(cfg *config.Config, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "engine"),
	}
}

// EnsureReady returns the worker's listen port, launching the worker first if
// necessary. Concurrent calls while a launch is pending share its outcome.
func (s *Supervisor) EnsureReady(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return 0, ErrShuttingDown
	}
	if s.port != 0 {
		port := s.port
		s.mu.Unlock()
		return port, nil
	}
	att := s.pending
	if att == nil {
		att = &launchAttempt{done: make(chan struct{})}
		s.pending = att
		// An explicit readiness request opens a fresh respawn window.
		s.restarts = nil
		go s.runLaunch(att)
	}
	s.mu.Unlock()

	select {
	case <-att.done:
		return att.port, att.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Port returns the stored worker port, or zero when no worker is ready.
func (s *Supervisor) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Status reports the supervisor's current state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:  s.cmd != nil,
		PID:      s.pid,
		Port:     s.port,
		Pending:  s.pending != nil,
		Restarts: len(s.restarts),
	}
}

// LastStderr returns the retained tail of the worker's stderr output.
func (s *Supervisor) LastStderr() string {
	s.mu.Lock()
	tail := s.stderrTail
	s.mu.Unlock()
	if tail == nil {
		return ""
	}
	return tail.String()
}

// Shutdown terminates the worker process and suppresses any further respawn.
// It returns once the worker has exited or the grace period elapses.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	s.shuttingDown = true
	cmd := s.cmd
	var wait chan struct{}
	if cmd != nil {
		wait = make(chan struct{})
		s.exitWait = wait
	}
	s.mu.Unlock()

	if cmd == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-wait:
	case <-time.After(shutdownGrace):
		_ = cmd.Process.Kill()
		select {
		case <-wait:
		case <-time.After(shutdownGrace):
		}
	}
}

func (s *Supervisor) runLaunch(att *launchAttempt) {
	port, cmd, tail, exitCh, err := s.spawnAndAwaitReady()

	s.mu.Lock()
	if err == nil && s.shuttingDown {
		err = ErrShuttingDown
		s.mu.Unlock()
		_ = cmd.Process.Kill()
		<-exitCh
		s.mu.Lock()
	}
	if err != nil {
		att.err = err
	} else {
		s.cmd = cmd
		s.pid = cmd.Process.Pid
		s.port = port
		s.stderrTail = tail
		att.port = port
	}
	if s.pending == att {
		s.pending = nil
	}
	s.mu.Unlock()
	close(att.done)

	if err == nil {
		go s.watch(cmd, exitCh)
	}
}

func (s *Supervisor) spawnAndAwaitReady() (int, *exec.Cmd, *tailBuffer, chan struct{}, error) {
	candidate, err := selectCandidate(s.cfg)
	if err != nil {
		return 0, nil, nil, nil, err
	}

	args := append(append([]string{}, candidate.Args...), "--port", "0")
	cmd := commandContext(context.Background(), candidate.Path, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, nil, nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, nil, nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, nil, nil, nil, fmt.Errorf("start engine (%s): %w", candidate.Label, err)
	}

	s.logger.Info("engine launching",
		logging.String(logging.FieldEventType, "engine_launch"),
		logging.String("candidate", candidate.Label),
		logging.String("path", candidate.Path),
		logging.Int(logging.FieldEnginePID, cmd.Process.Pid))

	tail := newTailBuffer(stderrTailBytes)
	readyCh := make(chan int, 1)
	exitCh := make(chan struct{})

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		s.relayStderr(stderr, tail)
	}()
	go func() {
		defer readers.Done()
		scanHandshake(stdout, readyCh)
	}()
	go func() {
		readers.Wait()
		_ = cmd.Wait()
		close(exitCh)
	}()

	timeout := time.Duration(s.cfg.Engine.ReadyTimeoutSeconds) * time.Second
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case port := <-readyCh:
		s.logger.Info("engine ready",
			logging.String(logging.FieldEventType, "engine_ready"),
			logging.Int(logging.FieldEnginePID, cmd.Process.Pid),
			logging.Int(logging.FieldEnginePort, port))
		return port, cmd, tail, exitCh, nil
	case <-exitCh:
		return 0, nil, nil, nil, fmt.Errorf("engine exited before ready handshake; stderr: %s", tail.String())
	case <-timer.C:
		_ = cmd.Process.Kill()
		<-exitCh
		return 0, nil, nil, nil, fmt.Errorf("engine not ready within %s; stderr: %s", timeout, tail.String())
	}
}

// watch clears the worker handle when the process exits and respawns it
// unless shutdown has begun or the restart window is exhausted.
func (s *Supervisor) watch(cmd *exec.Cmd, exitCh chan struct{}) {
	<-exitCh

	s.mu.Lock()
	if s.cmd != cmd {
		s.mu.Unlock()
		return
	}
	pid := s.pid
	s.cmd = nil
	s.pid = 0
	s.port = 0
	if s.exitWait != nil {
		close(s.exitWait)
		s.exitWait = nil
	}
	if s.shuttingDown {
		s.mu.Unlock()
		s.logger.Info("engine stopped",
			logging.String(logging.FieldEventType, "engine_stopped"),
			logging.Int(logging.FieldEnginePID, pid))
		return
	}

	now := time.Now()
	window := time.Duration(s.cfg.Engine.RestartWindowSeconds) * time.Second
	recent := s.restarts[:0]
	for _, ts := range s.restarts {
		if now.Sub(ts) < window {
			recent = append(recent, ts)
		}
	}
	s.restarts = recent
	if len(s.restarts) >= s.cfg.Engine.RestartWindowMax {
		s.mu.Unlock()
		s.logger.Error("engine exited; respawn suppressed",
			logging.String(logging.FieldEventType, "engine_respawn_suppressed"),
			logging.Int(logging.FieldEnginePID, pid),
			logging.Int("recent_restarts", s.cfg.Engine.RestartWindowMax),
			logging.String(logging.FieldErrorHint, "the engine is crash-looping; check its stderr in the logs"))
		return
	}
	s.restarts = append(s.restarts, now)
	att := &launchAttempt{done: make(chan struct{})}
	s.pending = att
	s.mu.Unlock()

	s.logger.Warn("engine exited unexpectedly; respawning",
		logging.String(logging.FieldEventType, "engine_respawn"),
		logging.Int(logging.FieldEnginePID, pid))
	go s.runLaunch(att)
}

// relayStderr forwards worker stderr to the diagnostic log unmodified and
// retains a bounded tail for handshake-failure errors.
func (s *Supervisor) relayStderr(r io.Reader, tail *tailBuffer) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		tail.Append(line)
		s.logger.Debug(line, logging.String("stream", "engine-stderr"))
	}
}

func scanHandshake(r io.Reader, readyCh chan<- int) {
	decoder := jsonline.NewDecoder(r)
	announced := false
	_ = decoder.Each(func(payload json.RawMessage) bool {
		if announced {
			// Keep draining so the pipe never blocks the worker.
			return true
		}
		var line struct {
			Type string          `json:"type"`
			Port json.RawMessage `json:"port"`
		}
		if err := json.Unmarshal(payload, &line); err != nil {
			return true
		}
		if line.Type != "ready" {
			return true
		}
		port, ok := parsePort(line.Port)
		if !ok {
			return true
		}
		announced = true
		readyCh <- port
		return true
	})
}

func parsePort(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	value, err := strconv.Atoi(string(raw))
	if err != nil || value <= 0 || value > 65535 {
		return 0, false
	}
	return value, true
}

// tailBuffer retains the last limit bytes of appended text.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	data  []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, line...)
	b.data = append(b.data, '\n')
	if over := len(b.data) - b.limit; over > 0 {
		b.data = b.data[over:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}
