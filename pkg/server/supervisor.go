// Package server supervises an optional local Appium server process.
//
// At most one process runs per Supervisor. Start is idempotent while the
// process is alive; Stop is a no-op when nothing runs.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/config"
	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/driver/appium"
	"github.com/devicelab-dev/contacts-runner/pkg/logger"
)

// Defaults for readiness polling and shutdown.
const (
	DefaultPollInterval = 250 * time.Millisecond
	DefaultStopGrace    = 5 * time.Second
)

// Options configures the server process.
type Options struct {
	Binary         string
	Host           string
	Port           int
	BasePath       string
	StartupTimeout time.Duration
	ExtraArgs      []string
	Env            []string  // appended to the current environment
	Output         io.Writer // server stdout/stderr; defaults to the run log
	PollInterval   time.Duration
	StopGrace      time.Duration
}

// OptionsFromSettings derives process options from configuration.
func OptionsFromSettings(s *config.Settings) Options {
	return Options{
		Binary:         s.ServerBinary,
		Host:           s.ServerHost,
		Port:           s.ServerPort,
		BasePath:       s.ServerBasePath,
		StartupTimeout: s.StartupTimeout,
	}
}

type process struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error // valid once done is closed
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Supervisor owns the local server process.
type Supervisor struct {
	opts Options

	mu   sync.Mutex
	proc *process
}

// New creates a Supervisor. Nothing is started until Start.
func New(opts Options) *Supervisor {
	if opts.Binary == "" {
		opts.Binary = config.DefaultBinary
	}
	if opts.Host == "" {
		opts.Host = config.DefaultHost
	}
	if opts.Port == 0 {
		opts.Port = config.DefaultPort
	}
	if opts.BasePath == "" {
		opts.BasePath = config.DefaultBasePath
	}
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = config.DefaultStartupTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	return &Supervisor{opts: opts}
}

// URL returns the endpoint the supervised server listens on.
func (s *Supervisor) URL() string {
	return config.BuildServerURL(s.opts.Host, s.opts.Port, s.opts.BasePath)
}

// Running reports whether the process is alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil && !s.proc.exited()
}

// PID returns the process id, or 0 when nothing runs.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil || s.proc.exited() {
		return 0
	}
	return s.proc.cmd.Process.Pid
}

// Start launches the server and waits until it reports ready.
// Calling Start while the server is running is a no-op.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		if !s.proc.exited() {
			logger.Info("Appium server already running at %s (pid %d)", s.URL(), s.proc.cmd.Process.Pid)
			return nil
		}
		s.proc = nil
	}

	if IsPortInUse(s.opts.Host, s.opts.Port) {
		logger.Error("Appium server port %d is already in use", s.opts.Port)
		return core.ErrBackendStart.WithMessage(fmt.Sprintf("port %d is already in use", s.opts.Port))
	}

	args := []string{
		"--address", s.opts.Host,
		"--port", strconv.Itoa(s.opts.Port),
		"--base-path", s.opts.BasePath,
	}
	args = append(args, s.opts.ExtraArgs...)

	// Not bound to ctx: the server must outlive the startup call.
	cmd := exec.Command(s.opts.Binary, args...) //#nosec G204 -- binary comes from configuration
	out := s.opts.Output
	if out == nil {
		out = logger.GetWriter()
	}
	cmd.Stdout = out
	cmd.Stderr = out
	if len(s.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), s.opts.Env...)
	}

	logger.Info("Starting Appium server: %s %v", s.opts.Binary, args)
	if err := cmd.Start(); err != nil {
		return core.ErrBackendStart.
			WithMessage("cannot launch " + s.opts.Binary).
			WithCause(err)
	}

	proc := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		proc.err = cmd.Wait()
		close(proc.done)
	}()

	if err := s.waitReady(ctx, proc); err != nil {
		terminate(proc, s.opts.StopGrace)
		logger.Error("Appium server failed to start: %v", err)
		return err
	}

	s.proc = proc
	logger.Info("Appium server ready at %s (pid %d)", s.URL(), cmd.Process.Pid)
	return nil
}

func (s *Supervisor) waitReady(ctx context.Context, proc *process) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StartupTimeout)
	defer cancel()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	url := s.URL()
	for {
		probeCtx, probeCancel := context.WithTimeout(ctx, s.opts.PollInterval*4)
		st, err := Ready(probeCtx, url)
		probeCancel()
		if err == nil && st.Ready {
			return nil
		}

		select {
		case <-proc.done:
			return core.ErrBackendStart.
				WithMessage("appium server exited before reporting ready").
				WithCause(proc.err)
		case <-ctx.Done():
			return core.ErrBackendStart.
				WithMessage(fmt.Sprintf("appium server not ready within %s", s.opts.StartupTimeout)).
				WithCause(ctx.Err())
		case <-ticker.C:
		}
	}
}

// Stop terminates the server: SIGTERM first, kill after the grace period.
// It is a no-op when nothing runs.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil {
		return nil
	}
	proc := s.proc
	s.proc = nil

	if proc.exited() {
		return nil
	}
	logger.Info("Stopping Appium server (pid %d)", proc.cmd.Process.Pid)
	terminate(proc, s.opts.StopGrace)
	return nil
}

func terminate(proc *process, grace time.Duration) {
	if err := proc.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		_ = proc.cmd.Process.Kill()
	}
	select {
	case <-proc.done:
	case <-time.After(grace):
		_ = proc.cmd.Process.Kill()
		<-proc.done
	}
}

// Ready probes GET /status on url.
func Ready(ctx context.Context, url string) (*appium.ServerStatus, error) {
	return appium.NewClient(url).Status(ctx)
}

// IsPortInUse checks if a TCP port is already bound on host.
func IsPortInUse(host string, port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return true
	}
	ln.Close()
	return false
}
