package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"log/slog"

	"filmpress/internal/daemon"
	"filmpress/internal/logging"
	"filmpress/internal/services"
)

// Server answers control requests over a Unix domain socket.
type Server struct {
	path     string
	daemon   *daemon.Daemon
	logger   *slog.Logger
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer configures the control socket at the given path, replacing any
// stale socket file left by a previous run.
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

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:     path,
		daemon:   d,
		logger:   logging.NewComponentLogger(logger, "ipc"),
		listener: listener,
		ctx:      serverCtx,
		cancel:   cancel,
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Serve starts accepting connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("control socket listening", logging.String("socket", s.path))
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
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
					logging.String(logging.FieldImpact, "control clients cannot connect until accept recovers"))
				continue
			}
			s.track(conn)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.untrack(c)
				s.handleConn(c)
			}(conn)
		}
	}()
}

// Close stops the server, disconnects clients, and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the socket file by hand before the next start"),
			logging.String(logging.FieldImpact, "the next daemon start replaces the stale socket"))
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

// handleConn answers requests until the client disconnects.
func (s *Server) handleConn(conn net.Conn) {
	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)
	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("control connection closed", logging.Error(err))
			}
			return
		}
		resp := s.dispatch(req)
		if err := encoder.Encode(resp); err != nil {
			s.logger.Debug("control response write failed", logging.Error(err))
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{ID: req.ID}
	ctx := services.WithRequestID(s.ctx, req.ID)
	switch req.Op {
	case OpStatus:
		resp.Status = statusPayload(s.daemon.Status(ctx))
	case OpRun:
		resp.Run = s.handleRun()
	case OpStop:
		s.logger.Info("daemon stop requested",
			logging.String(logging.FieldEventType, "daemon_stop_requested"))
		s.daemon.RequestShutdown()
		resp.Stop = &StopPayload{Stopping: true}
	default:
		resp.Error = fmt.Sprintf("unknown operation %q", req.Op)
	}
	return resp
}

func (s *Server) handleRun() *RunPayload {
	s.logger.Debug("scan cycle requested")
	if err := s.daemon.RunNow(); err != nil {
		return &RunPayload{Message: err.Error()}
	}
	return &RunPayload{Triggered: true, Message: "scan cycle scheduled"}
}

func statusPayload(status daemon.Status) *StatusPayload {
	payload := &StatusPayload{
		Running:     status.Running,
		PID:         status.PID,
		StartedAt:   status.StartedAt,
		CycleActive: status.Workflow.CycleActive,
		LastError:   status.Workflow.LastError,
		Records: RecordCountsPayload{
			Total:       status.Workflow.Records.Total,
			Pending:     status.Workflow.Records.Pending,
			InProgress:  status.Workflow.Records.InProgress,
			Completed:   status.Workflow.Records.Completed,
			NotRequired: status.Workflow.Records.NotRequired,
			Failed:      status.Workflow.Records.Failed,
		},
		Hardware:     status.Hardware,
		DatabasePath: status.DatabasePath,
		LockPath:     status.LockPath,
	}
	if summary := status.Workflow.LastSummary; summary != nil {
		payload.LastRun = &RunSummaryPayload{
			RunID:          summary.RunID,
			StartedAt:      summary.StartedAt,
			FinishedAt:     summary.FinishedAt,
			Discovered:     summary.Discovered,
			Transcoded:     summary.Transcoded,
			NotRequired:    summary.NotRequired,
			AlreadyTracked: summary.AlreadyTracked,
			Failed:         summary.Failed,
		}
	}
	return payload
}
