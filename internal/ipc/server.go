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

	"txrmwatch/internal/daemon"
	"txrmwatch/internal/logging"
	"txrmwatch/internal/logs"
	"txrmwatch/internal/registry"
)

// ServiceName is the JSON-RPC service prefix clients call.
const ServiceName = "Txrmwatch"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
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
	srv := &service{daemon: d, logger: logging.WithComponent(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logging.WithComponent(logger, "ipc"),
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve accepts RPC connections until the context is canceled.
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
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
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
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun txrmwatch stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("monitor start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "monitoring started"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("monitor stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.StartedAt = status.Monitor.StartedAt
	resp.LastScan = status.Monitor.LastScan
	resp.Tracked = status.Monitor.Tracked
	resp.PerState = make(map[string]int, len(status.Monitor.PerState))
	for state, count := range status.Monitor.PerState {
		resp.PerState[string(state)] = count
	}
	resp.Processing = status.Monitor.Processing
	resp.LastError = status.Monitor.LastError
	resp.LockPath = status.LockFilePath
	resp.Journal = status.JournalPath
	resp.PID = status.PID
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	wanted := make(map[registry.State]struct{}, len(req.States))
	for _, state := range req.States {
		wanted[registry.State(state)] = struct{}{}
	}
	for _, file := range s.daemon.List() {
		if len(wanted) > 0 {
			if _, ok := wanted[file.State]; !ok {
				continue
			}
		}
		resp.Files = append(resp.Files, TrackedFile{
			Path:       file.Path,
			State:      string(file.State),
			Size:       file.LastKnownSize,
			LastChange: file.LastChange,
			FirstSeen:  file.FirstSeen,
			LastError:  file.LastError,
		})
	}
	return nil
}

func (s *service) Process(req ProcessRequest, resp *ProcessResponse) error {
	if err := s.daemon.Process(req.Path); err != nil {
		resp.Queued = false
		resp.Message = err.Error()
		return nil
	}
	resp.Queued = true
	resp.Message = "processing queued"
	return nil
}

func (s *service) Scan(_ ScanRequest, resp *ScanResponse) error {
	if err := s.daemon.Scan(); err != nil {
		resp.Queued = false
		resp.Message = err.Error()
		return nil
	}
	resp.Queued = true
	resp.Message = "scan queued"
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	recent, err := s.daemon.Events(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	for _, event := range recent {
		resp.Events = append(resp.Events, Event{
			ID:        event.ID,
			Timestamp: event.Timestamp,
			Kind:      string(event.Kind),
			Path:      event.Path,
			Detail:    event.Detail,
		})
	}
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	result, err := logs.Tail(s.ctx, s.daemon.LogPath(), logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   time.Duration(req.WaitMillis) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	if err != nil {
		resp.Message = fmt.Sprintf("%s: %v", message, err)
	}
	return nil
}
