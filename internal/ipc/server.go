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

	"seam/internal/daemon"
	"seam/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain
// socket.
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
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Seam", srv); err != nil {
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

// Serve starts accepting RPC connections until the context is
// canceled.
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
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("syncthing start requested")
	if err := s.daemon.StartSyncthing(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "syncthing starting"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("syncthing stop requested")
	if err := s.daemon.StopSyncthing(s.ctx); err != nil {
		resp.Stopped = false
		resp.Message = err.Error()
		return nil
	}
	resp.Stopped = true
	resp.Message = "shutdown requested"
	return nil
}

func (s *service) Restart(_ RestartRequest, resp *RestartResponse) error {
	s.logger.Debug("syncthing restart requested")
	restarted, err := s.daemon.RestartSyncthing(s.ctx)
	if err != nil {
		return err
	}
	resp.Restarted = restarted
	if restarted {
		resp.Message = "restart requested"
	} else {
		resp.Message = "syncthing is not running"
	}
	return nil
}

func (s *service) Kill(req KillRequest, resp *KillResponse) error {
	s.logger.Debug("syncthing kill requested")
	if req.All {
		strays, err := s.daemon.KillAllSyncthing()
		if err != nil {
			return err
		}
		resp.Killed = true
		resp.Strays = strays
		return nil
	}
	s.daemon.KillSyncthing()
	resp.Killed = true
	return nil
}

func (s *service) Scan(req ScanRequest, resp *ScanResponse) error {
	if req.FolderID == "" {
		return errors.New("scan requires a folder id")
	}
	if err := s.daemon.Scan(s.ctx, req.FolderID, req.SubPath); err != nil {
		return err
	}
	resp.Requested = true
	return nil
}

func (s *service) ReloadIgnores(req ReloadIgnoresRequest, resp *ReloadIgnoresResponse) error {
	if req.FolderID == "" {
		return errors.New("reload ignores requires a folder id")
	}
	if err := s.daemon.ReloadIgnores(s.ctx, req.FolderID); err != nil {
		return err
	}
	resp.Reloaded = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.State = status.State
	resp.PID = status.PID
	resp.SessionID = status.SessionID
	resp.StartedAt = status.StartedAt
	resp.Version = status.Version
	resp.LockPath = status.LockPath
	resp.JournalPath = status.JournalPath
	resp.SocketPath = status.SocketPath
	resp.FolderCount = status.FolderCount
	resp.DeviceCount = status.DeviceCount
	resp.InBytesTotal = status.Stats.InBytesTotal
	resp.OutBytesTotal = status.Stats.OutBytesTotal
	resp.InBytesPerSecond = status.Stats.InBytesPerSecond
	resp.OutBytesPerSecond = status.Stats.OutBytesPerSecond
	resp.LastDeviceEvent = status.LastDevice
	return nil
}

func (s *service) Folders(_ FoldersRequest, resp *FoldersResponse) error {
	infos := s.daemon.Folders()
	resp.Folders = make([]Folder, 0, len(infos))
	for _, info := range infos {
		resp.Folders = append(resp.Folders, Folder{
			ID:           info.ID,
			Label:        info.Label,
			Path:         info.Path,
			State:        info.State,
			SyncingPaths: info.SyncingPaths,
			IgnoreLines:  info.IgnoreLines,
		})
	}
	return nil
}

func (s *service) Devices(_ DevicesRequest, resp *DevicesResponse) error {
	infos := s.daemon.Devices()
	resp.Devices = make([]Device, 0, len(infos))
	for _, info := range infos {
		resp.Devices = append(resp.Devices, Device{
			ID:        info.ID,
			Name:      info.Name,
			Connected: info.Connected,
			Address:   info.Address,
		})
	}
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	entries, err := s.daemon.History(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Entries = make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, HistoryEntry{
			ID:        entry.ID,
			At:        entry.At,
			SessionID: entry.SessionID,
			Kind:      entry.Kind,
			Detail:    entry.Detail,
		})
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
