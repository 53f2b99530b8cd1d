package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"seam/internal/config"
	"seam/internal/journal"
	"seam/internal/logging"
	"seam/internal/notifications"
	"seam/internal/supervisor"
	"seam/internal/syncthing"
)

// Daemon coordinates the supervisor and its supporting services and
// enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	sup      *supervisor.Supervisor
	store    *journal.Store
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running     atomic.Bool
	cancelSub   func()
	dispatchWG  sync.WaitGroup
	notifyCtx   context.Context
	notifyStop  context.CancelFunc
	stopTimeout time.Duration
}

// Status represents daemon runtime information.
type Status struct {
	Running     bool
	State       string
	PID         int
	SessionID   string
	StartedAt   time.Time
	Version     string
	LockPath    string
	JournalPath string
	SocketPath  string
	FolderCount int
	DeviceCount int
	Stats       syncthing.ConnectionStats
	LastDevice  time.Time
}

// FolderInfo is the CLI-facing view of one folder.
type FolderInfo struct {
	ID           string
	Label        string
	Path         string
	State        string
	SyncingPaths []string
	IgnoreLines  []string
}

// DeviceInfo is the CLI-facing view of one device.
type DeviceInfo struct {
	ID        string
	Name      string
	Connected bool
	Address   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, sup *supervisor.Supervisor, store *journal.Store, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || sup == nil || store == nil {
		return nil, errors.New("daemon requires config, supervisor, and journal store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.StateDir, "seamd.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		sup:         sup,
		store:       store,
		notifier:    notifier,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
		stopTimeout: 15 * time.Second,
	}, nil
}

// Start acquires the daemon lock, begins event dispatch, and prunes
// the journal. It does not launch syncthing; use StartSyncthing.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another seam daemon instance is already running")
	}

	d.notifyCtx, d.notifyStop = context.WithCancel(context.Background())
	events, cancel := d.sup.Events().Subscribe(256)
	d.cancelSub = cancel
	d.dispatchWG.Add(1)
	go d.dispatch(events)

	retention := time.Duration(d.cfg.Supervisor.JournalRetentionDays) * 24 * time.Hour
	if removed, err := d.store.Prune(ctx, retention); err != nil {
		d.logger.Warn("journal prune failed", logging.Error(err))
	} else if removed > 0 {
		d.logger.Info("journal pruned", logging.Int64("removed", removed))
	}

	d.running.Store(true)
	d.logger.Info("seam daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts syncthing down, stops event dispatch, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.shutdownSyncthing()

	if d.cancelSub != nil {
		d.cancelSub()
		d.cancelSub = nil
	}
	d.dispatchWG.Wait()
	if d.notifyStop != nil {
		d.notifyStop()
		d.notifyStop = nil
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("seam daemon stopped")
}

// shutdownSyncthing attempts a graceful stop and falls back to a kill
// once the stop timeout passes.
func (d *Daemon) shutdownSyncthing() {
	switch d.sup.State() {
	case supervisor.Stopped:
		return
	case supervisor.Running:
		ctx, cancel := context.WithTimeout(context.Background(), d.stopTimeout)
		defer cancel()
		if err := d.sup.Stop(ctx); err != nil {
			d.logger.Warn("graceful stop failed", logging.Error(err))
			d.sup.Kill()
			return
		}
		deadline := time.Now().Add(d.stopTimeout)
		for time.Now().Before(deadline) {
			if d.sup.State() == supervisor.Stopped {
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
		d.logger.Warn("syncthing did not exit in time, killing")
		d.sup.Kill()
	default:
		d.sup.Kill()
	}
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether the daemon lifecycle is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// StartSyncthing launches the supervised process.
func (d *Daemon) StartSyncthing(ctx context.Context) error {
	return d.sup.Start(ctx)
}

// StopSyncthing requests a graceful shutdown of the running instance.
func (d *Daemon) StopSyncthing(ctx context.Context) error {
	return d.sup.Stop(ctx)
}

// RestartSyncthing asks the running instance to restart itself.
func (d *Daemon) RestartSyncthing(ctx context.Context) (bool, error) {
	return d.sup.Restart(ctx)
}

// KillSyncthing terminates the process immediately.
func (d *Daemon) KillSyncthing() {
	d.sup.Kill()
}

// KillAllSyncthing kills the supervised process plus any stray
// instances of the same executable, reporting how many strays died.
func (d *Daemon) KillAllSyncthing() (int, error) {
	return d.sup.KillAll()
}

// Scan asks syncthing to rescan a folder.
func (d *Daemon) Scan(ctx context.Context, folderID, subPath string) error {
	return d.sup.Scan(ctx, folderID, subPath)
}

// ReloadIgnores refetches ignore patterns for a folder.
func (d *Daemon) ReloadIgnores(ctx context.Context, folderID string) error {
	return d.sup.ReloadIgnores(ctx, folderID)
}

// TestNotification sends a test push notification.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, err.Error(), err
	}
	return true, "notification sent", nil
}

// Status reports combined daemon and supervisor status.
func (d *Daemon) Status() Status {
	session, startedAt := d.sup.Session()
	return Status{
		Running:     d.running.Load(),
		State:       d.sup.State().String(),
		PID:         os.Getpid(),
		SessionID:   session,
		StartedAt:   startedAt,
		Version:     d.sup.Version(),
		LockPath:    d.lockPath,
		JournalPath: d.cfg.JournalPath(),
		SocketPath:  d.cfg.SocketPath(),
		FolderCount: len(d.sup.Registry().Folders()),
		DeviceCount: len(d.sup.Registry().Devices()),
		Stats:       d.sup.LatestStats(),
		LastDevice:  d.sup.LastConnectivity(),
	}
}

// Folders reports the registry's folders.
func (d *Daemon) Folders() []FolderInfo {
	folders := d.sup.Registry().Folders()
	infos := make([]FolderInfo, 0, len(folders))
	for _, folder := range folders {
		infos = append(infos, FolderInfo{
			ID:           folder.ID(),
			Label:        folder.Label(),
			Path:         folder.Path(),
			State:        string(folder.State()),
			SyncingPaths: folder.SyncingPaths(),
			IgnoreLines:  folder.Ignores().Lines,
		})
	}
	return infos
}

// Devices reports the registry's devices.
func (d *Daemon) Devices() []DeviceInfo {
	devices := d.sup.Registry().Devices()
	infos := make([]DeviceInfo, 0, len(devices))
	for _, device := range devices {
		connected, address := device.Connection()
		infos = append(infos, DeviceInfo{
			ID:        device.ID(),
			Name:      device.Name(),
			Connected: connected,
			Address:   address,
		})
	}
	return infos
}

// History returns recent journal entries, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]journal.Entry, error) {
	return d.store.Recent(ctx, limit)
}
