package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"seam/internal/api"
	"seam/internal/config"
	"seam/internal/logging"
	"seam/internal/process"
	"seam/internal/syncthing"
	"seam/internal/watcher"
)

// ProcessRunner abstracts the process package for tests.
type ProcessRunner interface {
	Configure(process.Settings)
	Start(ctx context.Context) error
	Kill()
	Running() bool
}

// Watcher is a background poller bound to one API client session.
type Watcher interface {
	Start(ctx context.Context)
	Close()
}

// ClientFactory produces a ready API client, blocking until the
// instance answers or the context ends.
type ClientFactory func(ctx context.Context, address, apiKey string, timeout time.Duration) (api.Client, error)

// WatcherFactory produces the watchers for one client session.
type WatcherFactory func(client api.Client, s *Supervisor) []Watcher

// Options overrides collaborators, primarily for tests. Zero-value
// fields keep the defaults.
type Options struct {
	Runner         ProcessRunner
	ClientFactory  ClientFactory
	WatcherFactory WatcherFactory
}

// Supervisor drives one syncthing instance through its lifecycle and
// publishes everything it observes on its hub.
type Supervisor struct {
	cfg    *config.Config
	logger *slog.Logger
	hub    *Hub

	runner         ProcessRunner
	clientFactory  ClientFactory
	watcherFactory WatcherFactory

	registry *syncthing.Registry

	mu            sync.Mutex
	state         State
	client        api.Client
	watchers      []Watcher
	startupCancel context.CancelFunc
	sessionID        string
	startedAt        time.Time
	version          string
	homeDir          string
	latestStats      syncthing.ConnectionStats
	lastConnectivity time.Time
}

// New constructs a supervisor in the Stopped state.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Supervisor{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "supervisor"),
		hub:      NewHub(),
		registry: syncthing.NewRegistry(),
		state:    Stopped,
	}
	s.runner = opts.Runner
	if s.runner == nil {
		s.runner = process.NewRunner(logger, s)
	}
	s.clientFactory = opts.ClientFactory
	if s.clientFactory == nil {
		s.clientFactory = func(ctx context.Context, address, apiKey string, timeout time.Duration) (api.Client, error) {
			return api.WaitForClient(ctx, address, apiKey, timeout, nil)
		}
	}
	s.watcherFactory = opts.WatcherFactory
	if s.watcherFactory == nil {
		s.watcherFactory = defaultWatchers
	}
	return s
}

func defaultWatchers(client api.Client, s *Supervisor) []Watcher {
	pollTimeout := time.Duration(s.cfg.Supervisor.EventPollTimeout) * time.Second
	pollInterval := time.Duration(s.cfg.Supervisor.ConnectionsPollInterval) * time.Second
	return []Watcher{
		watcher.NewEventWatcher(client, s, s.logger, pollTimeout),
		watcher.NewConnectionsWatcher(client, s, s.logger, pollInterval),
	}
}

// Events returns the hub carrying this supervisor's notifications.
func (s *Supervisor) Events() *Hub {
	return s.hub
}

// Registry exposes the folder and device registry.
func (s *Supervisor) Registry() *syncthing.Registry {
	return s.registry
}

// State reports the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session reports the current session ID and its start time. Both are
// zero until the startup snapshot has loaded.
func (s *Supervisor) Session() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID, s.startedAt
}

// DataLoaded reports whether a startup snapshot has completed.
func (s *Supervisor) DataLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID != ""
}

// Version reports the running instance's version string, empty before
// the first snapshot load.
func (s *Supervisor) Version() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// LatestStats reports the most recent aggregate transfer statistics.
func (s *Supervisor) LatestStats() syncthing.ConnectionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestStats
}

// LastConnectivity reports when a device last connected or
// disconnected, zero if no such event has been observed this session.
func (s *Supervisor) LastConnectivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastConnectivity
}

func (s *Supervisor) markConnectivity() {
	s.mu.Lock()
	s.lastConnectivity = time.Now()
	s.mu.Unlock()
}

// setState commits a lifecycle transition. Same-state calls are
// no-ops; transitions in the rejected table are refused. Committing a
// transition out of Running, or Starting to Stopped, tears down the
// client, watchers, and in-flight startup work. Returns the previous
// state.
func (s *Supervisor) setState(next State) State {
	s.mu.Lock()
	prev := s.state
	if prev == next {
		s.mu.Unlock()
		return prev
	}
	if _, rejected := rejectedTransitions[transition{prev, next}]; rejected {
		s.mu.Unlock()
		s.logger.Error("refusing lifecycle transition",
			logging.String("from", prev.String()),
			logging.String("to", next.String()))
		return prev
	}

	var (
		cancel   context.CancelFunc
		watchers []Watcher
	)
	if abortsResources(prev, next) {
		cancel = s.startupCancel
		watchers = s.watchers
		s.startupCancel = nil
		s.watchers = nil
		s.client = nil
	}
	s.state = next
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, w := range watchers {
		w.Close()
	}

	s.logger.Info("lifecycle transition",
		logging.String("from", prev.String()),
		logging.String(logging.FieldState, next.String()))
	s.hub.Publish(StateChanged{From: prev, To: next})
	return prev
}

// Start launches the syncthing process and begins connecting the API
// client. It fails when a process is already supervised.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Stopped {
		s.mu.Unlock()
		return fmt.Errorf("syncthing is %s, not stopped", s.state)
	}
	s.mu.Unlock()

	s.runner.Configure(s.processSettings())
	if err := s.runner.Start(ctx); err != nil {
		return err
	}
	s.setState(Starting)
	go func() {
		// startClient logs, kills, and publishes StartupFailed on error.
		_ = s.startClient()
	}()
	return nil
}

// Stop asks the running instance to shut down gracefully. It fails
// unless the supervisor is Running.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Running {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("syncthing is %s, not running", state)
	}
	client := s.client
	s.mu.Unlock()

	if err := client.Shutdown(ctx); err != nil {
		return fmt.Errorf("request shutdown: %w", err)
	}
	s.setState(Stopping)
	return nil
}

// Restart asks the running instance to restart itself. It reports
// false without error when the supervisor is not Running.
func (s *Supervisor) Restart(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return false, nil
	}
	client := s.client
	s.mu.Unlock()

	if err := client.Restart(ctx); err != nil {
		return false, fmt.Errorf("request restart: %w", err)
	}
	return true, nil
}

// Kill terminates the process immediately and commits Stopped.
func (s *Supervisor) Kill() {
	s.runner.Kill()
	s.setState(Stopped)
}

// KillAll kills the supervised process and every other process on the
// host running the same executable, returning how many others were
// terminated. Clears out orphans from a previous supervisor that would
// otherwise hold the GUI port.
func (s *Supervisor) KillAll() (int, error) {
	s.Kill()
	return process.KillAllInstances(s.cfg.Syncthing.ExecutablePath)
}

// Scan asks syncthing to rescan a folder, optionally narrowed to a
// sub path.
func (s *Supervisor) Scan(ctx context.Context, folderID, subPath string) error {
	client, err := s.runningClient()
	if err != nil {
		return err
	}
	return client.Scan(ctx, folderID, subPath)
}

// ReloadIgnores refetches ignore patterns for one folder.
func (s *Supervisor) ReloadIgnores(ctx context.Context, folderID string) error {
	client, err := s.runningClient()
	if err != nil {
		return err
	}
	folder, ok := s.registry.Folder(folderID)
	if !ok {
		return fmt.Errorf("unknown folder %q", folderID)
	}
	ignores, err := client.FetchIgnores(ctx, folderID)
	if err != nil {
		return fmt.Errorf("fetch ignores for %s: %w", folderID, err)
	}
	folder.SetIgnores(syncthing.IgnorePatterns{Lines: ignores.Lines, Patterns: ignores.Patterns})
	return nil
}

func (s *Supervisor) runningClient() (api.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running || s.client == nil {
		return nil, fmt.Errorf("syncthing is %s, not running", s.state)
	}
	return s.client, nil
}

func (s *Supervisor) processSettings() process.Settings {
	st := s.cfg.Syncthing
	return process.Settings{
		ExecutablePath: st.ExecutablePath,
		Address:        st.Address,
		APIKey:         st.APIKey,
		HomeDir:        st.HomeDir,
		Environment:    st.Environment,
		DenyUpgrade:    st.DenyUpgrade,
		LowPriority:    st.LowPriority,
		HideDeviceIDs:  st.HideDeviceIDs,
	}
}

// startClient waits for the REST API, commits Running, loads the
// startup snapshot, and attaches the watchers. A cancellation from an
// aborting transition is swallowed; any other failure kills the
// process, publishes StartupFailed, and is returned.
func (s *Supervisor) startClient() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.state == Stopped || s.state == Stopping {
		// Torn down before the connect attempt began.
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.startupCancel = cancel
	s.mu.Unlock()

	err := s.connectAndLoad(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	s.logger.Error("connect to syncthing", logging.Error(err))
	s.Kill()
	s.hub.Publish(StartupFailed{Err: err})
	return err
}

func (s *Supervisor) connectAndLoad(ctx context.Context) error {
	st := s.cfg.Syncthing
	client, err := s.clientFactory(ctx, st.Address, st.APIKey, s.cfg.ConnectTimeout())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	s.setState(Running)

	s.mu.Lock()
	if s.state != Running {
		// The Running commit was refused (stale ready after an abort);
		// drop the client so the field does not outlive the attempt.
		s.client = nil
		s.mu.Unlock()
		return ctx.Err()
	}
	s.mu.Unlock()

	if err := s.loadStartupData(ctx, client); err != nil {
		return err
	}

	watchers := s.watcherFactory(client, s)
	s.mu.Lock()
	if s.state != Running {
		// Torn down while loading; do not attach watchers.
		s.mu.Unlock()
		return ctx.Err()
	}
	s.watchers = watchers
	sessionID := uuid.NewString()
	s.sessionID = sessionID
	s.startedAt = time.Now()
	s.mu.Unlock()

	for _, w := range watchers {
		w.Start(ctx)
	}

	s.logger.Info("startup data loaded", logging.String(logging.FieldSession, sessionID))
	s.hub.Publish(DataLoaded{SessionID: sessionID})
	return nil
}

// loadStartupData fetches the configuration, system status, version,
// and connection snapshot in parallel, then the ignore patterns for
// every folder, and swaps the result into the registry.
func (s *Supervisor) loadStartupData(ctx context.Context, client api.Client) error {
	var (
		wg      sync.WaitGroup
		cfg     *api.Config
		status  *api.SystemStatus
		version *api.Version
		conns   *api.Connections
		errs    [4]error
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		cfg, errs[0] = client.FetchConfig(ctx)
	}()
	go func() {
		defer wg.Done()
		status, errs[1] = client.FetchSystemStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		version, errs[2] = client.FetchVersion(ctx)
	}()
	go func() {
		defer wg.Done()
		conns, errs[3] = client.FetchConnections(ctx)
	}()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("load startup data: %w", err)
		}
	}

	folders := make(map[string]*syncthing.Folder, len(cfg.Folders))
	for _, f := range cfg.Folders {
		path := syncthing.ResolveFolderPath(f.Path, status.Tilde)
		folders[f.ID] = syncthing.NewFolder(f.ID, f.Label, path)
	}
	devices := make(map[string]*syncthing.Device, len(cfg.Devices))
	for _, d := range cfg.Devices {
		device := syncthing.NewDevice(d.DeviceID, d.Name)
		if info, ok := conns.Connections[d.DeviceID]; ok && info.Connected {
			device.SetConnected(info.Address)
		}
		devices[d.DeviceID] = device
	}

	var (
		ignoresWG  sync.WaitGroup
		ignoresMu  sync.Mutex
		ignoresErr error
	)
	for id, folder := range folders {
		ignoresWG.Add(1)
		go func(id string, folder *syncthing.Folder) {
			defer ignoresWG.Done()
			ignores, err := client.FetchIgnores(ctx, id)
			if err != nil {
				ignoresMu.Lock()
				if ignoresErr == nil {
					ignoresErr = fmt.Errorf("fetch ignores for %s: %w", id, err)
				}
				ignoresMu.Unlock()
				return
			}
			folder.SetIgnores(syncthing.IgnorePatterns{Lines: ignores.Lines, Patterns: ignores.Patterns})
		}(id, folder)
	}
	ignoresWG.Wait()
	if ignoresErr != nil {
		return ignoresErr
	}

	s.registry.Replace(folders, devices)

	s.mu.Lock()
	s.version = version.Version
	s.homeDir = status.Tilde
	s.latestStats = syncthing.ConnectionStats{
		InBytesTotal:  conns.Total.InBytesTotal,
		OutBytesTotal: conns.Total.OutBytesTotal,
		At:            time.Now(),
	}
	s.mu.Unlock()
	return nil
}

var _ process.Events = (*Supervisor)(nil)
var _ watcher.EventHandler = (*Supervisor)(nil)
var _ watcher.ConnectionsHandler = (*Supervisor)(nil)
