package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"seam/internal/api"
	"seam/internal/config"
	"seam/internal/process"
	"seam/internal/syncthing"
)

type fakeRunner struct {
	mu         sync.Mutex
	configured []process.Settings
	started    int
	killed     int
	running    bool
	startErr   error
}

func (r *fakeRunner) Configure(settings process.Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configured = append(r.configured, settings)
}

func (r *fakeRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.started++
	r.running = true
	return nil
}

func (r *fakeRunner) Kill() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.killed++
	r.running = false
}

func (r *fakeRunner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *fakeRunner) killCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.killed
}

type fakeClient struct {
	mu          sync.Mutex
	shutdowns   int
	restarts    int
	scans       []string
	configErr   error
	ignoresErr  error
	folderPath  string
	ignoreLines []string
}

func (c *fakeClient) FetchConfig(ctx context.Context) (*api.Config, error) {
	if c.configErr != nil {
		return nil, c.configErr
	}
	path := c.folderPath
	if path == "" {
		path = "~/sync"
	}
	return &api.Config{
		Folders: []api.ConfigFolder{{ID: "docs", Label: "Docs", Path: path}},
		Devices: []api.ConfigDevice{{DeviceID: "AAA", Name: "laptop"}},
	}, nil
}

func (c *fakeClient) FetchSystemStatus(ctx context.Context) (*api.SystemStatus, error) {
	return &api.SystemStatus{MyID: "SELF", Tilde: "/home/user"}, nil
}

func (c *fakeClient) FetchVersion(ctx context.Context) (*api.Version, error) {
	return &api.Version{Version: "v1.27.0"}, nil
}

func (c *fakeClient) FetchConnections(ctx context.Context) (*api.Connections, error) {
	return &api.Connections{
		Connections: map[string]api.ConnectionInfo{
			"AAA": {Connected: true, Address: "10.0.0.2:22000"},
		},
		Total: api.ConnectionTotal{InBytesTotal: 10, OutBytesTotal: 20},
	}, nil
}

func (c *fakeClient) FetchIgnores(ctx context.Context, folderID string) (*api.Ignores, error) {
	if c.ignoresErr != nil {
		return nil, c.ignoresErr
	}
	lines := c.ignoreLines
	if lines == nil {
		lines = []string{"*.tmp"}
	}
	return &api.Ignores{Lines: lines, Patterns: lines}, nil
}

func (c *fakeClient) FetchEvents(ctx context.Context, since int64, timeout time.Duration) ([]api.Event, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *fakeClient) Scan(ctx context.Context, folderID, subPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scans = append(c.scans, folderID+"/"+subPath)
	return nil
}

func (c *fakeClient) Restart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restarts++
	return nil
}

func (c *fakeClient) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdowns++
	return nil
}

func (c *fakeClient) Ping(ctx context.Context) error { return nil }

type fakeWatcher struct {
	mu      sync.Mutex
	started int
	closed  int
}

func (w *fakeWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.started++
}

func (w *fakeWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed++
}

func (w *fakeWatcher) closeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func testConfig() *config.Config {
	return &config.Config{
		Syncthing: config.Syncthing{
			ExecutablePath: "syncthing",
			Address:        "127.0.0.1:8384",
			APIKey:         "key",
			ConnectTimeout: 5,
		},
		Supervisor: config.Supervisor{
			EventPollTimeout:        60,
			ConnectionsPollInterval: 10,
		},
	}
}

type fixture struct {
	sup     *Supervisor
	runner  *fakeRunner
	client  *fakeClient
	watcher *fakeWatcher
	events  <-chan Event
	cancel  func()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	runner := &fakeRunner{}
	client := &fakeClient{}
	fw := &fakeWatcher{}
	sup := New(testConfig(), nil, Options{
		Runner: runner,
		ClientFactory: func(ctx context.Context, address, apiKey string, timeout time.Duration) (api.Client, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return client, nil
		},
		WatcherFactory: func(c api.Client, s *Supervisor) []Watcher {
			return []Watcher{fw}
		},
	})
	events, cancel := sup.Events().Subscribe(128)
	t.Cleanup(cancel)
	return &fixture{sup: sup, runner: runner, client: client, watcher: fw, events: events, cancel: cancel}
}

func (f *fixture) waitState(t *testing.T, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f.sup.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %s, still %s", want, f.sup.State())
}

func (f *fixture) waitEvent(t *testing.T, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-f.events:
			if match(event) {
				return event
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
			return nil
		}
	}
}

// startToRunning drives the supervisor through a full successful
// startup: process launch, client connect, snapshot load.
func (f *fixture) startToRunning(t *testing.T) {
	t.Helper()
	if err := f.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.sup.ProcessStarting()
	f.waitState(t, Running)
	f.waitEvent(t, func(e Event) bool {
		_, ok := e.(DataLoaded)
		return ok
	})
}

func TestStartupReachesRunningAndLoadsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	folder, ok := f.sup.Registry().Folder("docs")
	if !ok {
		t.Fatal("folder missing from registry")
	}
	if got := folder.Path(); got != "/home/user/sync" {
		t.Fatalf("folder path = %q, want /home/user/sync", got)
	}
	if got := folder.Ignores().Lines; len(got) != 1 || got[0] != "*.tmp" {
		t.Fatalf("unexpected ignores: %v", got)
	}

	device, ok := f.sup.Registry().Device("AAA")
	if !ok {
		t.Fatal("device missing from registry")
	}
	if connected, addr := device.Connection(); !connected || addr != "10.0.0.2:22000" {
		t.Fatalf("device connection = %v %q", connected, addr)
	}

	if f.sup.Version() != "v1.27.0" {
		t.Fatalf("version = %q", f.sup.Version())
	}
	session, startedAt := f.sup.Session()
	if session == "" || startedAt.IsZero() {
		t.Fatal("session not established")
	}
	f.watcher.mu.Lock()
	defer f.watcher.mu.Unlock()
	if f.watcher.started != 1 {
		t.Fatalf("watcher started %d times", f.watcher.started)
	}
}

func TestSameStateTransitionIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.sup.setState(Stopped)
	select {
	case event := <-f.events:
		t.Fatalf("unexpected event %T for same-state transition", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStoppedToRunningIsRejected(t *testing.T) {
	f := newFixture(t)
	f.sup.setState(Running)
	if got := f.sup.State(); got != Stopped {
		t.Fatalf("state = %s after rejected transition", got)
	}
	select {
	case event := <-f.events:
		t.Fatalf("unexpected event %T for rejected transition", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLeavingRunningDisposesWatchersAndClient(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	f.sup.ProcessStopped(process.ExitNormal, nil)
	f.waitState(t, Stopped)
	if f.watcher.closeCount() != 1 {
		t.Fatalf("watcher closed %d times, want 1", f.watcher.closeCount())
	}
	if err := f.sup.Scan(context.Background(), "docs", ""); err == nil {
		t.Fatal("expected scan to fail after client disposal")
	}
}

func TestAbortedStartupIsSwallowed(t *testing.T) {
	started := make(chan context.Context, 1)
	runner := &fakeRunner{}
	sup := New(testConfig(), nil, Options{
		Runner: runner,
		ClientFactory: func(ctx context.Context, address, apiKey string, timeout time.Duration) (api.Client, error) {
			started <- ctx
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sup.ProcessStarting()
	ctx := <-started

	// Starting -> Stopped aborts the connect attempt.
	sup.setState(Stopped)
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("startup context never cancelled")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if runner.killCount() > 0 {
			t.Fatal("cancelled startup must not kill the process")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFailedStartupKillsProcess(t *testing.T) {
	runner := &fakeRunner{}
	sup := New(testConfig(), nil, Options{
		Runner: runner,
		ClientFactory: func(ctx context.Context, address, apiKey string, timeout time.Duration) (api.Client, error) {
			return nil, errors.New("api never answered")
		},
	})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sup.ProcessStarting()

	deadline := time.Now().Add(5 * time.Second)
	for runner.killCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if runner.killCount() == 0 {
		t.Fatal("failed startup never killed the process")
	}
	if got := sup.State(); got != Stopped {
		t.Fatalf("state after failed startup = %s", got)
	}
}

func TestStartupLoadFailureKillsProcess(t *testing.T) {
	runner := &fakeRunner{}
	client := &fakeClient{configErr: errors.New("config fetch failed")}
	sup := New(testConfig(), nil, Options{
		Runner: runner,
		ClientFactory: func(ctx context.Context, address, apiKey string, timeout time.Duration) (api.Client, error) {
			return client, nil
		},
		WatcherFactory: func(c api.Client, s *Supervisor) []Watcher { return nil },
	})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sup.ProcessStarting()

	deadline := time.Now().Add(5 * time.Second)
	for runner.killCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if runner.killCount() == 0 {
		t.Fatal("load failure never killed the process")
	}
}

func TestFailedStartupPublishesStartupFailed(t *testing.T) {
	runner := &fakeRunner{}
	connectErr := errors.New("api never answered")
	sup := New(testConfig(), nil, Options{
		Runner: runner,
		ClientFactory: func(ctx context.Context, address, apiKey string, timeout time.Duration) (api.Client, error) {
			return nil, connectErr
		},
	})
	events, cancel := sup.Events().Subscribe(128)
	defer cancel()

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sup.ProcessStarting()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-events:
			failed, ok := event.(StartupFailed)
			if !ok {
				continue
			}
			if !errors.Is(failed.Err, connectErr) {
				t.Fatalf("startup failure error = %v", failed.Err)
			}
			if got := sup.State(); got != Stopped {
				t.Fatalf("state after failed startup = %s", got)
			}
			return
		case <-deadline:
			t.Fatal("startup failure never published")
		}
	}
}

func TestCancelledStartupPublishesNoFailure(t *testing.T) {
	started := make(chan struct{}, 1)
	runner := &fakeRunner{}
	sup := New(testConfig(), nil, Options{
		Runner: runner,
		ClientFactory: func(ctx context.Context, address, apiKey string, timeout time.Duration) (api.Client, error) {
			started <- struct{}{}
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	events, cancel := sup.Events().Subscribe(128)
	defer cancel()

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sup.ProcessStarting()
	<-started
	sup.setState(Stopped)

	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case event := <-events:
			if _, ok := event.(StartupFailed); ok {
				t.Fatal("cancelled startup published a failure")
			}
		case <-deadline:
			return
		}
	}
}

func TestNormalExitPublishesNoExitEvent(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	f.sup.ProcessStopped(process.ExitNormal, nil)
	f.waitState(t, Stopped)

	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case event := <-f.events:
			if _, ok := event.(ProcessExited); ok {
				t.Fatal("clean stop published an exit event")
			}
		case <-deadline:
			return
		}
	}
}

func TestStaleReadyAfterStopLeavesNoClient(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	returned := make(chan struct{})
	runner := &fakeRunner{}
	client := &fakeClient{}
	sup := New(testConfig(), nil, Options{
		Runner: runner,
		ClientFactory: func(ctx context.Context, address, apiKey string, timeout time.Duration) (api.Client, error) {
			close(entered)
			<-release
			close(returned)
			return client, nil
		},
		WatcherFactory: func(c api.Client, s *Supervisor) []Watcher { return nil },
	})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sup.ProcessStarting()
	<-entered

	// The process dies while the factory is still connecting, then a
	// stale ready arrives.
	sup.ProcessStopped(process.ExitNormal, nil)
	close(release)
	<-returned

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sup.mu.Lock()
		stale := sup.client
		sup.mu.Unlock()
		if stale == nil && sup.State() == Stopped {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	sup.mu.Lock()
	defer sup.mu.Unlock()
	t.Fatalf("stale client retained: client=%v state=%s", sup.client, sup.state)
}

func TestDoubleAbortDisposesWatchersOnce(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	f.sup.setState(Stopping)
	f.sup.setState(Stopped)
	if got := f.sup.State(); got != Stopped {
		t.Fatalf("state = %s", got)
	}
	if f.watcher.closeCount() != 1 {
		t.Fatalf("watcher closed %d times, want 1", f.watcher.closeCount())
	}

	// A straggling kill after the aborts must not dispose again.
	f.sup.Kill()
	if f.watcher.closeCount() != 1 {
		t.Fatalf("watcher closed %d times after kill, want 1", f.watcher.closeCount())
	}
}

func TestStartWhileNotStoppedFails(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)
	if err := f.sup.Start(context.Background()); err == nil {
		t.Fatal("expected error starting while running")
	}
}

func TestStopRequestsShutdownAndCommitsStopping(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	if err := f.sup.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	f.client.mu.Lock()
	shutdowns := f.client.shutdowns
	f.client.mu.Unlock()
	if shutdowns != 1 {
		t.Fatalf("shutdown called %d times", shutdowns)
	}
	if got := f.sup.State(); got != Stopping {
		t.Fatalf("state = %s, want stopping", got)
	}

	// Process exit completes the shutdown.
	f.sup.ProcessStopped(process.ExitNormal, nil)
	f.waitState(t, Stopped)
}

func TestStopWhenNotRunningFails(t *testing.T) {
	f := newFixture(t)
	if err := f.sup.Stop(context.Background()); err == nil {
		t.Fatal("expected error stopping while stopped")
	}
}

func TestRestartReportsFalseWhenNotRunning(t *testing.T) {
	f := newFixture(t)
	restarted, err := f.sup.Restart(context.Background())
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if restarted {
		t.Fatal("restart reported true while stopped")
	}
}

func TestRestartCycleReconnects(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	restarted, err := f.sup.Restart(context.Background())
	if err != nil || !restarted {
		t.Fatalf("Restart = %v, %v", restarted, err)
	}

	// Syncthing exits with the restart code, then relaunches.
	f.sup.ProcessRestarted()
	f.waitState(t, Restarting)
	f.sup.ProcessStarting()
	f.waitState(t, Running)
	f.waitEvent(t, func(e Event) bool {
		_, ok := e.(DataLoaded)
		return ok
	})
}

func TestProcessExitPublishesEvent(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	exitErr := errors.New("exit status 7")
	f.sup.ProcessStopped(process.ExitError, exitErr)
	event := f.waitEvent(t, func(e Event) bool {
		_, ok := e.(ProcessExited)
		return ok
	})
	if !errors.Is(event.(ProcessExited).Err, exitErr) {
		t.Fatalf("unexpected exit error: %v", event.(ProcessExited).Err)
	}
	f.waitState(t, Stopped)
}

func TestKillCommitsStoppedImmediately(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	f.sup.Kill()
	if got := f.sup.State(); got != Stopped {
		t.Fatalf("state after kill = %s", got)
	}
	if f.runner.killCount() != 1 {
		t.Fatalf("runner killed %d times", f.runner.killCount())
	}
}

func TestKillAllStopsSupervisedProcess(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	f.sup.cfg.Syncthing.ExecutablePath = "seam-test-no-such-binary"
	strays, err := f.sup.KillAll()
	if err != nil {
		t.Fatalf("KillAll: %v", err)
	}
	if strays != 0 {
		t.Fatalf("expected no stray instances, got %d", strays)
	}
	if got := f.sup.State(); got != Stopped {
		t.Fatalf("state after kill all = %s", got)
	}
	if f.runner.killCount() != 1 {
		t.Fatalf("runner killed %d times", f.runner.killCount())
	}
}

func TestUnknownFolderEventsAreDropped(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	f.sup.FolderStateChanged("ghost", "idle", "syncing")
	f.sup.ItemStarted("ghost", "a.txt")
	f.sup.ItemFinished("ghost", "a.txt")

	select {
	case event := <-f.events:
		t.Fatalf("unexpected event %T for unknown folder", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnknownDeviceEventsAreDropped(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	f.sup.DeviceConnected("GHOST", "10.0.0.9:22000")
	f.sup.DeviceDisconnected("GHOST")

	select {
	case event := <-f.events:
		t.Fatalf("unexpected event %T for unknown device", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFolderStateEventUpdatesRegistry(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	f.sup.FolderStateChanged("docs", "idle", "syncing")
	event := f.waitEvent(t, func(e Event) bool {
		_, ok := e.(FolderSyncStateChanged)
		return ok
	}).(FolderSyncStateChanged)
	if event.To != syncthing.FolderSyncing {
		t.Fatalf("event to = %v", event.To)
	}

	folder, _ := f.sup.Registry().Folder("docs")
	if folder.State() != syncthing.FolderSyncing {
		t.Fatalf("folder state = %v", folder.State())
	}
}

func TestItemEventsTrackSyncingPaths(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	f.sup.ItemStarted("docs", "a.txt")
	folder, _ := f.sup.Registry().Folder("docs")
	if got := folder.SyncingPaths(); len(got) != 1 || got[0] != "a.txt" {
		t.Fatalf("syncing paths = %v", got)
	}

	f.sup.ItemFinished("docs", "a.txt")
	if got := folder.SyncingPaths(); len(got) != 0 {
		t.Fatalf("syncing paths after finish = %v", got)
	}

	event := f.waitEvent(t, func(e Event) bool {
		changed, ok := e.(ItemStateChanged)
		return ok && changed.Finished
	}).(ItemStateChanged)
	if event.Path != "a.txt" {
		t.Fatalf("event path = %q", event.Path)
	}
}

func TestDeviceEventsUpdateRegistry(t *testing.T) {
	f := newFixture(t)
	f.startToRunning(t)

	f.sup.DeviceDisconnected("AAA")
	device, _ := f.sup.Registry().Device("AAA")
	if connected, _ := device.Connection(); connected {
		t.Fatal("device still connected after disconnect event")
	}

	f.sup.DeviceConnected("AAA", "10.0.0.3:22000")
	if connected, addr := device.Connection(); !connected || addr != "10.0.0.3:22000" {
		t.Fatalf("device connection = %v %q", connected, addr)
	}
	if f.sup.LastConnectivity().IsZero() {
		t.Fatal("last connectivity timestamp not recorded")
	}
}

func TestConnectionStatsAreRecordedAndPublished(t *testing.T) {
	f := newFixture(t)
	stats := syncthing.ConnectionStats{InBytesTotal: 100, InBytesPerSecond: 5, At: time.Now()}
	f.sup.TotalConnectionStatsChanged(stats)

	if got := f.sup.LatestStats(); got.InBytesTotal != 100 {
		t.Fatalf("latest stats = %+v", got)
	}
	f.waitEvent(t, func(e Event) bool {
		_, ok := e.(TotalConnectionStatsChanged)
		return ok
	})
}

func TestLogLinesArePublished(t *testing.T) {
	f := newFixture(t)
	f.sup.LogLine("INFO: ready")
	event := f.waitEvent(t, func(e Event) bool {
		_, ok := e.(MessageLogged)
		return ok
	}).(MessageLogged)
	if event.Line != "INFO: ready" {
		t.Fatalf("line = %q", event.Line)
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Publish(MessageLogged{Line: "one"})
	hub.Publish(MessageLogged{Line: "two"})

	first := <-ch
	if first.(MessageLogged).Line != "one" {
		t.Fatalf("unexpected first event %v", first)
	}
	select {
	case event := <-ch:
		t.Fatalf("expected second event dropped, got %v", event)
	default:
	}
}

func TestParseState(t *testing.T) {
	for _, state := range []State{Stopped, Starting, Running, Stopping, Restarting} {
		parsed, ok := ParseState(state.String())
		if !ok || parsed != state {
			t.Fatalf("round trip failed for %s", state)
		}
	}
	if _, ok := ParseState("bogus"); ok {
		t.Fatal("parsed bogus state")
	}
}
