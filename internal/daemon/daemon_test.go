package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"seam/internal/config"
	"seam/internal/journal"
	"seam/internal/process"
	"seam/internal/supervisor"
)

type stubRunner struct{}

func (stubRunner) Configure(process.Settings)        {}
func (stubRunner) Start(ctx context.Context) error   { return nil }
func (stubRunner) Kill()                             {}
func (stubRunner) Running() bool                     { return false }

type stubNotifier struct {
	mu            sync.Mutex
	started       int
	stopped       int
	failed        int
	startupFailed int
	tested        int
	testsErr      error
}

func (n *stubNotifier) NotifyStarted(ctx context.Context, version string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started++
	return nil
}

func (n *stubNotifier) NotifyStopped(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped++
	return nil
}

func (n *stubNotifier) NotifyProcessFailed(ctx context.Context, err error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed++
	return nil
}

func (n *stubNotifier) NotifyStartupFailed(ctx context.Context, err error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.startupFailed++
	return nil
}

func (n *stubNotifier) TestNotification(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tested++
	return n.testsErr
}

func testDaemonConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Syncthing: config.Syncthing{
			ExecutablePath: "syncthing",
			Address:        "127.0.0.1:8384",
			APIKey:         "key",
			ConnectTimeout: 5,
		},
		Paths: config.Paths{
			StateDir: dir,
			LogDir:   filepath.Join(dir, "logs"),
		},
		Supervisor: config.Supervisor{JournalRetentionDays: 30},
	}
}

func newTestDaemon(t *testing.T, cfg *config.Config, notifier *stubNotifier) (*Daemon, *supervisor.Supervisor, *journal.Store) {
	t.Helper()
	sup := supervisor.New(cfg, nil, supervisor.Options{Runner: stubRunner{}})
	store, err := journal.Open(filepath.Join(cfg.Paths.StateDir, "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	d, err := New(cfg, nil, sup, store, notifier)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, sup, store
}

func TestDaemonEnforcesSingleInstance(t *testing.T) {
	cfg := testDaemonConfig(t)
	first, _, _ := newTestDaemon(t, cfg, &stubNotifier{})
	second, _, _ := newTestDaemon(t, cfg, &stubNotifier{})

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("second daemon acquired the lock")
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonRecordsSupervisorEvents(t *testing.T) {
	cfg := testDaemonConfig(t)
	notifier := &stubNotifier{}
	d, sup, store := newTestDaemon(t, cfg, notifier)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sup.ProcessStopped(process.ExitError, errors.New("exit status 7"))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := store.Recent(context.Background(), 10)
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		if len(entries) > 0 && entries[0].Kind == journal.KindProcessExited {
			if entries[0].Detail != "exit status 7" {
				t.Fatalf("unexpected detail %q", entries[0].Detail)
			}
			notifier.mu.Lock()
			failed := notifier.failed
			notifier.mu.Unlock()
			if failed != 1 {
				t.Fatalf("failure notification sent %d times", failed)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("process exit never journaled")
}

func TestDaemonNotifiesStartupFailure(t *testing.T) {
	cfg := testDaemonConfig(t)
	notifier := &stubNotifier{}
	d, sup, store := newTestDaemon(t, cfg, notifier)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sup.Events().Publish(supervisor.StartupFailed{Err: errors.New("api never answered")})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := store.Recent(context.Background(), 10)
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		if len(entries) > 0 && entries[0].Kind == journal.KindStartupFailed {
			if entries[0].Detail != "api never answered" {
				t.Fatalf("unexpected detail %q", entries[0].Detail)
			}
			notifier.mu.Lock()
			failed := notifier.startupFailed
			notifier.mu.Unlock()
			if failed != 1 {
				t.Fatalf("startup failure notified %d times", failed)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("startup failure never journaled")
}

func TestDaemonNotifiesGracefulStop(t *testing.T) {
	cfg := testDaemonConfig(t)
	notifier := &stubNotifier{}
	d, sup, _ := newTestDaemon(t, cfg, notifier)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sup.Events().Publish(supervisor.StateChanged{From: supervisor.Stopping, To: supervisor.Stopped})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		notifier.mu.Lock()
		stopped := notifier.stopped
		notifier.mu.Unlock()
		if stopped == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("graceful stop never notified")
}

func TestDaemonStatus(t *testing.T) {
	cfg := testDaemonConfig(t)
	d, _, _ := newTestDaemon(t, cfg, &stubNotifier{})

	status := d.Status()
	if status.Running {
		t.Fatal("daemon reported running before start")
	}
	if status.State != "stopped" {
		t.Fatalf("state = %q", status.State)
	}
	if status.PID == 0 {
		t.Fatal("pid missing")
	}
	if status.JournalPath == "" || status.SocketPath == "" {
		t.Fatal("paths missing from status")
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("daemon not running after start")
	}
	d.Stop()
}

func TestDaemonTestNotification(t *testing.T) {
	cfg := testDaemonConfig(t)
	notifier := &stubNotifier{}
	d, _, _ := newTestDaemon(t, cfg, notifier)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil || !sent {
		t.Fatalf("TestNotification = %v %q %v", sent, message, err)
	}

	notifier.testsErr = errors.New("topic unreachable")
	sent, _, err = d.TestNotification(context.Background())
	if err == nil || sent {
		t.Fatal("expected failing test notification")
	}
}

func TestDaemonHistoryAndViews(t *testing.T) {
	cfg := testDaemonConfig(t)
	d, _, store := newTestDaemon(t, cfg, &stubNotifier{})

	if err := store.Append(context.Background(), "s1", journal.KindDataLoaded, ""); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := d.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	if got := d.Folders(); len(got) != 0 {
		t.Fatalf("expected empty folders, got %v", got)
	}
	if got := d.Devices(); len(got) != 0 {
		t.Fatalf("expected empty devices, got %v", got)
	}
}
