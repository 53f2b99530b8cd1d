package ipc_test

import (
	"context"
	"path/filepath"
	"testing"

	"seam/internal/config"
	"seam/internal/daemon"
	"seam/internal/ipc"
	"seam/internal/journal"
	"seam/internal/process"
	"seam/internal/supervisor"
)

type stubRunner struct{}

func (stubRunner) Configure(process.Settings)      {}
func (stubRunner) Start(ctx context.Context) error { return nil }
func (stubRunner) Kill()                           {}
func (stubRunner) Running() bool                   { return false }

type noopNotifier struct{}

func (noopNotifier) NotifyStarted(context.Context, string) error      { return nil }
func (noopNotifier) NotifyStopped(context.Context) error              { return nil }
func (noopNotifier) NotifyProcessFailed(context.Context, error) error { return nil }
func (noopNotifier) NotifyStartupFailed(context.Context, error) error { return nil }
func (noopNotifier) TestNotification(context.Context) error           { return nil }

func newTestServer(t *testing.T) (*ipc.Client, *journal.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Syncthing: config.Syncthing{
			ExecutablePath: "syncthing",
			Address:        "127.0.0.1:8384",
			APIKey:         "key",
			ConnectTimeout: 5,
		},
		Paths: config.Paths{StateDir: dir, LogDir: dir},
	}

	sup := supervisor.New(cfg, nil, supervisor.Options{Runner: stubRunner{}})
	store, err := journal.Open(filepath.Join(dir, "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	d, err := daemon.New(cfg, nil, sup, store, noopNotifier{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	socketPath := filepath.Join(dir, "seamd.sock")
	server, err := ipc.NewServer(context.Background(), socketPath, d, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := ipc.Dial(socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, store
}

func TestStatusOverSocket(t *testing.T) {
	client, _ := newTestServer(t)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != "stopped" {
		t.Fatalf("state = %q", status.State)
	}
	if status.PID == 0 {
		t.Fatal("pid missing")
	}
}

func TestStopWhileStoppedReportsMessage(t *testing.T) {
	client, _ := newTestServer(t)

	resp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if resp.Stopped {
		t.Fatal("stop succeeded while stopped")
	}
	if resp.Message == "" {
		t.Fatal("expected explanatory message")
	}
}

func TestRestartWhileStoppedReportsNotRunning(t *testing.T) {
	client, _ := newTestServer(t)

	resp, err := client.Restart()
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if resp.Restarted {
		t.Fatal("restart reported success while stopped")
	}
}

func TestScanRequiresFolderID(t *testing.T) {
	client, _ := newTestServer(t)

	if _, err := client.Scan("", ""); err == nil {
		t.Fatal("expected error for empty folder id")
	}
}

func TestHistoryOverSocket(t *testing.T) {
	client, store := newTestServer(t)

	if err := store.Append(context.Background(), "s1", journal.KindStateChanged, "stopped -> starting"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	resp, err := client.History(10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(resp.Entries))
	}
	if resp.Entries[0].Detail != "stopped -> starting" {
		t.Fatalf("unexpected detail %q", resp.Entries[0].Detail)
	}
}

func TestFoldersAndDevicesEmpty(t *testing.T) {
	client, _ := newTestServer(t)

	folders, err := client.Folders()
	if err != nil {
		t.Fatalf("Folders: %v", err)
	}
	if len(folders.Folders) != 0 {
		t.Fatalf("unexpected folders: %v", folders.Folders)
	}

	devices, err := client.Devices()
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices.Devices) != 0 {
		t.Fatalf("unexpected devices: %v", devices.Devices)
	}
}

func TestKillOverSocket(t *testing.T) {
	client, _ := newTestServer(t)

	resp, err := client.Kill(false)
	if err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if !resp.Killed {
		t.Fatal("kill not acknowledged")
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != "stopped" {
		t.Fatalf("state after kill = %q", status.State)
	}
}

func TestNotificationOverSocket(t *testing.T) {
	client, _ := newTestServer(t)

	resp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if !resp.Sent {
		t.Fatal("notification not sent")
	}
}
