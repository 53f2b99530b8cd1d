package ipc

import "time"

// StartRequest launches the supervised syncthing process.
type StartRequest struct{}

// StartResponse indicates whether syncthing was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest gracefully stops the supervised process.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool   `json:"stopped"`
	Message string `json:"message"`
}

// RestartRequest asks the running instance to restart itself.
type RestartRequest struct{}

// RestartResponse indicates whether a restart was initiated.
type RestartResponse struct {
	Restarted bool   `json:"restarted"`
	Message   string `json:"message"`
}

// KillRequest terminates the supervised process immediately. All also
// kills any stray instances of the same executable.
type KillRequest struct {
	All bool `json:"all"`
}

// KillResponse indicates kill result.
type KillResponse struct {
	Killed bool `json:"killed"`
	Strays int  `json:"strays"`
}

// ScanRequest triggers a folder rescan.
type ScanRequest struct {
	FolderID string `json:"folder_id"`
	SubPath  string `json:"sub_path"`
}

// ScanResponse indicates scan request result.
type ScanResponse struct {
	Requested bool `json:"requested"`
}

// ReloadIgnoresRequest refetches ignore patterns for a folder.
type ReloadIgnoresRequest struct {
	FolderID string `json:"folder_id"`
}

// ReloadIgnoresResponse indicates reload result.
type ReloadIgnoresResponse struct {
	Reloaded bool `json:"reloaded"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/supervisor status.
type StatusResponse struct {
	Running           bool      `json:"running"`
	State             string    `json:"state"`
	PID               int       `json:"pid"`
	SessionID         string    `json:"session_id"`
	StartedAt         time.Time `json:"started_at"`
	Version           string    `json:"version"`
	LockPath          string    `json:"lock_path"`
	JournalPath       string    `json:"journal_path"`
	SocketPath        string    `json:"socket_path"`
	FolderCount       int       `json:"folder_count"`
	DeviceCount       int       `json:"device_count"`
	InBytesTotal      int64     `json:"in_bytes_total"`
	OutBytesTotal     int64     `json:"out_bytes_total"`
	InBytesPerSecond  float64   `json:"in_bytes_per_second"`
	OutBytesPerSecond float64   `json:"out_bytes_per_second"`
	LastDeviceEvent   time.Time `json:"last_device_event"`
}

// Folder is the wire representation of one folder.
type Folder struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Path         string   `json:"path"`
	State        string   `json:"state"`
	SyncingPaths []string `json:"syncing_paths"`
	IgnoreLines  []string `json:"ignore_lines"`
}

// FoldersRequest lists folders.
type FoldersRequest struct{}

// FoldersResponse contains folder entries.
type FoldersResponse struct {
	Folders []Folder `json:"folders"`
}

// Device is the wire representation of one device.
type Device struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Address   string `json:"address"`
}

// DevicesRequest lists devices.
type DevicesRequest struct{}

// DevicesResponse contains device entries.
type DevicesResponse struct {
	Devices []Device `json:"devices"`
}

// HistoryRequest fetches recent journal entries.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryEntry is one journaled event.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	At        time.Time `json:"at"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
}

// HistoryResponse contains journal entries, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
