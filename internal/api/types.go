package api

import (
	"encoding/json"
	"time"
)

// Config mirrors the subset of /rest/system/config that the supervisor
// consumes: folder and device declarations.
type Config struct {
	Version int            `json:"version"`
	Folders []ConfigFolder `json:"folders"`
	Devices []ConfigDevice `json:"devices"`
}

// ConfigFolder is a folder declaration from the syncthing configuration.
type ConfigFolder struct {
	ID      string               `json:"id"`
	Label   string               `json:"label"`
	Path    string               `json:"path"`
	Devices []ConfigFolderDevice `json:"devices"`
}

// ConfigFolderDevice names a device a folder is shared with.
type ConfigFolderDevice struct {
	DeviceID string `json:"deviceID"`
}

// ConfigDevice is a device declaration from the syncthing configuration.
type ConfigDevice struct {
	DeviceID  string   `json:"deviceID"`
	Name      string   `json:"name"`
	Addresses []string `json:"addresses"`
}

// SystemStatus mirrors /rest/system/status. Tilde reports the home
// directory the instance expands "~" to, which is what folder paths
// are resolved against.
type SystemStatus struct {
	MyID   string `json:"myID"`
	Tilde  string `json:"tilde"`
	Uptime int64  `json:"uptime"`
}

// Version mirrors /rest/system/version.
type Version struct {
	Version     string `json:"version"`
	LongVersion string `json:"longVersion"`
	OS          string `json:"os"`
	Arch        string `json:"arch"`
}

// Connections mirrors /rest/system/connections.
type Connections struct {
	Connections map[string]ConnectionInfo `json:"connections"`
	Total       ConnectionTotal           `json:"total"`
}

// ConnectionInfo describes one device connection.
type ConnectionInfo struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address"`
	Type      string `json:"type"`
}

// ConnectionTotal carries the aggregate transfer counters.
type ConnectionTotal struct {
	At            time.Time `json:"at"`
	InBytesTotal  int64     `json:"inBytesTotal"`
	OutBytesTotal int64     `json:"outBytesTotal"`
}

// Ignores mirrors /rest/db/ignores for one folder.
type Ignores struct {
	Lines    []string `json:"ignore"`
	Patterns []string `json:"expanded"`
}

// Event is one entry from the /rest/events long poll. Data is left
// undecoded; callers pick it apart per Type.
type Event struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data"`
}
