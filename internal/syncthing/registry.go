package syncthing

import (
	"sort"
	"sync"
)

// Registry tracks the folders and devices of the supervised instance.
//
// Bulk replacement swaps both maps under the lock so readers see either the
// fully-old or fully-new view. Individual entities carry their own locks, so
// per-entity mutation never contends with lookups of unrelated keys. A lookup
// miss is an expected condition during startup race windows, never an error.
type Registry struct {
	mu      sync.RWMutex
	folders map[string]*Folder
	devices map[string]*Device
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		folders: make(map[string]*Folder),
		devices: make(map[string]*Device),
	}
}

// Replace swaps in a freshly loaded set of folders and devices. Nil maps are
// treated as empty.
func (r *Registry) Replace(folders map[string]*Folder, devices map[string]*Device) {
	if folders == nil {
		folders = make(map[string]*Folder)
	}
	if devices == nil {
		devices = make(map[string]*Device)
	}
	r.mu.Lock()
	r.folders = folders
	r.devices = devices
	r.mu.Unlock()
}

// Clear drops all tracked entities.
func (r *Registry) Clear() {
	r.Replace(nil, nil)
}

// Folder looks up a folder by id.
func (r *Registry) Folder(id string) (*Folder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.folders[id]
	return f, ok
}

// Device looks up a device by id.
func (r *Registry) Device(id string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// Folders returns a snapshot of all folders sorted by id.
func (r *Registry) Folders() []*Folder {
	r.mu.RLock()
	out := make([]*Folder, 0, len(r.folders))
	for _, f := range r.folders {
		out = append(out, f)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Devices returns a snapshot of all devices sorted by id.
func (r *Registry) Devices() []*Device {
	r.mu.RLock()
	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
