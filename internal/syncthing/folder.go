package syncthing

import (
	"sort"
	"strings"
	"sync"
)

// FolderState mirrors the sync states the service reports per folder.
type FolderState string

const (
	FolderIdle     FolderState = "idle"
	FolderScanning FolderState = "scanning"
	FolderSyncing  FolderState = "syncing"
	FolderError    FolderState = "error"
	FolderUnknown  FolderState = "unknown"
)

// ParseFolderState maps a raw state string from the event feed onto the known
// set, defaulting to FolderUnknown.
func ParseFolderState(raw string) FolderState {
	switch FolderState(strings.ToLower(strings.TrimSpace(raw))) {
	case FolderIdle:
		return FolderIdle
	case FolderScanning:
		return FolderScanning
	case FolderSyncing:
		return FolderSyncing
	case FolderError:
		return FolderError
	default:
		return FolderUnknown
	}
}

// IgnorePatterns carries a folder's ignore rules: the literal lines from the
// ignore file plus the expanded pattern set the service derives from them.
type IgnorePatterns struct {
	Lines    []string
	Patterns []string
}

// Folder is a synchronized directory tracked by the service.
type Folder struct {
	id    string
	label string
	path  string

	mu      sync.Mutex
	state   FolderState
	ignores IgnorePatterns
	syncing map[string]struct{}
}

// NewFolder constructs an idle folder with no syncing items.
func NewFolder(id, label, path string) *Folder {
	return &Folder{
		id:      id,
		label:   label,
		path:    path,
		state:   FolderIdle,
		syncing: make(map[string]struct{}),
	}
}

// ID returns the folder identifier.
func (f *Folder) ID() string { return f.id }

// Label returns the configured display label, which may be empty.
func (f *Folder) Label() string { return f.label }

// Path returns the resolved on-disk location.
func (f *Folder) Path() string { return f.path }

// State returns the current sync state.
func (f *Folder) State() FolderState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetState records a new sync state and returns the previous one.
func (f *Folder) SetState(state FolderState) FolderState {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev := f.state
	f.state = state
	return prev
}

// SetIgnores replaces the stored ignore patterns.
func (f *Folder) SetIgnores(ignores IgnorePatterns) {
	f.mu.Lock()
	f.ignores = IgnorePatterns{
		Lines:    append([]string(nil), ignores.Lines...),
		Patterns: append([]string(nil), ignores.Patterns...),
	}
	f.mu.Unlock()
}

// Ignores returns a copy of the stored ignore patterns.
func (f *Folder) Ignores() IgnorePatterns {
	f.mu.Lock()
	defer f.mu.Unlock()
	return IgnorePatterns{
		Lines:    append([]string(nil), f.ignores.Lines...),
		Patterns: append([]string(nil), f.ignores.Patterns...),
	}
}

// AddSyncingPath records that an item sync started for the given relative path.
func (f *Folder) AddSyncingPath(path string) {
	f.mu.Lock()
	f.syncing[path] = struct{}{}
	f.mu.Unlock()
}

// RemoveSyncingPath records that an item sync finished. Unknown paths are
// ignored so a finish without an observed start stays a no-op.
func (f *Folder) RemoveSyncingPath(path string) {
	f.mu.Lock()
	delete(f.syncing, path)
	f.mu.Unlock()
}

// SyncingPaths returns a sorted snapshot of the in-flight relative paths.
func (f *Folder) SyncingPaths() []string {
	f.mu.Lock()
	paths := make([]string, 0, len(f.syncing))
	for p := range f.syncing {
		paths = append(paths, p)
	}
	f.mu.Unlock()
	sort.Strings(paths)
	return paths
}
