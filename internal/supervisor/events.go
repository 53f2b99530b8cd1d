package supervisor

import (
	"sync"

	"seam/internal/syncthing"
)

// Event is a notification published by the supervisor. The concrete
// types below form a closed set.
type Event interface {
	isEvent()
}

// StateChanged reports a committed lifecycle transition.
type StateChanged struct {
	From State
	To   State
}

// DataLoaded reports that the startup snapshot finished loading and a
// new session began.
type DataLoaded struct {
	SessionID string
}

// MessageLogged carries one line of syncthing console output.
type MessageLogged struct {
	Line string
}

// FolderSyncStateChanged reports a folder moving between sync states.
type FolderSyncStateChanged struct {
	FolderID string
	From     syncthing.FolderState
	To       syncthing.FolderState
}

// ItemStateChanged reports a path starting or finishing a transfer.
type ItemStateChanged struct {
	FolderID string
	Path     string
	Finished bool
}

// DeviceConnected reports a known device coming online.
type DeviceConnected struct {
	DeviceID string
	Address  string
}

// DeviceDisconnected reports a known device going offline.
type DeviceDisconnected struct {
	DeviceID string
}

// TotalConnectionStatsChanged carries fresh aggregate transfer
// statistics.
type TotalConnectionStatsChanged struct {
	Stats syncthing.ConnectionStats
}

// ProcessExited reports the supervised process ending on an error
// exit. Clean exits and kills surface only as StateChanged.
type ProcessExited struct {
	Err error
}

// StartupFailed reports that connecting the API client or loading the
// startup snapshot failed for a reason other than cancellation. The
// process has already been killed when this publishes.
type StartupFailed struct {
	Err error
}

func (StateChanged) isEvent()                {}
func (DataLoaded) isEvent()                  {}
func (MessageLogged) isEvent()               {}
func (FolderSyncStateChanged) isEvent()      {}
func (ItemStateChanged) isEvent()            {}
func (DeviceConnected) isEvent()             {}
func (DeviceDisconnected) isEvent()          {}
func (TotalConnectionStatsChanged) isEvent() {}
func (ProcessExited) isEvent()               {}
func (StartupFailed) isEvent()               {}

// Hub fans events out to subscribers. Delivery is best effort: a
// subscriber whose buffer is full misses the event rather than
// blocking the publisher.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber with the given channel buffer and
// returns the receive channel plus a cancel function. Cancel closes
// the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber that has buffer
// space.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
