package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"seam/internal/api"
	"seam/internal/logging"
)

// EventHandler receives decoded syncthing events. Calls arrive from
// the watcher goroutine in poll order.
type EventHandler interface {
	FolderStateChanged(folderID, from, to string)
	ItemStarted(folderID, item string)
	ItemFinished(folderID, item string)
	DeviceConnected(deviceID, address string)
	DeviceDisconnected(deviceID string)
}

const eventRetryDelay = time.Second

// EventWatcher long-polls the event endpoint and dispatches decoded
// events to its handler until closed.
type EventWatcher struct {
	client      api.Client
	handler     EventHandler
	logger      *slog.Logger
	pollTimeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
	done   chan struct{}
}

// NewEventWatcher constructs a stopped watcher; call Start to begin
// polling.
func NewEventWatcher(client api.Client, handler EventHandler, logger *slog.Logger, pollTimeout time.Duration) *EventWatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if pollTimeout <= 0 {
		pollTimeout = 60 * time.Second
	}
	return &EventWatcher{
		client:      client,
		handler:     handler,
		logger:      logging.NewComponentLogger(logger, "event-watcher"),
		pollTimeout: pollTimeout,
		done:        make(chan struct{}),
	}
}

// Start launches the poll loop. A watcher that was already closed or
// started stays as it is.
func (w *EventWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.closed || w.cancel != nil {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()
	go w.loop(ctx)
}

// Close stops the poll loop and waits for it to exit. Safe to call
// more than once and safe to race with Start.
func (w *EventWatcher) Close() {
	w.mu.Lock()
	w.closed = true
	cancel := w.cancel
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-w.done
}

func (w *EventWatcher) loop(ctx context.Context) {
	defer close(w.done)

	var since int64
	for {
		events, err := w.client.FetchEvents(ctx, since, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Warn("event poll failed", logging.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(eventRetryDelay):
			}
			continue
		}
		for _, event := range events {
			if event.ID > since {
				since = event.ID
			}
			w.dispatch(event)
		}
	}
}

func (w *EventWatcher) dispatch(event api.Event) {
	switch event.Type {
	case "StateChanged":
		var data struct {
			Folder string `json:"folder"`
			From   string `json:"from"`
			To     string `json:"to"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil {
			w.logDecodeFailure(event, err)
			return
		}
		w.handler.FolderStateChanged(data.Folder, data.From, data.To)
	case "ItemStarted":
		var data struct {
			Folder string `json:"folder"`
			Item   string `json:"item"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil {
			w.logDecodeFailure(event, err)
			return
		}
		w.handler.ItemStarted(data.Folder, data.Item)
	case "ItemFinished":
		var data struct {
			Folder string `json:"folder"`
			Item   string `json:"item"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil {
			w.logDecodeFailure(event, err)
			return
		}
		w.handler.ItemFinished(data.Folder, data.Item)
	case "DeviceConnected":
		var data struct {
			ID      string `json:"id"`
			Address string `json:"addr"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil {
			w.logDecodeFailure(event, err)
			return
		}
		w.handler.DeviceConnected(data.ID, data.Address)
	case "DeviceDisconnected":
		var data struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil {
			w.logDecodeFailure(event, err)
			return
		}
		w.handler.DeviceDisconnected(data.ID)
	default:
		// Other event types are not consumed here.
	}
}

func (w *EventWatcher) logDecodeFailure(event api.Event, err error) {
	w.logger.Warn("discard undecodable event",
		logging.String(logging.FieldEventType, event.Type),
		logging.Error(err))
}
