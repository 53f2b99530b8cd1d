package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"seam/internal/api"
	"seam/internal/logging"
	"seam/internal/syncthing"
)

// ConnectionsHandler receives aggregate transfer statistics.
type ConnectionsHandler interface {
	TotalConnectionStatsChanged(stats syncthing.ConnectionStats)
}

// ConnectionsWatcher polls the connections endpoint on a fixed
// interval and reports totals plus derived per-second rates.
type ConnectionsWatcher struct {
	client   api.Client
	handler  ConnectionsHandler
	logger   *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
	done   chan struct{}

	prev   *syncthing.ConnectionStats
	prevAt time.Time
}

// NewConnectionsWatcher constructs a stopped watcher; call Start to
// begin polling.
func NewConnectionsWatcher(client api.Client, handler ConnectionsHandler, logger *slog.Logger, interval time.Duration) *ConnectionsWatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &ConnectionsWatcher{
		client:   client,
		handler:  handler,
		logger:   logging.NewComponentLogger(logger, "connections-watcher"),
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop. A watcher that was already closed or
// started stays as it is.
func (w *ConnectionsWatcher) Start(ctx context.Context) {
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
func (w *ConnectionsWatcher) Close() {
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

func (w *ConnectionsWatcher) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *ConnectionsWatcher) poll(ctx context.Context) {
	conns, err := w.client.FetchConnections(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("connections poll failed", logging.Error(err))
		}
		return
	}
	stats := w.deriveStats(conns, time.Now())
	w.handler.TotalConnectionStatsChanged(stats)
}

func (w *ConnectionsWatcher) deriveStats(conns *api.Connections, now time.Time) syncthing.ConnectionStats {
	stats := syncthing.ConnectionStats{
		InBytesTotal:  conns.Total.InBytesTotal,
		OutBytesTotal: conns.Total.OutBytesTotal,
		At:            now,
	}
	if w.prev != nil {
		elapsed := now.Sub(w.prevAt).Seconds()
		if elapsed > 0 {
			stats.InBytesPerSecond = float64(stats.InBytesTotal-w.prev.InBytesTotal) / elapsed
			stats.OutBytesPerSecond = float64(stats.OutBytesTotal-w.prev.OutBytesTotal) / elapsed
		}
	}
	w.prev = &stats
	w.prevAt = now
	return stats
}
