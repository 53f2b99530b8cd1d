package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const pingInterval = 500 * time.Millisecond

// WaitForClient polls the instance at address until it answers a ping,
// then returns a ready client. It fails once timeout elapses or the
// context is cancelled, whichever comes first.
func WaitForClient(ctx context.Context, address, apiKey string, timeout time.Duration, doer HTTPDoer) (Client, error) {
	if doer == nil {
		doer = &http.Client{Timeout: pingInterval * 4}
	}
	client := NewClient(address, apiKey, doer)
	deadline := time.Now().Add(timeout)

	var lastErr error
	for {
		if err := client.Ping(ctx); err == nil {
			return client, nil
		} else {
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("wait for syncthing at %s: %w", address, ctx.Err())
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("syncthing at %s not reachable after %s: %w", address, timeout, lastErr)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for syncthing at %s: %w", address, ctx.Err())
		case <-time.After(pingInterval):
		}
	}
}
