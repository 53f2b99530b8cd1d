// Package api provides the REST client used to talk to a running
// syncthing instance: configuration and status snapshots, ignore
// patterns, long-polled events, and service commands.
package api
