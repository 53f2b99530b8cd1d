// Package watcher runs the background pollers attached to a live
// syncthing instance: the /rest/events long poll and the periodic
// connection statistics fetch.
package watcher
