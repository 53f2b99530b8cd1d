// Package supervisor owns the syncthing lifecycle state machine. It
// drives the process runner, connects the REST client once the
// instance answers, loads the startup snapshot into the registry,
// fans syncthing events into domain updates, and publishes every
// observable change on its event hub.
package supervisor
