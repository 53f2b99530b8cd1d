// Package syncthing holds the domain model the supervisor maintains: devices,
// folders, connection statistics, and the registry that tracks them.
//
// Devices and folders are created once per supervised session during the
// startup snapshot load and mutated in place afterward by notification
// handlers. The registry supports atomic wholesale replacement so a reload
// never exposes a half-built view.
package syncthing
