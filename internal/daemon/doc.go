// Package daemon ties the supervisor, journal, and notifier into a
// single lifecycle with flock-based locking to prevent multiple
// concurrent instances.
package daemon
