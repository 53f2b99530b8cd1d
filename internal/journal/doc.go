// Package journal persists supervisor events to SQLite so lifecycle
// history survives daemon restarts and can be queried from the CLI.
package journal
