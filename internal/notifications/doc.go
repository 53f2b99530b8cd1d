// Package notifications delivers push notifications about supervisor
// events via ntfy. Without a configured topic every call is a no-op.
package notifications
