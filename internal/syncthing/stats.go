package syncthing

import "time"

// ConnectionStats is a point-in-time aggregate of transfer totals and rates
// across all device connections. It is an immutable value replaced wholesale
// on each poll.
type ConnectionStats struct {
	InBytesTotal      int64
	OutBytesTotal     int64
	InBytesPerSecond  float64
	OutBytesPerSecond float64
	At                time.Time
}
