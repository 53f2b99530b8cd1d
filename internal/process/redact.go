package process

import "regexp"

// Device IDs are 56 base32 characters grouped into eight dash-joined
// blocks of seven, e.g. AAAAAAA-BBBBBBB-...
var deviceIDPattern = regexp.MustCompile(`\b(?:[A-Z2-7]{7}-){7}[A-Z2-7]{7}\b`)

const redactedDeviceID = "[device-id-hidden]"

// RedactDeviceIDs replaces every syncthing device ID in line with a
// placeholder so log output can be shared without leaking them.
func RedactDeviceIDs(line string) string {
	return deviceIDPattern.ReplaceAllString(line, redactedDeviceID)
}
