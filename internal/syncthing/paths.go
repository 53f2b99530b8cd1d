package syncthing

import (
	"path/filepath"
	"strings"
)

// ResolveFolderPath resolves a folder path reported by the service against
// its reported home directory. A leading tilde is replaced with the home
// directory, any separator immediately after the tilde is stripped, and
// separators are normalized for the current platform.
func ResolveFolderPath(raw, home string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	normalized := strings.ReplaceAll(raw, "\\", "/")
	if strings.HasPrefix(normalized, "~") {
		rest := strings.TrimLeft(normalized[1:], "/")
		return filepath.Clean(filepath.Join(home, filepath.FromSlash(rest)))
	}
	return filepath.Clean(filepath.FromSlash(normalized))
}
