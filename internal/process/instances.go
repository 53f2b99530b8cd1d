package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// KillAllInstances terminates every process on the host whose command
// name matches the configured executable. Used before startup so a
// previously orphaned syncthing cannot hold the GUI port.
func KillAllInstances(executablePath string) (int, error) {
	name := filepath.Base(executablePath)
	if name == "" || name == "." {
		return 0, fmt.Errorf("invalid executable path %q", executablePath)
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("scan processes: %w", err)
	}

	self := os.Getpid()
	killed := 0
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}
		comm, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) != name {
			continue
		}
		if err := unix.Kill(pid, unix.SIGKILL); err != nil {
			continue
		}
		killed++
	}
	return killed, nil
}
