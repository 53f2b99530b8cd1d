package process

import "golang.org/x/sys/unix"

// Niceness applied when low_priority is set; enough to keep syncthing
// from starving interactive work without stalling sync entirely.
const lowPriorityNice = 10

func lowerPriority(pid int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, pid, lowPriorityNice)
}
