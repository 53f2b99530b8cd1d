package supervisor

// State is the lifecycle state of the supervised syncthing instance.
type State int

const (
	// Stopped means no process is running.
	Stopped State = iota
	// Starting means the process is launching or the client is still
	// waiting for the REST API to answer.
	Starting
	// Running means the API answered and the startup snapshot loaded.
	Running
	// Stopping means a graceful shutdown was requested and the
	// process has not exited yet.
	Stopping
	// Restarting means the process exited asking to be relaunched.
	Restarting
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Restarting:
		return "restarting"
	default:
		return "unknown"
	}
}

// ParseState maps a state name back to its value. Unrecognized names
// report false.
func ParseState(raw string) (State, bool) {
	switch raw {
	case "stopped":
		return Stopped, true
	case "starting":
		return Starting, true
	case "running":
		return Running, true
	case "stopping":
		return Stopping, true
	case "restarting":
		return Restarting, true
	default:
		return Stopped, false
	}
}

type transition struct {
	from, to State
}

// Transitions that indicate a sequencing bug in the caller: Running
// must always be reached through Starting.
var rejectedTransitions = map[transition]struct{}{
	{Stopped, Running}: {},
}

// abortsResources reports whether committing this transition must tear
// down the API client, watchers, and any in-flight startup work.
func abortsResources(from, to State) bool {
	if from == Running {
		return true
	}
	return from == Starting && to == Stopped
}
