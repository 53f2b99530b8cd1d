package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"

	"seam/internal/logging"
)

var commandContext = exec.CommandContext

// Syncthing exits with this code when it wants its wrapper to relaunch
// it, for example after applying a configuration change that needs a
// restart. It only does so when launched with -no-restart.
const exitCodeRestartRequested = 3

// ExitKind classifies why a syncthing run ended.
type ExitKind int

const (
	// ExitNormal covers clean shutdown and kills we asked for.
	ExitNormal ExitKind = iota
	// ExitError covers unexpected exit codes and launch failures.
	ExitError
	// ExitRestart means syncthing asked to be relaunched.
	ExitRestart
)

func (k ExitKind) String() string {
	switch k {
	case ExitNormal:
		return "normal"
	case ExitError:
		return "error"
	case ExitRestart:
		return "restart"
	default:
		return "unknown"
	}
}

// Settings is the launch configuration snapshotted at each (re)start.
type Settings struct {
	ExecutablePath string
	Address        string
	APIKey         string
	HomeDir        string
	Environment    map[string]string
	DenyUpgrade    bool
	LowPriority    bool
	HideDeviceIDs  bool
}

// Events receives lifecycle callbacks from the runner. Callbacks are
// invoked from the runner's goroutine and must not block for long.
type Events interface {
	ProcessStarting()
	ProcessStopped(kind ExitKind, err error)
	ProcessRestarted()
	LogLine(line string)
}

// Runner owns one supervised syncthing process at a time. Start spawns
// the run loop; the loop relaunches on restart-requested exits and
// stops on everything else.
type Runner struct {
	logger *slog.Logger
	events Events

	mu            sync.Mutex
	settings      Settings
	cmd           *exec.Cmd
	cancel        context.CancelFunc
	running       bool
	killRequested bool
}

// NewRunner constructs a runner that reports to events.
func NewRunner(logger *slog.Logger, events Events) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		logger: logging.NewComponentLogger(logger, "process"),
		events: events,
	}
}

// Configure replaces the launch settings used by the next (re)start.
func (r *Runner) Configure(settings Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = settings
}

// Running reports whether a supervised process is currently alive.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start launches the run loop. It fails if a process is already
// running or no executable is configured.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("syncthing already running")
	}
	if r.settings.ExecutablePath == "" {
		r.mu.Unlock()
		return errors.New("syncthing executable not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.killRequested = false
	r.mu.Unlock()

	go r.run(runCtx)
	return nil
}

// Kill forcibly terminates the supervised process. The resulting exit
// is classified as normal. Kill is a no-op when nothing runs.
func (r *Runner) Kill() {
	r.mu.Lock()
	cmd := r.cmd
	cancel := r.cancel
	if r.running {
		r.killRequested = true
	}
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

func (r *Runner) run(ctx context.Context) {
	for {
		r.mu.Lock()
		settings := r.settings
		r.mu.Unlock()

		r.events.ProcessStarting()

		err := r.launchAndWait(ctx, settings)
		kind := r.classifyExit(err)

		if kind == ExitRestart && ctx.Err() == nil {
			r.logger.Info("syncthing requested restart")
			r.events.ProcessRestarted()
			continue
		}

		r.mu.Lock()
		r.running = false
		r.cmd = nil
		r.cancel = nil
		r.mu.Unlock()

		if kind == ExitNormal {
			err = nil
		}
		r.events.ProcessStopped(kind, err)
		return
	}
}

func (r *Runner) launchAndWait(ctx context.Context, settings Settings) error {
	cmd := commandContext(ctx, settings.ExecutablePath, buildArgs(settings)...) //nolint:gosec
	cmd.Env = buildEnv(settings)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start syncthing: %w", err)
	}

	r.mu.Lock()
	r.cmd = cmd
	r.mu.Unlock()

	r.logger.Info("syncthing started",
		logging.Int("pid", cmd.Process.Pid),
		logging.String("address", settings.Address))

	if settings.LowPriority {
		if err := lowerPriority(cmd.Process.Pid); err != nil {
			r.logger.Warn("lower process priority", logging.Error(err))
		}
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if settings.HideDeviceIDs {
			line = RedactDeviceIDs(line)
		}
		r.events.LogLine(line)
	}

	return cmd.Wait()
}

func (r *Runner) classifyExit(err error) ExitKind {
	r.mu.Lock()
	killed := r.killRequested
	r.mu.Unlock()

	if err == nil {
		return ExitNormal
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == exitCodeRestartRequested {
			return ExitRestart
		}
	}
	if killed {
		return ExitNormal
	}
	return ExitError
}

func buildArgs(settings Settings) []string {
	args := []string{
		"-no-browser",
		"-no-restart",
		"-gui-address=" + settings.Address,
	}
	if settings.HomeDir != "" {
		args = append(args, "-home="+settings.HomeDir)
	}
	return args
}

func buildEnv(settings Settings) []string {
	env := os.Environ()
	env = append(env, "STGUIAPIKEY="+settings.APIKey)
	if settings.DenyUpgrade {
		env = append(env, "STNOUPGRADE=1")
	}
	keys := make([]string, 0, len(settings.Environment))
	for key := range settings.Environment {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+settings.Environment[key])
	}
	return env
}
