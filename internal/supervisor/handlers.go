package supervisor

import (
	"seam/internal/logging"
	"seam/internal/process"
	"seam/internal/syncthing"
)

// ProcessStarting is invoked by the runner before each launch. A
// launch that follows a restart-requested exit reconnects the client
// automatically.
func (s *Supervisor) ProcessStarting() {
	s.runner.Configure(s.processSettings())
	prev := s.setState(Starting)
	if prev == Restarting {
		go func() {
			// startClient logs, kills, and publishes StartupFailed on error.
			_ = s.startClient()
		}()
	}
}

// ProcessStopped is invoked by the runner once the process has exited
// for good. Only error exits publish ProcessExited; clean stops and
// kills surface through the StateChanged transition alone.
func (s *Supervisor) ProcessStopped(kind process.ExitKind, err error) {
	s.setState(Stopped)
	if kind != process.ExitError {
		return
	}
	s.logger.Error("syncthing exited unexpectedly", logging.Error(err))
	s.hub.Publish(ProcessExited{Err: err})
}

// ProcessRestarted is invoked by the runner when syncthing exits
// asking to be relaunched.
func (s *Supervisor) ProcessRestarted() {
	s.setState(Restarting)
}

// LogLine is invoked by the runner for each line of console output.
func (s *Supervisor) LogLine(line string) {
	s.hub.Publish(MessageLogged{Line: line})
}

// FolderStateChanged applies a folder state event. Events for folders
// missing from the registry are dropped without logging; syncthing
// reports them for folders paused or added mid-session.
func (s *Supervisor) FolderStateChanged(folderID, from, to string) {
	folder, ok := s.registry.Folder(folderID)
	if !ok {
		return
	}
	next := syncthing.ParseFolderState(to)
	prev := folder.SetState(next)
	s.hub.Publish(FolderSyncStateChanged{FolderID: folderID, From: prev, To: next})
}

// ItemStarted marks a path as transferring.
func (s *Supervisor) ItemStarted(folderID, item string) {
	folder, ok := s.registry.Folder(folderID)
	if !ok {
		return
	}
	folder.AddSyncingPath(item)
	s.hub.Publish(ItemStateChanged{FolderID: folderID, Path: item})
}

// ItemFinished marks a path as done transferring.
func (s *Supervisor) ItemFinished(folderID, item string) {
	folder, ok := s.registry.Folder(folderID)
	if !ok {
		return
	}
	folder.RemoveSyncingPath(item)
	s.hub.Publish(ItemStateChanged{FolderID: folderID, Path: item, Finished: true})
}

// DeviceConnected applies a device connection event. Unknown devices
// are logged and dropped; they usually mean the configuration changed
// behind our back.
func (s *Supervisor) DeviceConnected(deviceID, address string) {
	device, ok := s.registry.Device(deviceID)
	if !ok {
		s.logger.Warn("event for unknown device",
			logging.String(logging.FieldEventType, "DeviceConnected"),
			logging.String(logging.FieldDevice, deviceID),
			logging.String(logging.FieldErrorHint, "device missing from loaded configuration"))
		return
	}
	device.SetConnected(address)
	s.markConnectivity()
	s.hub.Publish(DeviceConnected{DeviceID: deviceID, Address: address})
}

// DeviceDisconnected applies a device disconnection event.
func (s *Supervisor) DeviceDisconnected(deviceID string) {
	device, ok := s.registry.Device(deviceID)
	if !ok {
		s.logger.Warn("event for unknown device",
			logging.String(logging.FieldEventType, "DeviceDisconnected"),
			logging.String(logging.FieldDevice, deviceID),
			logging.String(logging.FieldErrorHint, "device missing from loaded configuration"))
		return
	}
	device.SetDisconnected()
	s.markConnectivity()
	s.hub.Publish(DeviceDisconnected{DeviceID: deviceID})
}

// TotalConnectionStatsChanged records fresh transfer statistics.
func (s *Supervisor) TotalConnectionStatsChanged(stats syncthing.ConnectionStats) {
	s.mu.Lock()
	s.latestStats = stats
	s.mu.Unlock()
	s.hub.Publish(TotalConnectionStatsChanged{Stats: stats})
}
