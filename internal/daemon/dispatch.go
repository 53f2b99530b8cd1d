package daemon

import (
	"fmt"

	"seam/internal/journal"
	"seam/internal/logging"
	"seam/internal/supervisor"
)

// dispatch consumes supervisor events until the subscription closes,
// recording them in the journal and forwarding the interesting ones to
// the notifier.
func (d *Daemon) dispatch(events <-chan supervisor.Event) {
	defer d.dispatchWG.Done()

	consoleLog := logging.NewComponentLogger(d.logger, "syncthing")
	for event := range events {
		switch e := event.(type) {
		case supervisor.StateChanged:
			d.record(journal.KindStateChanged, fmt.Sprintf("%s -> %s", e.From, e.To))
			if e.From == supervisor.Stopping && e.To == supervisor.Stopped {
				if err := d.notifier.NotifyStopped(d.notifyCtx); err != nil {
					d.logger.Warn("stopped notification failed", logging.Error(err))
				}
			}
		case supervisor.DataLoaded:
			d.record(journal.KindDataLoaded, e.SessionID)
			if err := d.notifier.NotifyStarted(d.notifyCtx, d.sup.Version()); err != nil {
				d.logger.Warn("started notification failed", logging.Error(err))
			}
		case supervisor.ProcessExited:
			detail := ""
			if e.Err != nil {
				detail = e.Err.Error()
			}
			d.record(journal.KindProcessExited, detail)
			if e.Err != nil {
				if err := d.notifier.NotifyProcessFailed(d.notifyCtx, e.Err); err != nil {
					d.logger.Warn("failure notification failed", logging.Error(err))
				}
			}
		case supervisor.StartupFailed:
			detail := ""
			if e.Err != nil {
				detail = e.Err.Error()
			}
			d.record(journal.KindStartupFailed, detail)
			if err := d.notifier.NotifyStartupFailed(d.notifyCtx, e.Err); err != nil {
				d.logger.Warn("startup failure notification failed", logging.Error(err))
			}
		case supervisor.DeviceConnected:
			d.record(journal.KindDeviceOnline, e.DeviceID+" "+e.Address)
		case supervisor.DeviceDisconnected:
			d.record(journal.KindDeviceOffline, e.DeviceID)
		case supervisor.MessageLogged:
			consoleLog.Debug(e.Line)
		}
	}
}

func (d *Daemon) record(kind, detail string) {
	session, _ := d.sup.Session()
	if err := d.store.Append(d.notifyCtx, session, kind, detail); err != nil {
		d.logger.Warn("journal append failed",
			logging.String("kind", kind),
			logging.Error(err))
	}
}
