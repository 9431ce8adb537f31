package engine

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"vvtest/pkg/logging"
)

// notifyReady signals READY=1 to systemd when the engine is invoked as a
// long-lived unit (e.g. a batch submitter daemon). It is a silent no-op
// outside a systemd unit (NOTIFY_SOCKET unset), matching daemon.SdNotify's
// own contract.
func notifyReady() {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Debug("Engine", "sd_notify READY failed: %s", err)
	} else if ok {
		logging.Debug("Engine", "sent sd_notify READY=1")
	}
}

// notifyStopping signals STOPPING=1 before a graceful shutdown begins.
func notifyStopping() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		logging.Debug("Engine", "sd_notify STOPPING failed: %s", err)
	}
}

// startWatchdog pings WATCHDOG=1 on the interval systemd's Watchdog=
// directive expects, stopping when done is closed. It is a no-op if the
// unit wasn't configured with a watchdog interval.
func startWatchdog(done <-chan struct{}) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}
