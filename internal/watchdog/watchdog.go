// Package watchdog feeds the systemd watchdog while the exporter runs.
// Every operation is a no-op when the process is not supervised by
// systemd or WatchdogSec is unset, so callers never need to branch.
package watchdog

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Pinger sends periodic keepalive notifications to the systemd watchdog.
type Pinger struct {
	enabled  bool
	interval time.Duration
}

// NewPinger reads WATCHDOG_USEC from the environment. Pings are spaced at
// half the configured timeout to leave a safety margin.
func NewPinger() *Pinger {
	timeout, err := daemon.SdWatchdogEnabled(false)
	if err != nil || timeout == 0 {
		slog.Info("watchdog: systemd watchdog not enabled")
		return &Pinger{}
	}
	p := &Pinger{enabled: true, interval: timeout / 2}
	slog.Info("watchdog: enabled", "timeout", timeout, "ping_interval", p.interval)
	return p
}

// Enabled reports whether keepalives will actually be sent.
func (p *Pinger) Enabled() bool { return p.enabled }

// Start blocks sending keepalives until ctx is cancelled. Returns
// immediately when the watchdog is not enabled.
func (p *Pinger) Start(ctx context.Context) {
	if !p.enabled {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				slog.Error("watchdog: keepalive failed", "err", err)
			}
		}
	}
}

// NotifyReady tells systemd the service finished initializing. Required
// for Type=notify units; sent whenever the process runs under systemd,
// even with the watchdog itself disabled.
func NotifyReady() {
	if !UnderSystemd() {
		return
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		slog.Error("watchdog: ready notification failed", "err", err)
	}
}

// NotifyStopping tells systemd a clean shutdown has begun.
func NotifyStopping() {
	if !UnderSystemd() {
		return
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		slog.Error("watchdog: stopping notification failed", "err", err)
	}
}

// UnderSystemd reports whether the process appears to run as a systemd
// service unit.
func UnderSystemd() bool {
	return os.Getenv("NOTIFY_SOCKET") != "" || os.Getenv("INVOCATION_ID") != ""
}
