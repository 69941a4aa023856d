package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finbot/internal/transport"
)

var commandMenu = map[string]string{
	"/status":     "Scheduler status and recent ticks",
	"/alerts_now": "Run the subscription alert check now",
	"/report_now": "Send today's summary report now",
	"/help":       "List available commands",
}

func (a *App) registerCommands() {
	a.adapter.Handle("/status", commandMenu["/status"], a.cmdStatus)
	a.adapter.Handle("/alerts_now", commandMenu["/alerts_now"], a.cmdAlertsNow)
	a.adapter.Handle("/report_now", commandMenu["/report_now"], a.cmdReportNow)
	a.adapter.Handle("/help", commandMenu["/help"], a.cmdHelp)
}

func (a *App) cmdStatus(_ context.Context, _ transport.Message) (string, error) {
	snap := a.sched.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Scheduler</b>: %s\n", onOff(snap.Running))
	fmt.Fprintf(&b, "Interval: %s · Window: %s\n", snap.Interval, snap.Window)
	fmt.Fprintf(&b, "Alert time: %s (%s)\n", snap.AlertTime, zoneLabel(snap.Timezone))
	if snap.LastReportDate != "" {
		fmt.Fprintf(&b, "Last report: %s\n", snap.LastReportDate)
	} else {
		b.WriteString("Last report: not yet this run\n")
	}
	if !snap.LastTick.IsZero() {
		fmt.Fprintf(&b, "Last tick: %s\n", snap.LastTick.Format(time.RFC3339))
	}

	var alertRuns, failures int
	for _, t := range snap.History {
		if t.AlertRan {
			alertRuns++
		}
		if t.AlertErr != "" || t.ReportErr != "" {
			failures++
		}
	}
	fmt.Fprintf(&b, "Recent ticks: %d (alert checks: %d, failures: %d)", len(snap.History), alertRuns, failures)
	return b.String(), nil
}

func (a *App) cmdAlertsNow(ctx context.Context, _ transport.Message) (string, error) {
	if err := a.sched.TriggerAlerts(ctx); err != nil {
		return "", err
	}
	return "Subscription alert check completed.", nil
}

func (a *App) cmdReportNow(ctx context.Context, _ transport.Message) (string, error) {
	if err := a.notif.SendDailyReport(ctx); err != nil {
		return "", err
	}
	return "Daily report sent.", nil
}

func (a *App) cmdHelp(_ context.Context, _ transport.Message) (string, error) {
	var b strings.Builder
	b.WriteString("<b>Commands</b>\n")
	for _, name := range []string{"/status", "/alerts_now", "/report_now", "/help"} {
		fmt.Fprintf(&b, "%s — %s\n", name, commandMenu[name])
	}
	return b.String(), nil
}

func onOff(v bool) string {
	if v {
		return "running"
	}
	return "stopped"
}

func zoneLabel(tz string) string {
	if strings.TrimSpace(tz) == "" {
		return "local"
	}
	return tz
}
