package notify

import (
	"context"
	"fmt"
	"time"

	"finbot/internal/domain"
	logx "finbot/pkg/logx"
)

// CheckDailyReport re-derives the configured report window (this service
// owns the report-time configuration, not the scheduler) and, when the
// window is open, builds and sends the daily summary. It returns true only
// when a send occurred.
func (s *Service) CheckDailyReport(ctx context.Context) (bool, error) {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return false, fmt.Errorf("load settings: %w", err)
	}
	if settings.AlertChatID == 0 {
		return false, nil
	}

	loc, err := time.LoadLocation(settings.ReportTimezone)
	if err != nil {
		return false, fmt.Errorf("report timezone %q: %w", settings.ReportTimezone, err)
	}

	window := settings.ReportWindow
	if window <= 0 {
		window = defaultWindow
	}

	local := s.now().In(loc)
	minutes := local.Hour()*60 + local.Minute()
	target := settings.ReportHour*60 + settings.ReportMinute
	if minutes < target || minutes >= target+int(window/time.Minute) {
		return false, nil
	}

	if err := s.sendReportFor(ctx, settings.AlertChatID, local); err != nil {
		return false, err
	}
	return true, nil
}

// SendDailyReport builds and sends today's summary regardless of the
// window. Backs the /report_now command.
func (s *Service) SendDailyReport(ctx context.Context) error {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.AlertChatID == 0 {
		return fmt.Errorf("alert chat not configured")
	}
	loc, err := time.LoadLocation(settings.ReportTimezone)
	if err != nil {
		return fmt.Errorf("report timezone %q: %w", settings.ReportTimezone, err)
	}
	return s.sendReportFor(ctx, settings.AlertChatID, s.now().In(loc))
}

func (s *Service) sendReportFor(ctx context.Context, chatID int64, local time.Time) error {
	day := local.Format(domain.DateLayout)
	movements, err := s.store.MovementsOn(ctx, day)
	if err != nil {
		return fmt.Errorf("load movements for %s: %w", day, err)
	}
	summary := BuildDaySummary(day, movements)
	if err := s.send(ctx, chatID, formatDailyReport(summary)); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	s.log.Info("daily report delivered", logx.String("date", day), logx.Int("movements", summary.Movements))
	return nil
}
