package notify

import (
	"context"
	"errors"
	"fmt"

	"finbot/internal/domain"
	logx "finbot/pkg/logx"
)

// CheckSubscriptionAlerts scans active subscriptions falling due within the
// configured horizon and sends one alert per subscription per calendar day.
// The persisted alert log makes this idempotent across overlapping ticks
// and process restarts; the alert-log row is written only after a
// successful send, so a delivery failure is retried on a later tick.
func (s *Service) CheckSubscriptionAlerts(ctx context.Context) error {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.AlertChatID == 0 {
		s.log.Debug("alert chat not configured; skipping subscription alerts")
		return nil
	}

	daysAhead := settings.AlertDaysAhead
	if daysAhead <= 0 {
		daysAhead = defaultDaysAhead
	}

	today := s.now()
	subs, err := s.store.DueSubscriptions(ctx, today, today.AddDate(0, 0, daysAhead))
	if err != nil {
		return fmt.Errorf("scan subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	day := today.Format(domain.DateLayout)
	var errs []error
	sent := 0
	for _, sub := range subs {
		key := fmt.Sprintf("sub:%d:%s", sub.ID, day)
		done, err := s.store.WasAlerted(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("alert log lookup %s: %w", key, err))
			continue
		}
		if done {
			continue
		}

		if err := s.send(ctx, settings.AlertChatID, formatSubscriptionAlert(sub, today)); err != nil {
			errs = append(errs, fmt.Errorf("send alert for %q: %w", sub.Name, err))
			continue
		}
		if err := s.store.MarkAlerted(ctx, key, s.now()); err != nil {
			// Message already went out; without the mark a later tick in
			// today's window may resend once.
			errs = append(errs, fmt.Errorf("mark alert %s: %w", key, err))
		}
		sent++
	}

	if sent > 0 {
		s.log.Info("subscription alerts sent", logx.Int("count", sent), logx.Int("due", len(subs)))
	}
	return errors.Join(errs...)
}
