package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"finbot/internal/domain"
)

func formatSubscriptionAlert(sub domain.Subscription, today time.Time) string {
	due := sub.NextDue.Format(domain.DateLayout)
	// Both sides at date precision in UTC (NextDue comes from storage that way).
	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	days := int(sub.NextDue.Sub(midnight).Hours() / 24)

	var when string
	switch {
	case days <= 0:
		when = "due <b>today</b>"
	case days == 1:
		when = "due <b>tomorrow</b>"
	default:
		when = fmt.Sprintf("due in <b>%d days</b>", days)
	}

	return fmt.Sprintf("🔔 <b>%s</b> — %s, %s (%s)",
		html.EscapeString(sub.Name), sub.Amount.String(), when, due)
}

func formatDailyReport(s domain.DaySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Daily summary — %s</b>\n", s.Date)

	if s.Movements == 0 {
		b.WriteString("\nNo movements recorded today.")
		return b.String()
	}

	for _, t := range s.Totals {
		fmt.Fprintf(&b, "\nIn: %s %s · Out: %s %s · Net: %s %s",
			t.Income.StringFixed(2), t.Currency,
			t.Expense.StringFixed(2), t.Currency,
			t.Net().StringFixed(2), t.Currency,
		)
	}

	if len(s.Categories) > 0 {
		b.WriteString("\n\n<b>Expenses by category</b>")
		for _, c := range s.Categories {
			fmt.Fprintf(&b, "\n• %s: %s", html.EscapeString(c.Category), c.Total.String())
		}
	}

	fmt.Fprintf(&b, "\n\n%d movement(s)", s.Movements)
	return b.String()
}
