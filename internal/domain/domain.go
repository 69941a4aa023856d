// Package domain holds the finance types shared by the notification
// service and the storage layer.
//
// Amounts are decimal (shopspring/decimal); never float. The CRM front end
// owns the full relational model; these are only the slices the alerting
// side reads.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date form used throughout the alerting
// subsystem (report guard, alert-log keys, due dates).
const DateLayout = "2006-01-02"

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

func (m Money) IsZero() bool { return m.Amount.IsZero() }

// String renders for Telegram messages, e.g. "12.50 EUR".
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

// Subscription is a recurring payment the operator wants to be reminded of
// before it falls due.
type Subscription struct {
	ID       int64
	Name     string
	Amount   Money
	NextDue  time.Time // date precision; time-of-day is ignored
	Active   bool
	Interval string // informational: "monthly", "yearly", ...
}

// MovementKind distinguishes money in from money out.
type MovementKind string

const (
	MovementIncome  MovementKind = "income"
	MovementExpense MovementKind = "expense"
)

// Movement is a single income or expense entry recorded by the CRM.
type Movement struct {
	ID         int64
	Kind       MovementKind
	Amount     Money
	Category   string
	Account    string
	OccurredOn time.Time
}

// Settings is the operator configuration the notification service fetches
// fresh on every invocation. The scheduler never caches any of it.
type Settings struct {
	AlertChatID    int64
	AlertDaysAhead int           // how far ahead a subscription counts as "due"
	ReportHour     int           // report target time, in ReportTimezone
	ReportMinute   int
	ReportWindow   time.Duration // tolerance window for the report send
	ReportTimezone string        // IANA zone name
	BaseCurrency   string
}

// CurrencyTotal is an aggregate for one currency within a day summary.
type CurrencyTotal struct {
	Currency string
	Income   decimal.Decimal
	Expense  decimal.Decimal
}

func (t CurrencyTotal) Net() decimal.Decimal { return t.Income.Sub(t.Expense) }

// CategoryTotal is an expense aggregate per category (single currency).
type CategoryTotal struct {
	Category string
	Total    Money
}

// DaySummary is the material of the daily report message.
type DaySummary struct {
	Date       string // YYYY-MM-DD
	Totals     []CurrencyTotal
	Categories []CategoryTotal
	Movements  int
}
