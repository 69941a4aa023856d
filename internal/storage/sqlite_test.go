package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finbot/internal/domain"
	logx "finbot/pkg/logx"
)

func openTestStore(t *testing.T) *sqliteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "finbot.db")
	st, err := Open(Config{Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st.(*sqliteStore)
}

func TestSettingsMissingRow(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)

	_, err := st.Settings(context.Background())
	if !errors.Is(err, ErrNoSettings) {
		t.Fatalf("err = %v, want ErrNoSettings", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx,
		`INSERT INTO settings(id, alert_chat_id, alert_days_ahead, report_hour,
		                      report_minute, report_window_min, report_timezone, base_currency)
		 VALUES(1, 42, 5, 21, 30, 45, 'Europe/Rome', 'EUR')`)
	if err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	got, err := st.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	want := domain.Settings{
		AlertChatID:    42,
		AlertDaysAhead: 5,
		ReportHour:     21,
		ReportMinute:   30,
		ReportWindow:   45 * time.Minute,
		ReportTimezone: "Europe/Rome",
		BaseCurrency:   "EUR",
	}
	if got != want {
		t.Fatalf("Settings = %+v, want %+v", got, want)
	}
}

func TestDueSubscriptionsRange(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	seed := []struct {
		name   string
		due    string
		active int
	}{
		{"before horizon", "2026-03-09", 1},
		{"today", "2026-03-10", 1},
		{"inside", "2026-03-12", 1},
		{"horizon edge", "2026-03-13", 1},
		{"past horizon", "2026-03-14", 1},
		{"inactive", "2026-03-11", 0},
	}
	for _, s := range seed {
		_, err := st.db.ExecContext(ctx,
			`INSERT INTO subscriptions(name, amount, currency, next_due, active, interval)
			 VALUES(?, '9.99', 'EUR', ?, ?, 'monthly')`,
			s.name, s.due, s.active)
		if err != nil {
			t.Fatalf("seed %s: %v", s.name, err)
		}
	}

	from := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 3)
	subs, err := st.DueSubscriptions(ctx, from, to)
	if err != nil {
		t.Fatalf("DueSubscriptions: %v", err)
	}

	var names []string
	for _, s := range subs {
		names = append(names, s.Name)
		if !s.Active {
			t.Fatalf("subscription %q returned inactive", s.Name)
		}
		if got := s.Amount.String(); got != "9.99 EUR" {
			t.Fatalf("subscription %q amount = %s", s.Name, got)
		}
	}
	want := []string{"today", "inside", "horizon edge"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestMovementsOn(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	rows := []struct {
		kind, amount, category, day string
	}{
		{"income", "1000.00", "", "2026-03-10"},
		{"expense", "12.50", "food", "2026-03-10"},
		{"expense", "99.00", "food", "2026-03-11"},
	}
	for _, r := range rows {
		_, err := st.db.ExecContext(ctx,
			`INSERT INTO movements(kind, amount, currency, category, account, occurred_on)
			 VALUES(?, ?, 'EUR', ?, 'main', ?)`,
			r.kind, r.amount, r.category, r.day)
		if err != nil {
			t.Fatalf("seed movement: %v", err)
		}
	}

	got, err := st.MovementsOn(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("MovementsOn: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d movements, want 2", len(got))
	}
	if got[0].Kind != domain.MovementIncome || got[0].Amount.String() != "1000.00 EUR" {
		t.Fatalf("first movement = %+v", got[0])
	}
	if got[1].Kind != domain.MovementExpense || got[1].Category != "food" {
		t.Fatalf("second movement = %+v", got[1])
	}
	if got[1].OccurredOn.Format(domain.DateLayout) != "2026-03-10" {
		t.Fatalf("occurred_on = %v", got[1].OccurredOn)
	}
}

func TestAlertLogMarkWasPrune(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	const key = "sub:7:2026-03-10"

	done, err := st.WasAlerted(ctx, key)
	if err != nil || done {
		t.Fatalf("WasAlerted before mark = (%v, %v), want (false, nil)", done, err)
	}

	old := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := st.MarkAlerted(ctx, key, old); err != nil {
		t.Fatalf("MarkAlerted: %v", err)
	}
	// Marking twice must not fail (upsert).
	if err := st.MarkAlerted(ctx, key, old.Add(time.Minute)); err != nil {
		t.Fatalf("MarkAlerted repeat: %v", err)
	}

	done, err = st.WasAlerted(ctx, key)
	if err != nil || !done {
		t.Fatalf("WasAlerted after mark = (%v, %v), want (true, nil)", done, err)
	}

	const fresh = "sub:8:2026-03-10"
	if err := st.MarkAlerted(ctx, fresh, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("MarkAlerted fresh: %v", err)
	}

	n, err := st.PruneAlertLog(ctx, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PruneAlertLog: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d rows, want 1", n)
	}

	done, _ = st.WasAlerted(ctx, key)
	if done {
		t.Fatal("old row survived the prune")
	}
	done, _ = st.WasAlerted(ctx, fresh)
	if !done {
		t.Fatal("fresh row was pruned")
	}
}

func TestWasAlertedEmptyKey(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)

	done, err := st.WasAlerted(context.Background(), "")
	if err != nil || done {
		t.Fatalf("WasAlerted(\"\") = (%v, %v), want (false, nil)", done, err)
	}
	if err := st.MarkAlerted(context.Background(), "", time.Now()); err != nil {
		t.Fatalf("MarkAlerted(\"\"): %v", err)
	}
}
