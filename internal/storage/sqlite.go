package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"finbot/internal/domain"
	logx "finbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open opens (creating if needed) the SQLite database at cfg.Path.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Settings(ctx context.Context) (domain.Settings, error) {
	var (
		out       domain.Settings
		windowMin int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT alert_chat_id, alert_days_ahead, report_hour, report_minute,
		        report_window_min, report_timezone, base_currency
		   FROM settings WHERE id = 1`,
	).Scan(&out.AlertChatID, &out.AlertDaysAhead, &out.ReportHour, &out.ReportMinute,
		&windowMin, &out.ReportTimezone, &out.BaseCurrency)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Settings{}, ErrNoSettings
	}
	if err != nil {
		return domain.Settings{}, err
	}
	out.ReportWindow = time.Duration(windowMin) * time.Minute
	return out, nil
}

func (s *sqliteStore) DueSubscriptions(ctx context.Context, from, to time.Time) ([]domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, amount, currency, next_due, interval
		   FROM subscriptions
		  WHERE active = 1 AND next_due >= ? AND next_due <= ?
		  ORDER BY next_due, id`,
		from.Format(domain.DateLayout), to.Format(domain.DateLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Subscription
	for rows.Next() {
		var (
			sub            domain.Subscription
			amount, dueStr string
			currency       string
		)
		if err := rows.Scan(&sub.ID, &sub.Name, &amount, &currency, &dueStr, &sub.Interval); err != nil {
			return nil, err
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("subscription %d: bad amount %q: %w", sub.ID, amount, err)
		}
		due, err := time.Parse(domain.DateLayout, dueStr)
		if err != nil {
			return nil, fmt.Errorf("subscription %d: bad due date %q: %w", sub.ID, dueStr, err)
		}
		sub.Amount = domain.NewMoney(dec, currency)
		sub.NextDue = due
		sub.Active = true
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *sqliteStore) MovementsOn(ctx context.Context, day string) ([]domain.Movement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, amount, currency, category, account, occurred_on
		   FROM movements WHERE occurred_on = ? ORDER BY id`,
		day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Movement
	for rows.Next() {
		var (
			m                      domain.Movement
			kind, amount, currency string
			dayStr                 string
		)
		if err := rows.Scan(&m.ID, &kind, &amount, &currency, &m.Category, &m.Account, &dayStr); err != nil {
			return nil, err
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("movement %d: bad amount %q: %w", m.ID, amount, err)
		}
		occurred, err := time.Parse(domain.DateLayout, dayStr)
		if err != nil {
			return nil, fmt.Errorf("movement %d: bad date %q: %w", m.ID, dayStr, err)
		}
		m.Kind = domain.MovementKind(kind)
		m.Amount = domain.NewMoney(dec, currency)
		m.OccurredOn = occurred
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *sqliteStore) WasAlerted(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM alert_log WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) MarkAlerted(ctx context.Context, key string, at time.Time) error {
	if key == "" {
		return nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_log(key, sent_at) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET sent_at = excluded.sent_at`,
		key, at.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) PruneAlertLog(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM alert_log WHERE sent_at < ?`,
		before.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
