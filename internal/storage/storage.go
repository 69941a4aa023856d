package storage

import (
	"context"
	"errors"
	"time"

	"finbot/internal/domain"
)

var ErrNoSettings = errors.New("storage: settings row missing")

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// Store is the persistence API the notification service depends on.
type Store interface {
	// Settings returns the operator configuration. It is fetched fresh on
	// every evaluator invocation; nothing above this layer caches it.
	Settings(ctx context.Context) (domain.Settings, error)

	// DueSubscriptions returns active subscriptions whose next due date
	// falls within [from, to], date precision.
	DueSubscriptions(ctx context.Context, from, to time.Time) ([]domain.Subscription, error)

	// MovementsOn returns all movements recorded on the given YYYY-MM-DD day.
	MovementsOn(ctx context.Context, day string) ([]domain.Movement, error)

	// WasAlerted and MarkAlerted implement the persisted alert log.
	WasAlerted(ctx context.Context, key string) (bool, error)
	MarkAlerted(ctx context.Context, key string, at time.Time) error

	// PruneAlertLog deletes alert-log rows older than the cutoff and
	// returns the number of rows removed.
	PruneAlertLog(ctx context.Context, before time.Time) (int64, error)

	Close() error
}
