package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	logx "finbot/pkg/logx"
)

const dateLayout = "2006-01-02"

// Delegate is the notification domain service the scheduler drives. It owns
// all alert/report content, recipients, and per-record idempotence; the
// scheduler caches none of its configuration.
type Delegate interface {
	// CheckSubscriptionAlerts scans alert-eligible records and sends a
	// notification per due record.
	CheckSubscriptionAlerts(ctx context.Context) error

	// CheckDailyReport re-derives the configured report window and, if it is
	// open, builds and sends the daily summary. Returns true if a send
	// occurred.
	CheckDailyReport(ctx context.Context) (bool, error)
}

// Config controls the poller. All knobs are configuration, not literals.
type Config struct {
	Enabled     bool
	Interval    time.Duration // poll cadence; default 5m
	Timezone    string        // IANA TZ for the alert window check
	AlertHour   int           // alert target time in Timezone; default 09:00
	AlertMinute int
	Window      time.Duration // tolerance window after the target; default 1h
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.Window <= 0 {
		c.Window = time.Hour
	}
	return c
}

// TickResult records one evaluation pass, for /status.
type TickResult struct {
	At         time.Time
	AlertRan   bool // the window was open and the delegate was invoked
	ReportSent bool
	AlertErr   string
	ReportErr  string
}

// Snapshot is a point-in-time view of the scheduler.
type Snapshot struct {
	Running        bool
	Interval       time.Duration
	Timezone       string
	AlertTime      string
	Window         time.Duration
	LastReportDate string
	LastTick       time.Time
	History        []TickResult
}

const historyCap = 32

// Service owns the repeating timer and exactly three pieces of state: the
// running flag, the timer resource, and the last-report-date guard. Ticks
// and manual triggers run on real goroutines, so one mutex covers all three.
type Service struct {
	mu sync.Mutex

	log      logx.Logger
	cfg      Config
	delegate Delegate

	now func() time.Time // injectable clock

	running bool
	ticker  *time.Ticker
	done    chan struct{}

	// lastReportDate holds the YYYY-MM-DD (process-local) on which the daily
	// report last sent. Empty at boot: a restart inside the send window can
	// cause at most one duplicate report for that day.
	lastReportDate string

	lastTick time.Time
	history  []TickResult
}

func New(cfg Config, delegate Delegate, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg.withDefaults(),
		delegate: delegate,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply updates the configuration live. The cadence change takes effect on
// the running ticker; the timezone is re-resolved on the next evaluation.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cfg
	s.cfg = cfg
	if s.running && s.ticker != nil && cfg.Interval != old.Interval {
		s.ticker.Reset(cfg.Interval)
		s.log.Info("poll interval updated", logx.Duration("interval", cfg.Interval))
	}
}

// Start is idempotent: a second call while running logs and returns. The
// first evaluation pass runs synchronously so the initial check does not
// wait a full interval.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Info("scheduler already running")
		return
	}
	s.running = true
	s.ticker = time.NewTicker(s.cfg.Interval)
	s.done = make(chan struct{})
	ticker := s.ticker
	done := s.done
	interval := s.cfg.Interval
	s.mu.Unlock()

	s.log.Info("scheduler started",
		logx.Duration("interval", interval),
		logx.String("tz", s.cfg.Timezone),
		logx.String("alert_time", fmt.Sprintf("%02d:%02d", s.cfg.AlertHour, s.cfg.AlertMinute)),
	)

	s.tick(ctx)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop cancels the timer and clears the handle. Idempotent; an in-flight
// tick is not awaited and runs to completion on its own.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.ticker.Stop()
	close(s.done)
	s.ticker = nil
	s.done = nil
	s.running = false
	s.log.Info("scheduler stopped")
}

// TriggerAlerts bypasses the window check and invokes the alert delegate
// directly. Intended for operational testing (/alerts_now).
func (s *Service) TriggerAlerts(ctx context.Context) error {
	s.log.Info("manual alert trigger")
	return s.delegate.CheckSubscriptionAlerts(ctx)
}

// tick runs both evaluators in sequence. Each is contained: an error or
// panic in one is logged and never reaches the other, this tick or later
// ticks. A tick slower than the cadence can overlap the next one in wall
// time; the mutex keeps the guard state consistent when that happens.
func (s *Service) tick(ctx context.Context) {
	at := s.now()
	res := TickResult{At: at}

	if err := s.contain("alerts", func() error {
		ran, err := s.evalAlerts(ctx)
		res.AlertRan = ran
		return err
	}); err != nil {
		res.AlertErr = err.Error()
	}

	if err := s.contain("report", func() error {
		sent, err := s.evalReport(ctx)
		res.ReportSent = sent
		return err
	}); err != nil {
		res.ReportErr = err.Error()
	}

	s.mu.Lock()
	s.lastTick = at
	s.history = append(s.history, res)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
	s.mu.Unlock()
}

func (s *Service) contain(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.log.Error("evaluator panicked", logx.String("evaluator", name), logx.Any("panic", r))
		}
	}()
	if err = fn(); err != nil {
		s.log.Warn("evaluator failed", logx.String("evaluator", name), logx.Err(err))
	}
	return err
}

// evalAlerts projects the current instant into the configured zone and
// invokes the delegate when the local time of day falls inside
// [target, target+window). Returns whether the delegate ran.
func (s *Service) evalAlerts(ctx context.Context) (bool, error) {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	local := s.now().In(s.location(cfg.Timezone))
	minutes := local.Hour()*60 + local.Minute()
	target := cfg.AlertHour*60 + cfg.AlertMinute
	windowMin := int(cfg.Window / time.Minute)

	if minutes < target || minutes >= target+windowMin {
		return false, nil
	}
	s.log.Debug("alert window open; checking subscriptions",
		logx.String("local", local.Format("15:04")))
	return true, s.delegate.CheckSubscriptionAlerts(ctx)
}

// evalReport enforces at most one report per process-local calendar day.
// The window decision itself belongs to the delegate, which owns the report
// time configuration. The guard is only advanced on a confirmed send, so a
// failed attempt is retried on the next tick until the day rolls over.
func (s *Service) evalReport(ctx context.Context) (bool, error) {
	today := s.now().Format(dateLayout)

	s.mu.Lock()
	already := s.lastReportDate == today
	s.mu.Unlock()
	if already {
		return false, nil
	}

	sent, err := s.delegate.CheckDailyReport(ctx)
	if err != nil {
		return false, err
	}
	if !sent {
		return false, nil
	}

	s.mu.Lock()
	s.lastReportDate = today
	s.mu.Unlock()
	s.log.Info("daily report sent", logx.String("date", today))
	return true, nil
}

func (s *Service) location(tz string) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := make([]TickResult, len(s.history))
	copy(hist, s.history)
	return Snapshot{
		Running:        s.running,
		Interval:       s.cfg.Interval,
		Timezone:       s.cfg.Timezone,
		AlertTime:      fmt.Sprintf("%02d:%02d", s.cfg.AlertHour, s.cfg.AlertMinute),
		Window:         s.cfg.Window,
		LastReportDate: s.lastReportDate,
		LastTick:       s.lastTick,
		History:        hist,
	}
}

// ParseHHMM parses a clock time like "09:00".
func ParseHHMM(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
