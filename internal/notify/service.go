package notify

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"finbot/internal/storage"
	"finbot/internal/transport"
	logx "finbot/pkg/logx"
)

const (
	defaultDaysAhead = 3
	defaultWindow    = time.Hour

	// alert-log rows older than this are pruned by the maintenance job
	alertLogRetention = 90 * 24 * time.Hour
)

type Service struct {
	log     logx.Logger
	store   storage.Store
	gateway transport.Gateway

	now func() time.Time // injectable clock

	cron *cron.Cron
}

func New(store storage.Store, gateway transport.Gateway, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:     log,
		store:   store,
		gateway: gateway,
		now:     time.Now,
	}
}

// StartMaintenance schedules the daily alert-log prune.
func (s *Service) StartMaintenance() error {
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc("30 4 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cutoff := s.now().Add(-alertLogRetention)
		n, err := s.store.PruneAlertLog(ctx, cutoff)
		if err != nil {
			s.log.Warn("alert log prune failed", logx.Err(err))
			return
		}
		if n > 0 {
			s.log.Info("alert log pruned", logx.Int64("removed", n))
		}
	})
	if err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.log.Debug("maintenance job scheduled")
	return nil
}

func (s *Service) StopMaintenance() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}

func (s *Service) send(ctx context.Context, chatID int64, text string) error {
	_, err := s.gateway.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text,
		&transport.SendOptions{ParseMode: "HTML", DisablePreview: true})
	return err
}
