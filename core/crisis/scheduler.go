package crisis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mindguard/config"
	"mindguard/core/notify"
	"mindguard/core/utils"
)

// FollowUpScheduler periodically surfaces due follow-ups and hands each one
// to the notifier. The due query is read-only and idempotent, so a tick that
// overlaps or repeats is harmless; the notifier owns double-send suppression.
type FollowUpScheduler struct {
	cfg    config.SchedulerConfig
	svc    *Service
	sender notify.Sender
	logger *utils.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewFollowUpScheduler(cfg config.SchedulerConfig, svc *Service, sender notify.Sender, logger *utils.Logger) *FollowUpScheduler {
	return &FollowUpScheduler{cfg: cfg, svc: svc, sender: sender, logger: logger}
}

func (s *FollowUpScheduler) StartWithContext(ctx context.Context) {
	if s == nil || s.svc == nil || !s.cfg.Enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	interval := s.cfg.IntervalSeconds
	if interval <= 0 {
		interval = 60
	}
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %ds", interval), func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.RunOnce(ctx, time.Now().UTC()); err != nil && s.logger != nil {
			s.logger.Error("follow-up scan", "err", err)
		}
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("schedule follow-up scan", "err", err)
		}
		return
	}
	c.Start()
	s.cron = c
	s.running = true
	if s.logger != nil {
		s.logger.Info("follow-up scheduler started", "interval_seconds", interval)
	}
}

func (s *FollowUpScheduler) StopWithContext(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()
	if !wasRunning || c == nil {
		return nil
	}
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce scans for due follow-ups once. Notifier failures are logged per
// event and do not abort the batch; the event stays due and the next tick
// retries it.
func (s *FollowUpScheduler) RunOnce(ctx context.Context, now time.Time) error {
	limit := s.cfg.BatchLimit
	if limit <= 0 {
		limit = 100
	}
	due, err := s.svc.PendingFollowUps(ctx, now, limit)
	if err != nil {
		return err
	}
	for _, ev := range due {
		msg := notify.FollowUpDue{
			EventID:  ev.ID,
			UserID:   ev.UserID,
			Severity: ev.Severity,
		}
		if ev.FollowUpScheduled != nil {
			msg.ScheduledFor = *ev.FollowUpScheduled
		}
		if err := s.sender.SendFollowUpDue(ctx, msg); err != nil {
			if s.logger != nil {
				s.logger.Error("dispatch follow-up", "event_id", ev.ID, "user_id", ev.UserID, "err", err)
			}
			continue
		}
		if s.logger != nil {
			s.logger.Info("follow-up dispatched", "event_id", ev.ID, "user_id", ev.UserID, "severity", ev.Severity)
		}
	}
	return nil
}
