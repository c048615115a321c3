package scheduler

import (
	"context"

	"go-regula/internal/common/clock"
	"go-regula/internal/config"
	"go-regula/internal/features/sla"
	"go-regula/internal/features/webhook"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobDeliveries = "deliveries"
	JobSLA        = "sla"
)

// DeliveryJob drains one batch of the webhook queue.
func DeliveryJob(cfg *config.Config, webhooks webhook.WebhookService, log *zap.Logger) Job {
	return Job{
		Name:     JobDeliveries,
		Interval: cfg.DeliveryInterval,
		Run: func(ctx context.Context) error {
			res, err := webhooks.ProcessBatch(ctx)
			if res.Claimed > 0 {
				log.Info("Processed webhook batch",
					zap.Int("claimed", res.Claimed),
					zap.Int("succeeded", res.Succeeded),
					zap.Int("failed", res.Failed),
					zap.Int("aborted", res.Aborted))
			}
			return err
		},
	}
}

// SLAJob runs one escalation scan.
func SLAJob(cfg *config.Config, monitor sla.SLAService, log *zap.Logger) Job {
	return Job{
		Name:     JobSLA,
		Interval: cfg.SLAInterval,
		Run: func(ctx context.Context) error {
			n, err := monitor.CheckDeadlines(ctx)
			if n > 0 {
				log.Warn("Escalated workflows for SLA breach", zap.Int("count", n))
			}
			return err
		},
	}
}

// ProvideScheduler builds the scheduler with both pollers and ties it to the
// application lifecycle.
func ProvideScheduler(lc fx.Lifecycle, cfg *config.Config, clk clock.Clock, webhooks webhook.WebhookService, monitor sla.SLAService, log *zap.Logger) (*Scheduler, error) {
	s, err := New(cfg.SchedulerLockPath, clk, log,
		DeliveryJob(cfg, webhooks, log),
		SLAJob(cfg, monitor, log),
	)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := s.Start()
			return err
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
	return s, nil
}
