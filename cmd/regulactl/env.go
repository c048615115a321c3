package main

import (
	"context"
	"time"

	"go-regula/internal/common/clock"
	"go-regula/internal/config"
	"go-regula/internal/database"
	"go-regula/internal/features/audit"
	"go-regula/internal/features/notification"
	"go-regula/internal/features/sla"
	"go-regula/internal/features/systemlog"
	"go-regula/internal/features/template"
	"go-regula/internal/features/user"
	"go-regula/internal/features/webhook"
	"go-regula/internal/features/workflow"
	"go-regula/internal/logger"

	"go.uber.org/zap"
)

type globalOptions struct {
	driver  string
	dsn     string
	verbose bool
}

// cliEnv lazily builds the services a command needs. Every command that
// opens the store must defer close.
type cliEnv struct {
	opts *globalOptions
	cfg  *config.Config
}

func (e *cliEnv) config() (*config.Config, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if e.opts.driver != "" {
		cfg.DBDriver = e.opts.driver
	}
	if e.opts.dsn != "" {
		cfg.DBDSN = e.opts.dsn
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e.cfg = cfg
	return cfg, nil
}

type services struct {
	cfg    *config.Config
	db     *database.Database
	log    *zap.Logger
	clock  clock.Clock
	writer *systemlog.Writer

	userRepo  user.UserRepository
	users     user.UserService
	templates template.TemplateService
	ledger    audit.Ledger
	webhooks  webhook.WebhookService
}

func (e *cliEnv) open(ctx context.Context) (*services, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if e.opts.verbose {
		if log, err = logger.NewLogger(cfg); err != nil {
			return nil, err
		}
	}

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	clk := clock.System{}
	logs := systemlog.NewSQLRepository(db)
	writer := systemlog.NewWriter(logs, systemlog.NewHub(), clk, log, cfg.SystemLogBuffer)

	userRepo := user.NewUserRepository(db)
	s := &services{
		cfg:       cfg,
		db:        db,
		log:       log,
		clock:     clk,
		writer:    writer,
		userRepo:  userRepo,
		users:     user.NewUserService(db, userRepo, clk),
		templates: template.NewTemplateService(db, template.NewTemplateRepository(db), clk, log),
		ledger:    audit.NewLedger(db, audit.NewAuditRepository(db), clk),
		webhooks: webhook.NewWebhookService(
			webhook.NewDeliveryRepository(db), webhook.NewHTTPClient(cfg), cfg, clk, writer, nil, log),
	}
	return s, nil
}

// monitor builds the SLA monitor with mail delivery. The returned dispatcher
// must be closed so queued notifications are flushed.
func (s *services) monitor() (sla.SLAService, *notification.Dispatcher) {
	dispatcher := notification.NewDispatcher(s.cfg.NotifyWorkers, s.cfg.NotifyQueueSize, s.log)
	notifications := notification.NewNotificationService(
		dispatcher, notification.NewSMTPNotifier(s.cfg, s.log), s.users, s.log)
	monitor := sla.NewSLAService(
		s.db,
		workflow.NewWorkflowRepository(s.db),
		template.NewTemplateRepository(s.db),
		s.ledger,
		s.webhooks,
		s.writer,
		notifications,
		nil,
		s.clock,
		s.log,
	)
	return monitor, dispatcher
}

func (s *services) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writer.Close(ctx); err != nil {
		s.log.Warn("System log writer did not drain", zap.Error(err))
	}
	return s.db.Close()
}
