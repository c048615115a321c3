package main

import (
	"context"
	"fmt"
	"log"

	common_api "go-regula/internal/common/api"
	"go-regula/internal/common/clock"
	"go-regula/internal/config"
	"go-regula/internal/database"
	"go-regula/internal/features/admin"
	"go-regula/internal/features/audit"
	"go-regula/internal/features/notification"
	"go-regula/internal/features/scheduler"
	"go-regula/internal/features/sla"
	"go-regula/internal/features/system"
	"go-regula/internal/features/systemlog"
	"go-regula/internal/features/template"
	"go-regula/internal/features/user"
	"go-regula/internal/features/webhook"
	"go-regula/internal/features/workflow"
	"go-regula/internal/logger"
	"go-regula/internal/middleware"
	"go-regula/internal/telemetry"
	"go-regula/pkg/utils"

	_ "go-regula/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common_api.ErrorResponse(c, err)
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, log *zap.Logger) {
	log.Info("Registering routes", zap.Int("count", len(routes)))
	for _, route := range routes {
		route.Setup(app)
	}
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer starts Fiber in a goroutine and shuts it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				logger.Info("HTTP server listening", zap.String("addr", port), zap.String("env", cfg.Environment))
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}

// @title           Regula API
// @version         1.0
// @description     Multi-party approval engine: role-gated workflows, audit trail, callbacks and SLA escalation.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @host            localhost:8000
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			NewFiberServer,

			database.NewDatabase,
			database.NewMongoDatabase,
			func() clock.Clock { return clock.System{} },
			telemetry.NewMetrics,

			// System log
			systemlog.NewHub,
			systemlog.NewSystemLogRepository,
			systemlog.ProvideWriter,
			systemlog.NewSystemLogService,

			// Repositories
			user.NewUserRepository,
			template.NewTemplateRepository,
			audit.NewAuditRepository,
			webhook.NewDeliveryRepository,
			workflow.NewWorkflowRepository,

			// Services
			user.NewUserService,
			template.NewTemplateService,
			audit.NewLedger,
			notification.ProvideDispatcher,
			notification.NewSMTPNotifier,
			notification.NewNotificationService,
			webhook.NewHTTPClient,
			webhook.NewWebhookService,
			workflow.NewWorkflowService,
			sla.NewSLAService,
			scheduler.ProvideScheduler,
			admin.NewAdminService,

			// Interface adapters
			func(w *systemlog.Writer) systemlog.Recorder { return w },
			func(s workflow.WorkflowService) audit.WorkflowAccess { return s },

			// Controllers
			user.NewUserController,
			template.NewTemplateController,
			audit.NewAuditController,
			workflow.NewWorkflowController,
			admin.NewAdminController,
			system.NewHealthController,
			system.NewDebugController,
			system.NewWebSocketController,

			// Routes
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewDebugApi),
			AsRoute(system.NewWebSocketApi),
			AsRoute(user.NewUserApi),
			AsRoute(template.NewTemplateApi),
			AsRoute(workflow.NewWorkflowApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(admin.NewAdminApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			RegisterAllRoutesWithAnnotation,
			StartServer,
			// the scheduler's lifecycle hooks are registered by its provider
			func(*scheduler.Scheduler) {},
		),
	)

	app.Run()
}
