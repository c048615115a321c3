package audit

import (
	"go-regula/internal/config"
	"go-regula/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller *AuditController
	config     *config.Config
}

func NewAuditApi(controller *AuditController, config *config.Config) *AuditApi {
	return &AuditApi{
		controller: controller,
		config:     config,
	}
}

func (h *AuditApi) Setup(app *fiber.App) {
	trail := app.Group("/api/workflows/:id/audit", middleware.AuthMiddleware(h.config.SkipAuth))

	trail.Get("/", h.controller.ListEntries)
	trail.Get("/verify", h.controller.VerifyChain)
	trail.Get("/export", h.controller.ExportEntries)
}
