package admin

import (
	"go-regula/internal/common/models"
	"go-regula/internal/config"
	"go-regula/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AdminApi struct {
	Controller *AdminController
	config     *config.Config
}

func NewAdminApi(config *config.Config, controller *AdminController) *AdminApi {
	return &AdminApi{
		config:     config,
		Controller: controller,
	}
}

// Setup registers admin-related routes
func (h *AdminApi) Setup(app *fiber.App) {
	// The echo receiver is unauthenticated so local callbacks can reach it.
	if !h.config.IsProduction() {
		app.Post("/api/admin/webhook-echo", h.Controller.HandleWebhook)
	}

	admin := app.Group("/api/admin",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireRole(models.RoleAdmin),
	)
	admin.Get("/stats", h.Controller.GetStats)
	admin.Get("/webhooks", h.Controller.GetWebhooks)
	admin.Get("/users", h.Controller.GetUsers)
	admin.Get("/logs", h.Controller.GetLogs)
}
