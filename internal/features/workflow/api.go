package workflow

import (
	"go-regula/internal/config"
	"go-regula/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type WorkflowApi struct {
	controller *WorkflowController
	config     *config.Config
}

func NewWorkflowApi(controller *WorkflowController, config *config.Config) *WorkflowApi {
	return &WorkflowApi{
		controller: controller,
		config:     config,
	}
}

func (h *WorkflowApi) Setup(app *fiber.App) {
	workflows := app.Group("/api/workflows", middleware.AuthMiddleware(h.config.SkipAuth))

	workflows.Post("/", h.controller.CreateWorkflow)
	workflows.Get("/", h.controller.ListWorkflows)
	workflows.Get("/:id", h.controller.GetWorkflow)
	workflows.Post("/:id/transition", h.controller.Transition)
	workflows.Get("/:id/logs", h.controller.GetWorkflowLogs)
}
