package workflow

import (
	common_api "go-regula/internal/common/api"
	"go-regula/internal/features/systemlog"
	"go-regula/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type WorkflowController struct {
	Service WorkflowService
	Logs    systemlog.SystemLogService
}

func NewWorkflowController(service WorkflowService, logs systemlog.SystemLogService) *WorkflowController {
	return &WorkflowController{Service: service, Logs: logs}
}

// CreateWorkflow godoc
// @Summary Create a workflow
// @Description Create a DRAFT workflow, optionally following a template and reporting to a callback URL
// @Tags workflows
// @Accept json
// @Produce json
// @Param workflow body CreateWorkflowInput true "Workflow"
// @Success 201 {object} Workflow
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Only requesters may create workflows"
// @Router /api/workflows [post]
func (c *WorkflowController) CreateWorkflow(ctx *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(ctx)

	var input CreateWorkflowInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	wf, err := c.Service.CreateWorkflow(ctx.UserContext(), actor, input)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(wf)
}

// ListWorkflows godoc
// @Summary List workflows
// @Description Requesters see their own workflows, other roles see all
// @Tags workflows
// @Produce json
// @Success 200 {array} Workflow
// @Router /api/workflows [get]
func (c *WorkflowController) ListWorkflows(ctx *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(ctx)

	workflows, err := c.Service.ListWorkflows(ctx.UserContext(), actor)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(workflows)
}

// GetWorkflow godoc
// @Summary Get a workflow
// @Description Workflow with its template and ordered audit trail
// @Tags workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} WorkflowDetail
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Workflow not found"
// @Router /api/workflows/{id} [get]
func (c *WorkflowController) GetWorkflow(ctx *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(ctx)

	detail, err := c.Service.GetWorkflow(ctx.UserContext(), actor, ctx.Params("id"))
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(detail)
}

// Transition godoc
// @Summary Transition a workflow
// @Description Apply SUBMIT, APPROVE, REJECT or EXECUTE. APPROVE and REJECT require a comment.
// @Tags workflows
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param transition body TransitionRequest true "Action and comment"
// @Success 200 {object} Workflow
// @Failure 400 {object} map[string]string "Invalid transition or missing comment"
// @Failure 403 {object} map[string]string "Actor lacks the required role"
// @Failure 404 {object} map[string]string "Workflow not found"
// @Router /api/workflows/{id}/transition [post]
func (c *WorkflowController) Transition(ctx *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(ctx)

	var req TransitionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	action, err := ParseAction(req.Action)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}

	wf, err := c.Service.Transition(ctx.UserContext(), ctx.Params("id"), actor, action, req.Comment)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(wf)
}

// GetWorkflowLogs godoc
// @Summary System log events of a workflow
// @Tags workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {array} systemlog.Event
// @Failure 404 {object} map[string]string "Workflow not found"
// @Router /api/workflows/{id}/logs [get]
func (c *WorkflowController) GetWorkflowLogs(ctx *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(ctx)
	id := ctx.Params("id")

	if _, err := c.Service.AuthorizeView(ctx.UserContext(), actor, id); err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	logs, err := c.Logs.ListByWorkflow(ctx.UserContext(), id)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(logs)
}
