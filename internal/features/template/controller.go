package template

import (
	common_api "go-regula/internal/common/api"
	"go-regula/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TemplateController struct {
	Service TemplateService
}

func NewTemplateController(service TemplateService) *TemplateController {
	return &TemplateController{Service: service}
}

// CreateTemplate godoc
// @Summary Create a workflow template
// @Description Create an immutable, ordered list of role-gated approval steps
// @Tags templates
// @Accept json
// @Produce json
// @Param template body CreateTemplateInput true "Template definition"
// @Success 201 {object} WorkflowTemplate
// @Failure 400 {object} map[string]string "Invalid template"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Template name already exists"
// @Router /api/templates [post]
func (c *TemplateController) CreateTemplate(ctx *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(ctx)

	var input CreateTemplateInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	tpl, err := c.Service.CreateTemplate(ctx.UserContext(), actor, input)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(tpl)
}

// ListTemplates godoc
// @Summary List workflow templates
// @Tags templates
// @Produce json
// @Success 200 {array} WorkflowTemplate
// @Router /api/templates [get]
func (c *TemplateController) ListTemplates(ctx *fiber.Ctx) error {
	templates, err := c.Service.ListTemplates(ctx.UserContext())
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(templates)
}

// GetTemplate godoc
// @Summary Get a workflow template
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} WorkflowTemplate
// @Failure 404 {object} map[string]string "Template not found"
// @Router /api/templates/{id} [get]
func (c *TemplateController) GetTemplate(ctx *fiber.Ctx) error {
	tpl, err := c.Service.GetTemplate(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(tpl)
}
