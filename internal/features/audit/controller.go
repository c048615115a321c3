package audit

import (
	"bytes"
	"context"
	"fmt"

	common_api "go-regula/internal/common/api"
	"go-regula/internal/common/models"
	"go-regula/internal/middleware"
	"go-regula/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// WorkflowAccess decides whether an actor may read a workflow's trail and
// returns the workflow title.
type WorkflowAccess interface {
	AuthorizeView(ctx context.Context, actor models.Actor, workflowID string) (string, error)
}

type AuditController struct {
	Ledger Ledger
	Access WorkflowAccess
}

func NewAuditController(ledger Ledger, access WorkflowAccess) *AuditController {
	return &AuditController{
		Ledger: ledger,
		Access: access,
	}
}

// ListEntries godoc
// @Summary Get a workflow's audit trail
// @Tags audit
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {array} Entry
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Workflow not found"
// @Router /api/workflows/{id}/audit [get]
func (c *AuditController) ListEntries(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	actor, _ := middleware.ActorFrom(ctx)
	if _, err := c.Access.AuthorizeView(ctx.UserContext(), actor, id); err != nil {
		return common_api.ErrorResponse(ctx, err)
	}

	entries, err := c.Ledger.List(ctx.UserContext(), id)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(entries)
}

// VerifyChain godoc
// @Summary Verify a workflow's audit hash chain
// @Tags audit
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} VerifyResult
// @Router /api/workflows/{id}/audit/verify [get]
func (c *AuditController) VerifyChain(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	actor, _ := middleware.ActorFrom(ctx)
	if _, err := c.Access.AuthorizeView(ctx.UserContext(), actor, id); err != nil {
		return common_api.ErrorResponse(ctx, err)
	}

	result, err := c.Ledger.Verify(ctx.UserContext(), id)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(result)
}

// ExportEntries godoc
// @Summary Export a workflow's audit trail as XLSX
// @Tags audit
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Workflow ID"
// @Success 200 {file} file
// @Router /api/workflows/{id}/audit/export [get]
func (c *AuditController) ExportEntries(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	actor, _ := middleware.ActorFrom(ctx)
	title, err := c.Access.AuthorizeView(ctx.UserContext(), actor, id)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}

	var buf bytes.Buffer
	if err := c.Ledger.Export(ctx.UserContext(), id, &buf); err != nil {
		return common_api.ErrorResponse(ctx, err)
	}

	name := utils.Slugify(title)
	if name == "" {
		name = id
	}
	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="audit-%s.xlsx"`, name))
	return ctx.Send(buf.Bytes())
}
