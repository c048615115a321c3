package system

import (
	"go-regula/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DebugController struct{}

func NewDebugController() *DebugController {
	return &DebugController{}
}

// GetCurrentActor godoc
// @Summary      Get the calling actor
// @Description  The identity and role resolved from the bearer token
// @Tags         debug
// @Produce      json
// @Success      200  {object}  models.Actor
// @Router       /api/debug/me [get]
func (c *DebugController) GetCurrentActor(ctx *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}
	return ctx.JSON(actor)
}
