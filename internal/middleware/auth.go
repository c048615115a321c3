package middleware

import (
	"go-regula/internal/common/models"
	"go-regula/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// DevRoleHeader selects the dummy actor's role when auth is skipped.
const DevRoleHeader = "X-Dev-Role"

// AuthMiddleware validates JWT tokens and injects the resolved actor into context
func AuthMiddleware(skipAuth bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipAuth {
			// Inject dummy actor for dev
			role := models.RoleAdmin
			if r, err := models.ParseRole(c.Get(DevRoleHeader)); err == nil {
				role = r
			}
			setActor(c, models.Actor{ID: "dev-" + string(role), Email: "dev@regula.local", Role: role})
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		// Extract token from "Bearer <token>"
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		claims, err := utils.ValidateToken(authHeader[7:])
		if err != nil || claims.UserID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		role, err := models.ParseRole(claims.Role)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token role",
			})
		}

		setActor(c, models.Actor{ID: claims.UserID, Email: claims.Email, Role: role})
		return c.Next()
	}
}

func setActor(c *fiber.Ctx, actor models.Actor) {
	c.Locals(models.ActorKey, actor)
}

// ActorFrom returns the actor injected by AuthMiddleware.
func ActorFrom(c *fiber.Ctx) (models.Actor, bool) {
	actor, ok := c.Locals(models.ActorKey).(models.Actor)
	return actor, ok
}
