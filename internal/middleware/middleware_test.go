package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"go-regula/internal/common/models"
	"go-regula/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(skipAuth bool, roles ...models.Role) *fiber.App {
	app := fiber.New()
	handlers := []fiber.Handler{AuthMiddleware(skipAuth)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *fiber.Ctx) error {
		actor, _ := ActorFrom(c)
		return c.JSON(actor)
	})
	app.Get("/", handlers...)
	return app
}

func TestAuthMiddlewareRequiresHeader(t *testing.T) {
	resp, err := newApp(false).Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddlewareResolvesActor(t *testing.T) {
	token, err := utils.GenerateToken("u-9", "exec@example.com", "EXECUTOR", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := newApp(false, models.RoleExecutor).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthMiddlewareRejectsSystemRoleTokens(t *testing.T) {
	token, err := utils.GenerateToken("system", "SYSTEM", "SYSTEM", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := newApp(false).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(DevRoleHeader, "REQUESTER")
	resp, err := newApp(true, models.RoleAdmin).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestSkipAuthDefaultsToAdmin(t *testing.T) {
	resp, err := newApp(true, models.RoleAdmin).Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
