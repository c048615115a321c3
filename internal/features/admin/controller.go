package admin

import (
	"crypto/hmac"
	"time"

	common_api "go-regula/internal/common/api"
	"go-regula/internal/config"
	"go-regula/internal/features/systemlog"
	"go-regula/internal/features/webhook"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminController
type AdminController struct {
	Service AdminService
	Config  *config.Config
	Logger  *zap.Logger
}

func NewAdminController(service AdminService, cfg *config.Config, logger *zap.Logger) *AdminController {
	return &AdminController{Service: service, Config: cfg, Logger: logger}
}

// GetStats
// @Summary      System statistics
// @Description  Users, workflows, SLA breaches, webhook delivery totals and scheduler jobs
// @Tags         admin
// @Produce      json
// @Success      200  {object}  Stats
// @Failure      403  {object}  map[string]string "Forbidden"
// @Router       /api/admin/stats [get]
func (ctrl *AdminController) GetStats(c *fiber.Ctx) error {
	stats, err := ctrl.Service.Stats(c.UserContext())
	if err != nil {
		return common_api.ErrorResponse(c, err)
	}
	return c.JSON(stats)
}

// GetWebhooks
// @Summary      Recent webhook deliveries
// @Tags         admin
// @Produce      json
// @Success      200  {array}  webhook.RecentDelivery
// @Router       /api/admin/webhooks [get]
func (ctrl *AdminController) GetWebhooks(c *fiber.Ctx) error {
	deliveries, err := ctrl.Service.RecentDeliveries(c.UserContext())
	if err != nil {
		return common_api.ErrorResponse(c, err)
	}
	return c.JSON(deliveries)
}

// GetUsers
// @Summary      Directory users
// @Tags         admin
// @Produce      json
// @Success      200  {array}  user.User
// @Router       /api/admin/users [get]
func (ctrl *AdminController) GetUsers(c *fiber.Ctx) error {
	users, err := ctrl.Service.ListUsers(c.UserContext())
	if err != nil {
		return common_api.ErrorResponse(c, err)
	}
	return c.JSON(users)
}

// GetLogs
// @Summary      Search system log events
// @Tags         admin
// @Produce      json
// @Param        eventType   query  string  false  "Event type"
// @Param        workflowId  query  string  false  "Workflow ID"
// @Param        actorRole   query  string  false  "Actor role"
// @Param        startDate   query  string  false  "RFC3339 lower bound"
// @Param        endDate     query  string  false  "RFC3339 upper bound"
// @Param        page        query  int     false  "Page (1-based)"
// @Param        limit       query  int     false  "Page size"
// @Success      200  {object}  systemlog.Page
// @Failure      400  {object}  map[string]string "Invalid date"
// @Router       /api/admin/logs [get]
func (ctrl *AdminController) GetLogs(c *fiber.Ctx) error {
	q := systemlog.Query{
		EventType:  c.Query("eventType"),
		WorkflowID: c.Query("workflowId"),
		ActorRole:  c.Query("actorRole"),
		Page:       c.QueryInt("page", 1),
		Limit:      c.QueryInt("limit", systemlog.DefaultPageSize),
	}
	for name, dst := range map[string]**time.Time{"startDate": &q.From, "endDate": &q.To} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": name + " must be an RFC3339 timestamp"})
		}
		*dst = &t
	}

	page, err := ctrl.Service.SearchLogs(c.UserContext(), q)
	if err != nil {
		return common_api.ErrorResponse(c, err)
	}
	return c.JSON(page)
}

// HandleWebhook
// @Summary      Webhook echo receiver
// @Description  Development target for callback URLs. Logs the delivery and checks its signature when a signing secret is configured.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        payload  body  webhook.Payload  true  "Delivery payload"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string "Bad signature"
// @Router       /api/admin/webhook-echo [post]
func (ctrl *AdminController) HandleWebhook(c *fiber.Ctx) error {
	body := c.Body()
	if secret := ctrl.Config.WebhookSigningSecret; secret != "" {
		want := "sha256=" + webhook.Sign(secret, body)
		if !hmac.Equal([]byte(want), []byte(c.Get("X-Regula-Signature"))) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid signature"})
		}
	}

	ctrl.Logger.Info("Webhook received",
		zap.String("event", c.Get("X-Regula-Event")),
		zap.String("deliveryId", c.Get("X-Regula-Delivery")),
		zap.Int("bytes", len(body)))
	return c.JSON(fiber.Map{"status": "received"})
}
