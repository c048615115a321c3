package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-regula/internal/common/models"
	"go-regula/internal/config"
	"go-regula/internal/database"
	"go-regula/internal/features/systemlog"
	"go-regula/internal/features/user"
	"go-regula/internal/features/webhook"
	"go-regula/internal/features/workflow"
	"go-regula/internal/middleware"
	"go-regula/internal/testsupport"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	db        *database.Database
	svc       AdminService
	users     user.UserService
	workflows workflow.WorkflowRepository
	webhooks  *webhook.WebhookServiceImpl
	cfg       *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testsupport.MustOpenDB(t)
	clk := testsupport.NewClock()
	users := user.NewUserService(db, user.NewUserRepository(db), clk)
	workflows := workflow.NewWorkflowRepository(db)
	webhooks := &webhook.WebhookServiceImpl{
		Repo:       webhook.NewDeliveryRepository(db),
		HttpClient: &http.Client{Timeout: time.Second},
		Clock:      clk,
		Recorder:   &systemlog.MemoryRecorder{},
		Logger:     zap.NewNop(),
	}
	logs := systemlog.NewSystemLogService(systemlog.NewSQLRepository(db))

	return &fixture{
		db:        db,
		svc:       NewAdminService(users, workflows, webhooks, logs, nil),
		users:     users,
		workflows: workflows,
		webhooks:  webhooks,
		cfg:       &config.Config{Environment: "development", SkipAuth: true, WebhookSigningSecret: "s3cret"},
	}
}

func (f *fixture) app() *fiber.App {
	app := fiber.New()
	NewAdminApi(f.cfg, NewAdminController(f.svc, f.cfg, zap.NewNop())).Setup(app)
	return app
}

func (f *fixture) workflow(t *testing.T, id string) *workflow.Workflow {
	t.Helper()
	now := testsupport.Epoch
	tpl := "tpl-1"
	wf := &workflow.Workflow{
		ID: id, Title: "wf " + id, Status: workflow.StatusSubmitted, StepStartTime: now,
		RequesterID: "req-1", TemplateID: &tpl, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, f.workflows.Create(context.Background(), wf))
	return wf
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.db.Exec(ctx, `INSERT INTO workflow_templates (id, name, steps, created_at) VALUES (?, ?, ?, ?)`,
		"tpl-1", "One step", `[{"name":"Review","role":"REVIEWER"}]`, database.FormatTime(testsupport.Epoch))
	require.NoError(t, err)

	_, err = f.users.CreateUser(ctx, "admin@example.com", "ADMIN")
	require.NoError(t, err)
	_, err = f.users.CreateUser(ctx, "rev@example.com", "REVIEWER")
	require.NoError(t, err)

	f.workflow(t, "wf-1")
	escalated := f.workflow(t, "wf-2")
	ok, err := f.workflows.MarkEscalated(ctx, escalated, testsupport.Epoch)
	require.NoError(t, err)
	require.True(t, ok)

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()
	_, err = f.webhooks.Enqueue(ctx, "wf-1", deadURL, "workflow.submit", map[string]string{})
	require.NoError(t, err)
	_, err = f.webhooks.ProcessBatch(ctx)
	require.NoError(t, err)
	_, err = f.webhooks.Enqueue(ctx, "wf-2", deadURL, "workflow.escalation", map[string]string{})
	require.NoError(t, err)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	st, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Users)
	assert.Equal(t, 2, st.Workflows)
	assert.Equal(t, 1, st.SLABreaches)
	assert.Equal(t, 2, st.Webhooks.Total)
	assert.Equal(t, 1, st.Webhooks.Failures)
	assert.Equal(t, 1, st.Webhooks.Pending)
	assert.Equal(t, "50.0%", st.Webhooks.FailureRate)

	recent, err := f.svc.RecentDeliveries(context.Background())
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	app := f.app()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set(middleware.DevRoleHeader, string(models.RoleReviewer))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set(middleware.DevRoleHeader, string(models.RoleAdmin))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var users []user.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	assert.Len(t, users, 2)
}

func TestLogsRejectsBadDates(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/logs?startDate=yesterday", nil)
	req.Header.Set(middleware.DevRoleHeader, string(models.RoleAdmin))
	resp, err := f.app().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/logs?startDate=2024-01-01T00:00:00Z&limit=5", nil)
	req.Header.Set(middleware.DevRoleHeader, string(models.RoleAdmin))
	resp, err = f.app().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var page systemlog.Page
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, 1, page.Page)
}

func TestWebhookEchoChecksSignature(t *testing.T) {
	f := newFixture(t)
	app := f.app()
	body := `{"event":"workflow.submit"}`

	req := httptest.NewRequest(http.MethodPost, "/api/admin/webhook-echo", strings.NewReader(body))
	req.Header.Set("X-Regula-Signature", "sha256=deadbeef")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/webhook-echo", strings.NewReader(body))
	req.Header.Set("X-Regula-Signature", "sha256="+webhook.Sign("s3cret", []byte(body)))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
