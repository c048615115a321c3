package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go-regula/internal/common/clock"
	"go-regula/internal/common/models"
	"go-regula/internal/config"
	"go-regula/internal/database"
	"go-regula/internal/features/audit"
	"go-regula/internal/features/systemlog"
	"go-regula/internal/features/template"
	"go-regula/internal/features/user"
	"go-regula/internal/features/webhook"
	"go-regula/internal/features/workflow"
	"go-regula/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runCLI(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--db-driver", "sqlite", "--dsn", dsn}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func tempDSN(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "regula.db")
}

func openDB(t *testing.T, dsn string) *database.Database {
	t.Helper()
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestMigrateReportsVersion(t *testing.T) {
	out, err := runCLI(t, tempDSN(t), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version 1 (sqlite)")
}

func TestSeedIsIdempotent(t *testing.T) {
	dsn := tempDSN(t)

	out, err := runCLI(t, dsn, "seed")
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, " created "))
	assert.Contains(t, out, `Template "Standard access request" created.`)
	assert.Contains(t, out, "Dev tokens:")

	out, err = runCLI(t, dsn, "seed", "--token-ttl", "0")
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, " exists "))
	assert.Contains(t, out, "already present")
	assert.NotContains(t, out, "Dev tokens:")

	db := openDB(t, dsn)
	defer db.Close()
	n, err := user.NewUserRepository(db).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	tpls, err := template.NewTemplateRepository(db).List(context.Background())
	require.NoError(t, err)
	assert.Len(t, tpls, 1)
}

func TestTokenForSeededUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	t.Cleanup(func() { utils.SetSecret("secret") })
	dsn := tempDSN(t)

	_, err := runCLI(t, dsn, "seed")
	require.NoError(t, err)

	out, err := runCLI(t, dsn, "token", "--email", "reviewer@regula.local")
	require.NoError(t, err)

	claims, err := utils.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "reviewer@regula.local", claims.Email)
	assert.Equal(t, "REVIEWER", claims.Role)

	_, err = runCLI(t, dsn, "token", "--email", "nobody@regula.local")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestTemplateImport(t *testing.T) {
	dsn := tempDSN(t)
	file := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
templates:
  - name: Production access
    steps:
      - name: Team lead
        role: REVIEWER
        slaHours: 4
      - name: Apply grant
        role: EXECUTOR
`), 0o600))

	out, err := runCLI(t, dsn, "template", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported Production access")

	out, err = runCLI(t, dsn, "template", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Team lead")
	assert.Contains(t, out, "4h0m0s")
	assert.Contains(t, out, "24h0m0s")

	_, err = runCLI(t, dsn, "template", "import", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestTemplateImportRejectsUnknownRole(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
templates:
  - name: Broken
    steps:
      - name: Boss
        role: MANAGER
`), 0o600))

	_, err := runCLI(t, tempDSN(t), "template", "import", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Boss")
}

// createWorkflow stores a workflow with a callback directly through the
// workflow service, as the API would.
func createWorkflow(t *testing.T, dsn, callback string) string {
	t.Helper()
	ctx := context.Background()
	db := openDB(t, dsn)
	defer db.Close()

	clk := clock.System{}
	recorder := &systemlog.MemoryRecorder{}
	ledger := audit.NewLedger(db, audit.NewAuditRepository(db), clk)
	hooks := webhook.NewWebhookService(webhook.NewDeliveryRepository(db), http.DefaultClient,
		&config.Config{}, clk, recorder, nil, zap.NewNop())
	svc := workflow.NewWorkflowService(db, workflow.NewWorkflowRepository(db), template.NewTemplateRepository(db),
		ledger, hooks, recorder, nil, nil, clk, zap.NewNop())

	wf, err := svc.CreateWorkflow(ctx,
		models.Actor{ID: "req-1", Email: "req@example.com", Role: models.RoleRequester},
		workflow.CreateWorkflowInput{Title: "Rotate keys", CallbackURL: &callback})
	require.NoError(t, err)
	return wf.ID
}

func TestAuditShowAndVerify(t *testing.T) {
	dsn := tempDSN(t)
	id := createWorkflow(t, dsn, "http://127.0.0.1:1/hook")

	out, err := runCLI(t, dsn, "audit", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE")
	assert.Contains(t, out, "- -> DRAFT")
	assert.Contains(t, out, "req@example.com (REQUESTER)")

	out, err = runCLI(t, dsn, "audit", "verify", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Audit chain valid (1 entries)")

	xlsx := filepath.Join(t.TempDir(), "trail.xlsx")
	_, err = runCLI(t, dsn, "audit", "export", id, "-o", xlsx)
	require.NoError(t, err)
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = runCLI(t, dsn, "audit", "show", "missing")
	require.Error(t, err)
}

func TestRunDeliversPendingCallbacks(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	dsn := tempDSN(t)
	createWorkflow(t, dsn, srv.URL)

	out, err := runCLI(t, dsn, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "1 claimed, 1 delivered")
	assert.Contains(t, out, "SLA: 0 workflow(s) escalated")
	assert.EqualValues(t, 1, hits.Load())

	out, err = runCLI(t, dsn, "deliveries", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Rotate keys")
	assert.Contains(t, out, "SUCCESS")
	assert.Contains(t, out, "workflow.create")
	assert.Contains(t, out, "Total 1, pending 0, succeeded 1, failures 0 (0.0%)")

	// nothing left to deliver
	out, err = runCLI(t, dsn, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "0 claimed")
	assert.EqualValues(t, 1, hits.Load())
}
