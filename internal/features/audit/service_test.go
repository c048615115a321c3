package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go-regula/internal/common/models"
	"go-regula/internal/database"
	"go-regula/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var reviewer = models.Actor{ID: "rev-1", Email: "rev@example.com", Role: models.RoleReviewer}

func setup(t *testing.T) (*database.Database, Ledger) {
	t.Helper()
	db := testsupport.MustOpenDB(t)
	now := database.FormatTime(testsupport.Epoch)
	_, err := db.Exec(context.Background(),
		`INSERT INTO workflows (id, title, status, step_start_time, is_escalated, requester_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, "wf-1", "Rotate keys", "DRAFT", now, false, "req-1", now, now)
	require.NoError(t, err)
	return db, NewLedger(db, NewAuditRepository(db), testsupport.NewClock())
}

func strPtr(s string) *string { return &s }

func appendTrail(t *testing.T, ledger Ledger) []Entry {
	t.Helper()
	ctx := context.Background()
	var out []Entry
	for _, e := range []Entry{
		{WorkflowID: "wf-1", Action: ActionCreate, ToStatus: "DRAFT", PerformedBy: models.Actor{ID: "req-1", Email: "req@example.com", Role: models.RoleRequester}},
		{WorkflowID: "wf-1", Action: ActionSubmit, FromStatus: strPtr("DRAFT"), ToStatus: "SUBMITTED", PerformedBy: models.Actor{ID: "req-1", Email: "req@example.com", Role: models.RoleRequester}},
		{WorkflowID: "wf-1", Action: ActionApprove, FromStatus: strPtr("SUBMITTED"), ToStatus: "APPROVED", PerformedBy: reviewer, Comment: strPtr("looks good")},
	} {
		appended, err := ledger.Append(ctx, e)
		require.NoError(t, err)
		out = append(out, appended)
	}
	return out
}

func TestAppendChainsEntries(t *testing.T) {
	_, ledger := setup(t)
	entries := appendTrail(t, ledger)

	assert.Equal(t, GenesisHash, entries[0].PrevHash)
	assert.Equal(t, entries[0].Hash, entries[1].PrevHash)
	assert.Equal(t, entries[1].Hash, entries[2].PrevHash)
	assert.Less(t, entries[0].Seq, entries[1].Seq)

	result, err := ledger.Verify(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.True(t, result.Valid, result.Error)
	assert.Equal(t, 3, result.Entries)
}

func TestListOrdersByTimestampThenStorage(t *testing.T) {
	_, ledger := setup(t)
	appendTrail(t, ledger)

	list, err := ledger.List(context.Background(), "wf-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []Action{ActionCreate, ActionSubmit, ActionApprove},
		[]Action{list[0].Action, list[1].Action, list[2].Action})
	assert.Equal(t, reviewer, list[2].PerformedBy)
	require.NotNil(t, list[2].Comment)
	assert.Equal(t, "looks good", *list[2].Comment)
}

func TestVerifyDetectsTampering(t *testing.T) {
	db, ledger := setup(t)
	entries := appendTrail(t, ledger)
	ctx := context.Background()

	_, err := db.Exec(ctx, "DROP TRIGGER audit_log_entries_no_update")
	require.NoError(t, err)
	_, err = db.Exec(ctx, "UPDATE audit_log_entries SET comment = ? WHERE id = ?", "rubber stamp", entries[2].ID)
	require.NoError(t, err)

	result, err := ledger.Verify(ctx, "wf-1")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, entries[2].ID, result.BrokenID)
	assert.Contains(t, result.Error, "content hash mismatch")
}

func TestAppendJoinsCallerTransaction(t *testing.T) {
	db, ledger := setup(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(ctx context.Context) error {
		_, err := ledger.Append(ctx, Entry{WorkflowID: "wf-1", Action: ActionCreate, ToStatus: "DRAFT", PerformedBy: reviewer})
		require.NoError(t, err)
		return errors.New("rollback")
	})
	require.Error(t, err)

	list, err := ledger.List(ctx, "wf-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAppendUsesClockWhenTimestampUnset(t *testing.T) {
	_, ledger := setup(t)
	e, err := ledger.Append(context.Background(), Entry{WorkflowID: "wf-1", Action: ActionCreate, ToStatus: "DRAFT", PerformedBy: reviewer})
	require.NoError(t, err)
	assert.True(t, e.Timestamp.Equal(testsupport.Epoch))

	explicit := testsupport.Epoch.Add(time.Minute)
	e, err = ledger.Append(context.Background(), Entry{WorkflowID: "wf-1", Action: ActionSubmit, ToStatus: "SUBMITTED", PerformedBy: reviewer, Timestamp: explicit})
	require.NoError(t, err)
	assert.True(t, e.Timestamp.Equal(explicit))
}

func TestExportWritesWorkbook(t *testing.T) {
	_, ledger := setup(t)
	appendTrail(t, ledger)

	var buf bytes.Buffer
	require.NoError(t, ledger.Export(context.Background(), "wf-1", &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Action", rows[0][1])
	assert.Equal(t, "APPROVE", rows[3][1])
	assert.Equal(t, "looks good", rows[3][7])
}
