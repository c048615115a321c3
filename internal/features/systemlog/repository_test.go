package systemlog

import (
	"context"
	"testing"
	"time"

	"go-regula/internal/common/models"
	"go-regula/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEvents(t *testing.T, repo SystemLogRepository) {
	t.Helper()
	ctx := context.Background()
	reviewer := models.Actor{Email: "rev@example.com", Role: models.RoleReviewer}
	for i, e := range []Event{
		NewEvent(EventWorkflowCreate, models.Actor{Email: "req@example.com", Role: models.RoleRequester}, "wf-1", StatusSuccess, "created", nil),
		NewEvent(EventWorkflowApprove, reviewer, "wf-1", StatusSuccess, "approved", map[string]any{"comment": "ok"}),
		NewEvent(EventWorkflowApprove, reviewer, "wf-2", StatusSuccess, "approved", nil),
		NewEvent(EventSLABreach, models.SystemActor, "wf-2", StatusFailure, "breached", nil),
	} {
		e.ID = string(rune('a' + i))
		e.Timestamp = testsupport.Epoch.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Insert(ctx, e))
	}
}

func TestSearchFiltersAndPaginates(t *testing.T) {
	repo := NewSQLRepository(testsupport.MustOpenDB(t))
	seedEvents(t, repo)
	ctx := context.Background()

	page, err := repo.Search(ctx, Query{EventType: EventWorkflowApprove})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, "c", page.Logs[0].ID, "newest first")
	assert.Equal(t, "ok", page.Logs[1].Metadata["comment"])

	page, err = repo.Search(ctx, Query{ActorRole: "SYSTEM"})
	require.NoError(t, err)
	require.Len(t, page.Logs, 1)
	assert.Equal(t, StatusFailure, page.Logs[0].Status)

	page, err = repo.Search(ctx, Query{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Logs, 1)
	assert.Equal(t, "a", page.Logs[0].ID)

	from := testsupport.Epoch.Add(30 * time.Second)
	to := testsupport.Epoch.Add(2 * time.Minute)
	page, err = repo.Search(ctx, Query{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestListByWorkflowNewestFirst(t *testing.T) {
	repo := NewSQLRepository(testsupport.MustOpenDB(t))
	seedEvents(t, repo)

	events, err := repo.ListByWorkflow(context.Background(), "wf-2")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventSLABreach, events[0].EventType)
	require.NotNil(t, events[0].ActorEmail)
	assert.Equal(t, "SYSTEM", *events[0].ActorEmail)
}

func TestQueryNormalize(t *testing.T) {
	q := Query{Page: 0, Limit: 1000}.Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, MaxPageSize, q.Limit)
	assert.Equal(t, 0, q.Offset())
}
