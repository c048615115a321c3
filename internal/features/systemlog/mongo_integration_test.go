//go:build integration

package systemlog

import (
	"context"
	"testing"
	"time"

	"go-regula/internal/common/models"
	"go-regula/internal/database"
	"go-regula/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func startMongo(t *testing.T) *MongoRepository {
	t.Helper()
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(context.Background()); err != nil {
			t.Errorf("terminate container: %v", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(connectCtx, nil))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	repo := NewMongoRepository(&database.MongodbDB{DB: client.Database("regula_test")})
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func TestMongoRepository(t *testing.T) {
	repo := startMongo(t)
	seedEvents(t, repo)
	ctx := context.Background()

	t.Run("filters by event type newest first", func(t *testing.T) {
		page, err := repo.Search(ctx, Query{EventType: EventWorkflowApprove})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
		assert.Equal(t, 1, page.TotalPages)
		require.Len(t, page.Logs, 2)
		assert.Equal(t, "c", page.Logs[0].ID)
		assert.Equal(t, "ok", page.Logs[1].Metadata["comment"])
	})

	t.Run("filters by actor role", func(t *testing.T) {
		page, err := repo.Search(ctx, Query{ActorRole: "SYSTEM"})
		require.NoError(t, err)
		require.Len(t, page.Logs, 1)
		assert.Equal(t, StatusFailure, page.Logs[0].Status)
		assert.Equal(t, EventSLABreach, page.Logs[0].EventType)
	})

	t.Run("paginates", func(t *testing.T) {
		page, err := repo.Search(ctx, Query{Page: 2, Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		require.Len(t, page.Logs, 1)
		assert.Equal(t, "a", page.Logs[0].ID)
	})

	t.Run("filters by time range", func(t *testing.T) {
		from := testsupport.Epoch.Add(30 * time.Second)
		to := testsupport.Epoch.Add(2 * time.Minute)
		page, err := repo.Search(ctx, Query{From: &from, To: &to})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("lists a workflow's events", func(t *testing.T) {
		events, err := repo.ListByWorkflow(ctx, "wf-2")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, EventSLABreach, events[0].EventType)
		require.NotNil(t, events[0].ActorEmail)
		assert.Equal(t, "SYSTEM", *events[0].ActorEmail)
		require.NotNil(t, events[0].WorkflowID)
		assert.Equal(t, "wf-2", *events[0].WorkflowID)

		events, err = repo.ListByWorkflow(ctx, "wf-missing")
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("rejects a duplicate id", func(t *testing.T) {
		dup := NewEvent(EventWorkflowCreate, models.Actor{Email: "req@example.com", Role: models.RoleRequester}, "wf-3", StatusSuccess, "again", nil)
		dup.ID = "a"
		dup.Timestamp = testsupport.Epoch
		assert.True(t, mongo.IsDuplicateKeyError(repo.Insert(ctx, dup)))
	})
}
