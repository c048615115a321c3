package systemlog

import (
	"context"
	"fmt"

	"go-regula/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository stores system log events in the "system_logs" collection.
type MongoRepository struct {
	Collection *mongo.Collection
}

func NewMongoRepository(mongodb *database.MongodbDB) *MongoRepository {
	return &MongoRepository{
		Collection: mongodb.DB.Collection("system_logs"),
	}
}

func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "workflow_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	return err
}

func (r *MongoRepository) Insert(ctx context.Context, e Event) error {
	_, err := r.Collection.InsertOne(ctx, e)
	return err
}

func (r *MongoRepository) Search(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()
	filter := mongoFilter(q)

	total, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("count system logs: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit))
	logs, err := r.find(ctx, filter, opts)
	if err != nil {
		return Page{}, err
	}
	return newPage(logs, int(total), q), nil
}

func (r *MongoRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	return r.find(ctx, bson.M{"workflow_id": workflowID}, opts)
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Event, error) {
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find system logs: %w", err)
	}
	defer cursor.Close(ctx)

	events := []Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode system logs: %w", err)
	}
	return events, nil
}

func mongoFilter(q Query) bson.M {
	filter := bson.M{}
	if q.EventType != "" {
		filter["event_type"] = q.EventType
	}
	if q.WorkflowID != "" {
		filter["workflow_id"] = q.WorkflowID
	}
	if q.ActorRole != "" {
		filter["actor_role"] = q.ActorRole
	}
	if q.From != nil || q.To != nil {
		ts := bson.M{}
		if q.From != nil {
			ts["$gte"] = *q.From
		}
		if q.To != nil {
			ts["$lte"] = *q.To
		}
		filter["timestamp"] = ts
	}
	return filter
}
