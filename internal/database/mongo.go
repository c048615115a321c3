package database

import (
	"context"
	"time"

	"go-regula/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// MongodbDB is the optional document store used as a system log sink.
// DB is nil when MONGO_URI is not configured.
type MongodbDB struct {
	DB *mongo.Database
}

func (m *MongodbDB) Enabled() bool {
	return m != nil && m.DB != nil
}

// NewMongoDatabase connects to MongoDB when configured, with lifecycle management.
func NewMongoDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*MongodbDB, error) {
	if cfg.MongoURI == "" {
		return &MongodbDB{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info("Connected to MongoDB", zap.String("database", cfg.MongoDBName))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Disconnecting from MongoDB...")
			return client.Disconnect(ctx)
		},
	})

	return &MongodbDB{DB: client.Database(cfg.MongoDBName)}, nil
}
