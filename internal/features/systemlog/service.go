package systemlog

import (
	"context"

	"go-regula/internal/database"

	"go.uber.org/zap"
)

type SystemLogService interface {
	Search(ctx context.Context, q Query) (Page, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]Event, error)
}

type SystemLogServiceImpl struct {
	Repo SystemLogRepository
}

func NewSystemLogService(repo SystemLogRepository) SystemLogService {
	return &SystemLogServiceImpl{Repo: repo}
}

func (s *SystemLogServiceImpl) Search(ctx context.Context, q Query) (Page, error) {
	return s.Repo.Search(ctx, q)
}

func (s *SystemLogServiceImpl) ListByWorkflow(ctx context.Context, workflowID string) ([]Event, error) {
	return s.Repo.ListByWorkflow(ctx, workflowID)
}

// NewSystemLogRepository picks the MongoDB sink when one is configured and
// the relational store otherwise.
func NewSystemLogRepository(db *database.Database, mongodb *database.MongodbDB, logger *zap.Logger) SystemLogRepository {
	if mongodb.Enabled() {
		repo := NewMongoRepository(mongodb)
		go func() {
			if err := repo.EnsureIndexes(context.Background()); err != nil {
				logger.Warn("Failed to ensure system log indexes", zap.Error(err))
			}
		}()
		logger.Info("System log sink: MongoDB")
		return repo
	}
	return NewSQLRepository(db)
}
