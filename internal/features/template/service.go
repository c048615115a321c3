package template

import (
	"context"
	"strings"

	"go-regula/internal/common/apperr"
	"go-regula/internal/common/clock"
	"go-regula/internal/common/models"
	"go-regula/internal/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TemplateService interface {
	CreateTemplate(ctx context.Context, actor models.Actor, input CreateTemplateInput) (*WorkflowTemplate, error)
	GetTemplate(ctx context.Context, id string) (*WorkflowTemplate, error)
	ListTemplates(ctx context.Context) ([]WorkflowTemplate, error)
}

type TemplateServiceImpl struct {
	DB     *database.Database
	Repo   TemplateRepository
	Clock  clock.Clock
	Logger *zap.Logger
}

func NewTemplateService(db *database.Database, repo TemplateRepository, clk clock.Clock, logger *zap.Logger) TemplateService {
	return &TemplateServiceImpl{
		DB:     db,
		Repo:   repo,
		Clock:  clk,
		Logger: logger,
	}
}

// CreateTemplate stores a validated template. Only admins curate templates
// and names are unique.
func (s *TemplateServiceImpl) CreateTemplate(ctx context.Context, actor models.Actor, input CreateTemplateInput) (*WorkflowTemplate, error) {
	if actor.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("only ADMIN may create templates")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperr.Validation("template name is required")
	}
	if err := ValidateSteps(input.Steps); err != nil {
		return nil, err
	}

	steps := make([]Step, len(input.Steps))
	for i, st := range input.Steps {
		st.Name = strings.TrimSpace(st.Name)
		steps[i] = st
	}

	tpl := &WorkflowTemplate{
		ID:        uuid.NewString(),
		Name:      name,
		Steps:     steps,
		CreatedAt: s.Clock.Now(),
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.Repo.GetByName(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("template %q already exists", name)
		}
		return s.Repo.Create(ctx, tpl)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Template created", zap.String("templateId", tpl.ID), zap.String("name", tpl.Name), zap.Int("steps", len(tpl.Steps)))
	return tpl, nil
}

func (s *TemplateServiceImpl) GetTemplate(ctx context.Context, id string) (*WorkflowTemplate, error) {
	tpl, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, apperr.NotFound("template %s not found", id)
	}
	return tpl, nil
}

func (s *TemplateServiceImpl) ListTemplates(ctx context.Context) ([]WorkflowTemplate, error) {
	return s.Repo.List(ctx)
}
