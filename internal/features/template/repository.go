package template

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-regula/internal/database"
)

type TemplateRepository interface {
	Create(ctx context.Context, tpl *WorkflowTemplate) error
	GetByID(ctx context.Context, id string) (*WorkflowTemplate, error)
	GetByName(ctx context.Context, name string) (*WorkflowTemplate, error)
	List(ctx context.Context) ([]WorkflowTemplate, error)
}

type TemplateRepositoryImpl struct {
	DB *database.Database
}

func NewTemplateRepository(db *database.Database) TemplateRepository {
	return &TemplateRepositoryImpl{DB: db}
}

const templateColumns = "id, name, steps, created_at"

func (r *TemplateRepositoryImpl) Create(ctx context.Context, tpl *WorkflowTemplate) error {
	steps, err := encodeSteps(tpl.Steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	_, err = r.DB.Exec(ctx,
		`INSERT INTO workflow_templates (id, name, steps, created_at) VALUES (?, ?, ?, ?)`,
		tpl.ID, tpl.Name, steps, database.FormatTime(tpl.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when no template matches.
func (r *TemplateRepositoryImpl) GetByID(ctx context.Context, id string) (*WorkflowTemplate, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+templateColumns+` FROM workflow_templates WHERE id = ?`, id)
	tpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return tpl, nil
}

func (r *TemplateRepositoryImpl) GetByName(ctx context.Context, name string) (*WorkflowTemplate, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+templateColumns+` FROM workflow_templates WHERE name = ?`, name)
	tpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template by name: %w", err)
	}
	return tpl, nil
}

func (r *TemplateRepositoryImpl) List(ctx context.Context) ([]WorkflowTemplate, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+templateColumns+` FROM workflow_templates ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []WorkflowTemplate{}
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *tpl)
	}
	return templates, rows.Err()
}

func scanTemplate(row database.RowScanner) (*WorkflowTemplate, error) {
	var (
		tpl        WorkflowTemplate
		stepsRaw   string
		createdRaw string
	)
	if err := row.Scan(&tpl.ID, &tpl.Name, &stepsRaw, &createdRaw); err != nil {
		return nil, err
	}
	steps, err := ParseSteps([]byte(stepsRaw))
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", tpl.ID, err)
	}
	tpl.Steps = steps
	if tpl.CreatedAt, err = database.ParseTime(createdRaw); err != nil {
		return nil, err
	}
	return &tpl, nil
}
