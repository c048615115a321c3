package workflow

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go-regula/internal/common/apperr"
	"go-regula/internal/common/clock"
	"go-regula/internal/common/models"
	"go-regula/internal/database"
	"go-regula/internal/features/audit"
	"go-regula/internal/features/notification"
	"go-regula/internal/features/systemlog"
	"go-regula/internal/features/template"
	"go-regula/internal/features/webhook"
	"go-regula/internal/telemetry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WorkflowService interface {
	CreateWorkflow(ctx context.Context, actor models.Actor, input CreateWorkflowInput) (*Workflow, error)
	ListWorkflows(ctx context.Context, actor models.Actor) ([]Workflow, error)
	GetWorkflow(ctx context.Context, actor models.Actor, id string) (*WorkflowDetail, error)
	// Transition applies a role-gated action. The state change, its audit
	// entry and any callback delivery commit together or not at all.
	Transition(ctx context.Context, id string, actor models.Actor, action Action, comment *string) (*Workflow, error)
	// AuthorizeView returns the workflow title when actor may read it.
	AuthorizeView(ctx context.Context, actor models.Actor, id string) (string, error)
}

type WorkflowServiceImpl struct {
	DB            *database.Database
	Repo          WorkflowRepository
	Templates     template.TemplateRepository
	Ledger        audit.Ledger
	Webhooks      webhook.WebhookService
	Recorder      systemlog.Recorder
	Notifications notification.NotificationService
	Metrics       *telemetry.Metrics
	Clock         clock.Clock
	Logger        *zap.Logger
}

func NewWorkflowService(
	db *database.Database,
	repo WorkflowRepository,
	templates template.TemplateRepository,
	ledger audit.Ledger,
	webhooks webhook.WebhookService,
	recorder systemlog.Recorder,
	notifications notification.NotificationService,
	metrics *telemetry.Metrics,
	clk clock.Clock,
	logger *zap.Logger,
) WorkflowService {
	return &WorkflowServiceImpl{
		DB:            db,
		Repo:          repo,
		Templates:     templates,
		Ledger:        ledger,
		Webhooks:      webhooks,
		Recorder:      recorder,
		Notifications: notifications,
		Metrics:       metrics,
		Clock:         clk,
		Logger:        logger,
	}
}

func (s *WorkflowServiceImpl) CreateWorkflow(ctx context.Context, actor models.Actor, input CreateWorkflowInput) (*Workflow, error) {
	if actor.Role != models.RoleRequester {
		return nil, apperr.Forbidden("only %s may create workflows", models.RoleRequester)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	callback, err := normalizeCallbackURL(input.CallbackURL)
	if err != nil {
		return nil, err
	}
	var templateID *string
	if input.TemplateID != nil && strings.TrimSpace(*input.TemplateID) != "" {
		id := strings.TrimSpace(*input.TemplateID)
		templateID = &id
	}

	now := s.Clock.Now()
	wf := &Workflow{
		ID:               uuid.NewString(),
		Title:            title,
		Description:      strings.TrimSpace(input.Description),
		Status:           StatusDraft,
		CurrentStepIndex: 0,
		StepStartTime:    now,
		RequesterID:      actor.ID,
		TemplateID:       templateID,
		CallbackURL:      callback,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if wf.TemplateID != nil {
			tpl, err := s.Templates.GetByID(ctx, *wf.TemplateID)
			if err != nil {
				return err
			}
			if tpl == nil {
				return apperr.Validation("template %s does not exist", *wf.TemplateID)
			}
		}
		if err := s.Repo.Create(ctx, wf); err != nil {
			return err
		}
		if _, err := s.Ledger.Append(ctx, audit.Entry{
			WorkflowID:  wf.ID,
			Action:      audit.ActionCreate,
			ToStatus:    string(StatusDraft),
			PerformedBy: actor,
			Timestamp:   now,
		}); err != nil {
			return err
		}
		return s.enqueueCallback(ctx, wf, EventName(string(audit.ActionCreate)), now)
	})
	if err != nil {
		return nil, err
	}

	s.Recorder.Record(systemlog.NewEvent(systemlog.EventWorkflowCreate, actor, wf.ID, systemlog.StatusSuccess,
		fmt.Sprintf("Workflow '%s' created.", wf.Title), nil))
	s.Logger.Info("Workflow created", zap.String("workflowId", wf.ID), zap.String("requesterId", wf.RequesterID))
	return wf, nil
}

// ListWorkflows returns every workflow to reviewers, executors and admins,
// and only their own to requesters.
func (s *WorkflowServiceImpl) ListWorkflows(ctx context.Context, actor models.Actor) ([]Workflow, error) {
	switch actor.Role {
	case models.RoleReviewer, models.RoleExecutor, models.RoleAdmin:
		return s.Repo.List(ctx)
	case models.RoleRequester:
		return s.Repo.ListByRequester(ctx, actor.ID)
	default:
		return nil, apperr.Forbidden("role %s may not list workflows", actor.Role)
	}
}

func (s *WorkflowServiceImpl) GetWorkflow(ctx context.Context, actor models.Actor, id string) (*WorkflowDetail, error) {
	wf, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	detail := &WorkflowDetail{Workflow: *wf}
	if wf.TemplateID != nil {
		if detail.Template, err = s.Templates.GetByID(ctx, *wf.TemplateID); err != nil {
			return nil, err
		}
	}
	if detail.AuditLog, err = s.Ledger.List(ctx, wf.ID); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *WorkflowServiceImpl) AuthorizeView(ctx context.Context, actor models.Actor, id string) (string, error) {
	wf, err := s.load(ctx, actor, id)
	if err != nil {
		return "", err
	}
	return wf.Title, nil
}

func (s *WorkflowServiceImpl) load(ctx context.Context, actor models.Actor, id string) (*Workflow, error) {
	wf, err := s.Repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, apperr.NotFound("workflow %s not found", id)
	}
	if actor.Role == models.RoleRequester && wf.RequesterID != actor.ID {
		return nil, apperr.Forbidden("requesters may only view their own workflows")
	}
	return wf, nil
}

func (s *WorkflowServiceImpl) Transition(ctx context.Context, id string, actor models.Actor, action Action, comment *string) (*Workflow, error) {
	var (
		updated *Workflow
		from    Status
	)

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		wf, err := s.Repo.GetByID(ctx, id, true)
		if err != nil {
			return err
		}
		if wf == nil {
			return apperr.NotFound("workflow %s not found", id)
		}

		var tpl *template.WorkflowTemplate
		if wf.TemplateID != nil {
			if tpl, err = s.Templates.GetByID(ctx, *wf.TemplateID); err != nil {
				return err
			}
			if tpl == nil {
				return fmt.Errorf("template %s of workflow %s is missing", *wf.TemplateID, wf.ID)
			}
		}

		p := policyFor(tpl)
		next, err := p.Decide(wf, action, actor)
		if err != nil {
			return err
		}
		if err := ValidateTransition(wf.Status, next.To, p.Path()); err != nil {
			return err
		}
		if action.RequiresComment() && (comment == nil || strings.TrimSpace(*comment) == "") {
			return apperr.Validation("a comment is mandatory for %s", action)
		}

		from = wf.Status
		entry := audit.Entry{
			WorkflowID:  wf.ID,
			Action:      audit.Action(action),
			FromStatus:  stringPtr(string(from)),
			ToStatus:    string(next.To),
			PerformedBy: actor,
			Comment:     nonBlank(comment),
		}
		if p.Path() == PathTemplate {
			step := wf.CurrentStepIndex
			entry.StepIndex = &step
		}

		now := s.Clock.Now()
		wf.Status = next.To
		wf.CurrentStepIndex = next.StepIndex
		wf.StepStartTime = now
		wf.IsEscalated = false
		wf.UpdatedAt = now
		if err := s.Repo.UpdateState(ctx, wf); err != nil {
			return err
		}

		entry.Timestamp = now
		if _, err := s.Ledger.Append(ctx, entry); err != nil {
			return err
		}
		if err := s.enqueueCallback(ctx, wf, action.EventName(), now); err != nil {
			return err
		}
		updated = wf
		return nil
	})
	if err != nil {
		s.Logger.Debug("Transition refused",
			zap.String("workflowId", id),
			zap.String("action", string(action)),
			zap.String("actorId", actor.ID),
			zap.Error(err))
		return nil, err
	}

	s.Metrics.Transition(ctx, string(action))
	s.afterTransition(updated, from, actor, action, comment)
	return updated, nil
}

// afterTransition runs once the transaction has committed. Nothing here can
// fail the transition.
func (s *WorkflowServiceImpl) afterTransition(wf *Workflow, from Status, actor models.Actor, action Action, comment *string) {
	meta := map[string]any{
		"fromStatus": string(from),
		"toStatus":   string(wf.Status),
		"stepIndex":  wf.CurrentStepIndex,
	}
	if c := nonBlank(comment); c != nil {
		meta["comment"] = *c
	}
	s.Recorder.Record(systemlog.NewEvent("WORKFLOW_"+string(action), actor, wf.ID, systemlog.StatusSuccess,
		fmt.Sprintf("Workflow '%s' was %s to %s", wf.Title, pastTense(action), wf.Status), meta))

	if s.Notifications == nil {
		return
	}
	verb := pastTense(action)
	subject := notification.WorkflowSubject(titleCase(verb), wf.Title)
	body := notification.BuildWorkflowEmail(verb, wf.Title, string(wf.Status), wf.UpdatedAt)
	switch action {
	case ActionSubmit:
		s.Notifications.NotifyRole(models.RoleReviewer, subject, body)
	case ActionApprove:
		s.Notifications.NotifyRole(models.RoleExecutor, subject, body)
	case ActionReject, ActionExecute:
		s.Notifications.NotifyUser(wf.RequesterID, subject, body)
	}
}

func (s *WorkflowServiceImpl) enqueueCallback(ctx context.Context, wf *Workflow, event string, now time.Time) error {
	if !wf.HasCallback() {
		return nil
	}
	_, err := s.Webhooks.Enqueue(ctx, wf.ID, *wf.CallbackURL, event, webhook.NewPayload(event, wf.Snapshot(), now))
	return err
}

func normalizeCallbackURL(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Validation("callbackUrl must be an absolute http(s) URL")
	}
	return &s, nil
}

func pastTense(a Action) string {
	switch a {
	case ActionSubmit:
		return "SUBMITTED"
	case ActionApprove:
		return "APPROVED"
	case ActionReject:
		return "REJECTED"
	case ActionExecute:
		return "EXECUTED"
	}
	return string(a)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return s[:1] + strings.ToLower(s[1:])
}

func stringPtr(s string) *string { return &s }

func nonBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
