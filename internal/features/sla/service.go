package sla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-regula/internal/common/clock"
	"go-regula/internal/common/models"
	"go-regula/internal/database"
	"go-regula/internal/features/audit"
	"go-regula/internal/features/notification"
	"go-regula/internal/features/systemlog"
	"go-regula/internal/features/template"
	"go-regula/internal/features/webhook"
	"go-regula/internal/features/workflow"
	"go-regula/internal/telemetry"

	"go.uber.org/zap"
)

// EscalationEvent is the callback event sent when a step deadline passes.
const EscalationEvent = "workflow.escalation"

// SLAService flags submitted workflows whose current step overran its deadline.
type SLAService interface {
	// CheckDeadlines escalates every breached workflow and returns how many
	// were escalated. A workflow that fails to escalate does not stop the scan.
	CheckDeadlines(ctx context.Context) (int, error)
}

type SLAServiceImpl struct {
	DB            *database.Database
	Workflows     workflow.WorkflowRepository
	Templates     template.TemplateRepository
	Ledger        audit.Ledger
	Webhooks      webhook.WebhookService
	Recorder      systemlog.Recorder
	Notifications notification.NotificationService
	Metrics       *telemetry.Metrics
	Clock         clock.Clock
	Logger        *zap.Logger
}

func NewSLAService(
	db *database.Database,
	workflows workflow.WorkflowRepository,
	templates template.TemplateRepository,
	ledger audit.Ledger,
	webhooks webhook.WebhookService,
	recorder systemlog.Recorder,
	notifications notification.NotificationService,
	metrics *telemetry.Metrics,
	clk clock.Clock,
	logger *zap.Logger,
) SLAService {
	return &SLAServiceImpl{
		DB:            db,
		Workflows:     workflows,
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

// breach describes one overdue step.
type breach struct {
	wf       workflow.Workflow
	step     template.Step
	deadline time.Time
}

func (s *SLAServiceImpl) CheckDeadlines(ctx context.Context) (int, error) {
	candidates, err := s.Workflows.ListEscalationCandidates(ctx)
	if err != nil {
		return 0, err
	}

	now := s.Clock.Now()
	templates := map[string]*template.WorkflowTemplate{}
	broken := map[string]error{}
	var (
		breaches []breach
		errs     []error
	)
	for _, wf := range candidates {
		id := *wf.TemplateID
		if _, seen := broken[id]; seen {
			continue
		}
		tpl, ok := templates[id]
		if !ok {
			tpl, err = s.Templates.GetByID(ctx, id)
			if err == nil && tpl == nil {
				err = fmt.Errorf("template %s not found", id)
			}
			if err != nil {
				// a bad template only blocks the workflows that use it
				s.Logger.Error("Cannot load template for SLA check",
					zap.String("templateId", id), zap.String("workflowId", wf.ID), zap.Error(err))
				broken[id] = err
				errs = append(errs, err)
				continue
			}
			templates[id] = tpl
		}
		step, ok := tpl.Step(wf.CurrentStepIndex)
		if !ok {
			s.Logger.Warn("Workflow step not defined by its template",
				zap.String("workflowId", wf.ID), zap.Int("step", wf.CurrentStepIndex))
			continue
		}
		deadline := wf.StepStartTime.Add(step.SLA())
		if now.After(deadline) {
			breaches = append(breaches, breach{wf: wf, step: step, deadline: deadline})
		}
	}

	escalated := 0
	for _, b := range breaches {
		ok, err := s.escalate(ctx, b, now)
		if err != nil {
			s.Logger.Error("Failed to escalate workflow", zap.String("workflowId", b.wf.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if !ok {
			s.Logger.Debug("Workflow changed before escalation, skipping", zap.String("workflowId", b.wf.ID))
			continue
		}
		escalated++
		s.Metrics.Escalation(ctx)
		s.afterEscalation(b)
	}
	return escalated, errors.Join(errs...)
}

// escalate flags the workflow and appends the ESCALATION entry in one
// transaction. It reports false when the workflow moved on since it was read.
func (s *SLAServiceImpl) escalate(ctx context.Context, b breach, now time.Time) (bool, error) {
	flagged := false
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.Workflows.MarkEscalated(ctx, &b.wf, now)
		if err != nil || !ok {
			return err
		}
		flagged = true

		status := string(b.wf.Status)
		step := b.wf.CurrentStepIndex
		msg := breachComment(b)
		if _, err := s.Ledger.Append(ctx, audit.Entry{
			WorkflowID:  b.wf.ID,
			Action:      audit.ActionEscalation,
			FromStatus:  &status,
			ToStatus:    status,
			PerformedBy: models.SystemActor,
			Comment:     &msg,
			StepIndex:   &step,
			Timestamp:   now,
		}); err != nil {
			return err
		}

		if !b.wf.HasCallback() {
			return nil
		}
		wf := b.wf
		wf.IsEscalated = true
		wf.UpdatedAt = now
		_, err = s.Webhooks.Enqueue(ctx, wf.ID, *wf.CallbackURL, EscalationEvent,
			webhook.NewPayload(EscalationEvent, wf.Snapshot(), now))
		return err
	})
	if err != nil {
		return false, err
	}
	return flagged, nil
}

func (s *SLAServiceImpl) afterEscalation(b breach) {
	deadline := b.deadline.UTC().Format(time.RFC3339)
	s.Recorder.Record(systemlog.NewEvent(systemlog.EventSLABreach, models.SystemActor, b.wf.ID, systemlog.StatusFailure,
		fmt.Sprintf("SLA breached for step '%s'.", b.step.Name),
		map[string]any{"step": b.step.Name, "stepIndex": b.wf.CurrentStepIndex, "deadline": deadline}))

	if s.Notifications == nil {
		return
	}
	body := fmt.Sprintf("The workflow '%s' is now ESCALATED.\nStep: %s\nDeadline: %s", b.wf.Title, b.step.Name, deadline)
	s.Notifications.NotifyRole(b.step.RequiredRole, notification.BreachSubject(b.wf.Title), body)
}

func breachComment(b breach) string {
	return fmt.Sprintf("SLA breached for step '%s'. Deadline was %s", b.step.Name, b.deadline.UTC().Format(time.RFC3339))
}
