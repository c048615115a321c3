package workflow

import (
	"go-regula/internal/common/apperr"
	"go-regula/internal/common/models"
	"go-regula/internal/features/template"
)

// decision is the state a policy proposes for an action.
type decision struct {
	To        Status
	StepIndex int
}

// policy decides the next state of a workflow for an action. Each workflow
// follows exactly one policy, chosen by whether it has a template.
type policy interface {
	Path() Path
	Decide(wf *Workflow, action Action, actor models.Actor) (decision, error)
}

func policyFor(tpl *template.WorkflowTemplate) policy {
	if tpl == nil {
		return legacyPolicy{}
	}
	return templatePolicy{tpl: tpl}
}

// legacyPolicy is the fixed REQUESTER -> REVIEWER -> EXECUTOR flow.
type legacyPolicy struct{}

func (legacyPolicy) Path() Path { return PathLegacy }

func (legacyPolicy) Decide(wf *Workflow, action Action, actor models.Actor) (decision, error) {
	next := decision{StepIndex: wf.CurrentStepIndex}
	switch action {
	case ActionSubmit:
		next.To = StatusSubmitted
		next.StepIndex = 0
		if actor.Role != models.RoleRequester || actor.ID != wf.RequesterID {
			return decision{}, apperr.Forbidden("only the requester may SUBMIT this workflow")
		}
	case ActionApprove, ActionReject:
		if action == ActionApprove {
			next.To = StatusApproved
		} else {
			next.To = StatusRejected
		}
		if actor.Role != models.RoleReviewer {
			return decision{}, apperr.Forbidden("%s requires role %s", action, models.RoleReviewer)
		}
	case ActionExecute:
		next.To = StatusExecuted
		if actor.Role != models.RoleExecutor {
			return decision{}, apperr.Forbidden("%s requires role %s", action, models.RoleExecutor)
		}
	default:
		return decision{}, apperr.Validation("invalid action %q", action)
	}
	return next, nil
}

// templatePolicy walks the template's steps. The current step's role gates
// APPROVE and REJECT.
type templatePolicy struct {
	tpl *template.WorkflowTemplate
}

func (templatePolicy) Path() Path { return PathTemplate }

func (p templatePolicy) Decide(wf *Workflow, action Action, actor models.Actor) (decision, error) {
	switch action {
	case ActionSubmit:
		if wf.Status != StatusDraft {
			return decision{}, apperr.Validation("can only SUBMIT from %s, workflow is %s", StatusDraft, wf.Status)
		}
		return decision{To: StatusSubmitted, StepIndex: 0}, nil

	case ActionApprove, ActionReject:
		if wf.Status != StatusSubmitted {
			return decision{}, apperr.Validation("can only %s a %s workflow, workflow is %s", action, StatusSubmitted, wf.Status)
		}
		step, ok := p.tpl.Step(wf.CurrentStepIndex)
		if !ok {
			return decision{}, apperr.Validation("step %d is not defined by template %q", wf.CurrentStepIndex, p.tpl.Name)
		}
		if actor.Role != step.RequiredRole {
			return decision{}, apperr.Forbidden("current step '%s' requires role %s", step.Name, step.RequiredRole)
		}
		if action == ActionReject {
			return decision{To: StatusRejected, StepIndex: wf.CurrentStepIndex}, nil
		}
		if p.tpl.IsFinalStep(wf.CurrentStepIndex) {
			return decision{To: StatusExecuted, StepIndex: wf.CurrentStepIndex}, nil
		}
		return decision{To: StatusSubmitted, StepIndex: wf.CurrentStepIndex + 1}, nil

	default:
		return decision{}, apperr.Validation("%s is not valid for a templated workflow", action)
	}
}
