package template

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"go-regula/internal/common/apperr"
	"go-regula/internal/common/models"
)

// DefaultSLA applies to steps that do not set slaHours.
const DefaultSLA = 24 * time.Hour

type Step struct {
	Name         string      `json:"name" yaml:"name"`
	RequiredRole models.Role `json:"role" yaml:"role"`
	SLAHours     float64     `json:"slaHours,omitempty" yaml:"slaHours,omitempty"`
}

// SLA is the time allowed for the step before the workflow escalates.
func (s Step) SLA() time.Duration {
	if s.SLAHours <= 0 {
		return DefaultSLA
	}
	return time.Duration(s.SLAHours * float64(time.Hour))
}

// WorkflowTemplate is immutable once created.
type WorkflowTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Steps     []Step    `json:"steps"`
	CreatedAt time.Time `json:"createdAt"`
}

// Step returns the step at index i, or false when i is out of range.
func (t *WorkflowTemplate) Step(i int) (Step, bool) {
	if t == nil || i < 0 || i >= len(t.Steps) {
		return Step{}, false
	}
	return t.Steps[i], true
}

func (t *WorkflowTemplate) IsFinalStep(i int) bool {
	return t != nil && i == len(t.Steps)-1
}

type CreateTemplateInput struct {
	Name  string `json:"name" yaml:"name"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// ParseSteps decodes a stored step list strictly and validates it.
func ParseSteps(raw []byte) ([]Step, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var steps []Step
	if err := dec.Decode(&steps); err != nil {
		return nil, apperr.Validation("invalid template steps: %v", err)
	}
	if err := ValidateSteps(steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// ValidateSteps enforces a non-empty sequence of uniquely named, role-tagged steps.
func ValidateSteps(steps []Step) error {
	if len(steps) == 0 {
		return apperr.Validation("template must define at least one step")
	}
	seen := make(map[string]struct{}, len(steps))
	for i, step := range steps {
		name := strings.TrimSpace(step.Name)
		if name == "" {
			return apperr.Validation("step %d: name is required", i)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return apperr.Validation("step %d: duplicate step name %q", i, name)
		}
		seen[key] = struct{}{}
		if !step.RequiredRole.IsUserRole() {
			return apperr.Validation("step %d (%s): unknown role %q", i, name, step.RequiredRole)
		}
		if step.SLAHours < 0 {
			return apperr.Validation("step %d (%s): slaHours must be positive", i, name)
		}
	}
	return nil
}

func encodeSteps(steps []Step) (string, error) {
	b, err := json.Marshal(steps)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
