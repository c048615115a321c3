package workflow

import (
	"testing"

	"go-regula/internal/common/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransitionGraph(t *testing.T) {
	allowed := map[Path]map[[2]Status]bool{
		PathLegacy: {
			{StatusDraft, StatusSubmitted}:    true,
			{StatusSubmitted, StatusApproved}: true,
			{StatusSubmitted, StatusRejected}: true,
			{StatusApproved, StatusExecuted}:  true,
		},
		PathTemplate: {
			{StatusDraft, StatusSubmitted}:     true,
			{StatusSubmitted, StatusSubmitted}: true,
			{StatusSubmitted, StatusRejected}:  true,
			{StatusSubmitted, StatusExecuted}:  true,
		},
	}

	for path, edges := range allowed {
		for _, from := range Statuses {
			for _, to := range Statuses {
				err := ValidateTransition(from, to, path)
				if edges[[2]Status{from, to}] {
					assert.NoError(t, err, "%s: %s -> %s", path, from, to)
					continue
				}
				require.Error(t, err, "%s: %s -> %s", path, from, to)
				assert.ErrorIs(t, err, apperr.ErrValidation)
				assert.Contains(t, err.Error(), string(from))
				assert.Contains(t, err.Error(), string(to))
			}
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, isTerminal(StatusRejected))
	assert.True(t, isTerminal(StatusExecuted))
	assert.False(t, isTerminal(StatusDraft))
	assert.False(t, isTerminal(StatusSubmitted))
	assert.False(t, isTerminal(StatusApproved))

	for _, from := range []Status{StatusRejected, StatusExecuted} {
		err := ValidateTransition(from, StatusSubmitted, PathTemplate)
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.Contains(t, err.Error(), string(from)+" is final")
	}

	err := ValidateTransition(StatusDraft, StatusExecuted, PathTemplate)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "is final")
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" approve ")
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, a)

	_, err = ParseAction("ESCALATE")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Equal(t, "workflow.execute", ActionExecute.EventName())
}
