package workflow

import (
	"go-regula/internal/common/apperr"
)

// Path distinguishes templated workflows from the fixed legacy flow.
type Path string

const (
	PathLegacy   Path = "legacy"
	PathTemplate Path = "template"
)

type edge struct {
	from, to Status
}

// transitions is the single state graph. Each edge lists the paths that may
// traverse it; REJECTED and EXECUTED have no outgoing edges.
var transitions = map[edge][]Path{
	{StatusDraft, StatusSubmitted}:     {PathLegacy, PathTemplate},
	{StatusSubmitted, StatusApproved}:  {PathLegacy},
	{StatusSubmitted, StatusRejected}:  {PathLegacy, PathTemplate},
	{StatusSubmitted, StatusSubmitted}: {PathTemplate},
	{StatusSubmitted, StatusExecuted}:  {PathTemplate},
	{StatusApproved, StatusExecuted}:   {PathLegacy},
}

// ValidateTransition reports whether from -> to is an edge of the graph for
// the given path. It has no side effects.
func ValidateTransition(from, to Status, path Path) error {
	paths, ok := transitions[edge{from, to}]
	if !ok {
		if isTerminal(from) {
			return apperr.Validation("invalid transition from %s to %s: %s is final", from, to, from)
		}
		return apperr.Validation("invalid transition from %s to %s", from, to)
	}
	for _, p := range paths {
		if p == path {
			return nil
		}
	}
	return apperr.Validation("invalid transition from %s to %s for a %s workflow", from, to, path)
}

// isTerminal reports whether no transition leaves s.
func isTerminal(s Status) bool {
	for e := range transitions {
		if e.from == s {
			return false
		}
	}
	return true
}
