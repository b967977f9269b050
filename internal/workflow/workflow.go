package workflow

import (
	"fmt"
	"strings"
)

// Status is a position in the appraisal pipeline.
type Status string

const (
	StatusPending                      Status = "pending"
	StatusPortfolioMarkPending         Status = "Portfolio_Mark_pending"
	StatusPortfolioMarkDeanPending     Status = "Portfolio_Mark_Dean_pending"
	StatusVerificationPending          Status = "verification_pending"
	StatusAuthorityVerificationPending Status = "authority_verification_pending"
	StatusVerified                     Status = "verified"
	StatusInteractionPending           Status = "Interaction_pending"
	StatusDone                         Status = "done"
	StatusSentToDirector               Status = "SentToDirector"
)

// Pipeline lists the statuses in forward order.
var Pipeline = []Status{
	StatusPending,
	StatusPortfolioMarkPending,
	StatusPortfolioMarkDeanPending,
	StatusVerificationPending,
	StatusAuthorityVerificationPending,
	StatusVerified,
	StatusInteractionPending,
	StatusDone,
	StatusSentToDirector,
}

// Rank returns the pipeline position of s, or -1 when unknown.
func (s Status) Rank() int {
	for i, candidate := range Pipeline {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s belongs to the pipeline.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Action names a guarded transition.
type Action string

const (
	ActionSubmitForm          Action = "submit_form"
	ActionHODMarkGiven        Action = "hod_mark_given"
	ActionPortfolioGiven      Action = "portfolio_given"
	ActionVerifyResearch      Action = "verify_research"
	ActionVerifyAuthority     Action = "verify_authority"
	ActionOpenInteraction     Action = "open_interaction"
	ActionCompleteInteraction Action = "complete_interaction"
	ActionSendToDirector      Action = "send_to_director"
)

// Transition is a single guard: the action is legal from any of From and moves to To.
type Transition struct {
	Action Action
	From   []Status
	To     Status
	// Automatic transitions are fired by the system, never requested by a user.
	Automatic bool
}

var transitions = map[Action]Transition{
	ActionSubmitForm: {
		Action: ActionSubmitForm,
		From:   []Status{StatusPending},
		To:     StatusPortfolioMarkPending,
	},
	ActionHODMarkGiven: {
		Action: ActionHODMarkGiven,
		From:   []Status{StatusPortfolioMarkPending},
		To:     StatusPortfolioMarkDeanPending,
	},
	ActionPortfolioGiven: {
		Action: ActionPortfolioGiven,
		From:   []Status{StatusPortfolioMarkPending, StatusPortfolioMarkDeanPending},
		To:     StatusVerificationPending,
	},
	ActionVerifyResearch: {
		Action: ActionVerifyResearch,
		From:   []Status{StatusVerificationPending},
		To:     StatusAuthorityVerificationPending,
	},
	ActionVerifyAuthority: {
		Action: ActionVerifyAuthority,
		From:   []Status{StatusAuthorityVerificationPending},
		To:     StatusVerified,
	},
	ActionOpenInteraction: {
		Action: ActionOpenInteraction,
		From:   []Status{StatusVerified},
		To:     StatusInteractionPending,
	},
	ActionCompleteInteraction: {
		Action:    ActionCompleteInteraction,
		From:      []Status{StatusInteractionPending},
		To:        StatusDone,
		Automatic: true,
	},
	ActionSendToDirector: {
		Action: ActionSendToDirector,
		From:   []Status{StatusDone},
		To:     StatusSentToDirector,
	},
}

// ParseAction resolves a user supplied action name.
func ParseAction(raw string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := transitions[action]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
	}
	return action, nil
}

// Lookup returns the transition registered for action.
func Lookup(action Action) (Transition, bool) {
	t, ok := transitions[action]
	return t, ok
}

// Apply checks the guard for action against current and returns the next status.
// A mismatch yields a *GuardError and the caller must not write anything.
func Apply(current Status, action Action) (Status, error) {
	t, ok := transitions[action]
	if !ok {
		return current, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	for _, from := range t.From {
		if current == from {
			return t.To, nil
		}
	}
	return current, &GuardError{Action: action, Current: current, Expected: append([]Status(nil), t.From...)}
}

// Allowed lists the user-requestable actions legal from current.
func Allowed(current Status) []Action {
	var out []Action
	for _, action := range orderedActions {
		t := transitions[action]
		if t.Automatic {
			continue
		}
		for _, from := range t.From {
			if from == current {
				out = append(out, action)
				break
			}
		}
	}
	return out
}

var orderedActions = []Action{
	ActionSubmitForm,
	ActionHODMarkGiven,
	ActionPortfolioGiven,
	ActionVerifyResearch,
	ActionVerifyAuthority,
	ActionOpenInteraction,
	ActionCompleteInteraction,
	ActionSendToDirector,
}
