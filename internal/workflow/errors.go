package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAction is returned for action names outside the transition table.
var ErrUnknownAction = errors.New("unknown workflow action")

// GuardError reports a transition attempted from the wrong status.
type GuardError struct {
	Action   Action
	Current  Status
	Expected []Status
}

func (e *GuardError) Error() string {
	expected := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		expected[i] = string(s)
	}
	return fmt.Sprintf("%s requires status %s, current status is %s", e.Action, strings.Join(expected, " or "), e.Current)
}

// AsGuardError unwraps err into a *GuardError.
func AsGuardError(err error) (*GuardError, bool) {
	var guard *GuardError
	if errors.As(err, &guard) {
		return guard, true
	}
	return nil, false
}
