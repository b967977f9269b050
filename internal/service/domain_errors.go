package service

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/patil-rushikesh/FDW-backend/internal/interaction"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/scoring"
	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

// guardFailure converts a workflow guard rejection into the API error shape.
func guardFailure(guard *workflow.GuardError) error {
	expected := make([]string, len(guard.Expected))
	for i, status := range guard.Expected {
		expected[i] = string(status)
	}
	allowed := []string{}
	for _, action := range workflow.Allowed(guard.Current) {
		allowed = append(allowed, string(action))
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrWorkflowGuard, guard.Error()), map[string]interface{}{
		"action":          string(guard.Action),
		"current_status":  string(guard.Current),
		"expected_status": expected,
		"allowed_actions": allowed,
	})
}

// domainError maps errors from the scoring, workflow and interaction packages.
func domainError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if guard, ok := workflow.AsGuardError(err); ok {
		return guardFailure(guard)
	}
	switch {
	case errors.Is(err, scoring.ErrUnknownSection),
		errors.Is(err, scoring.ErrMalformedSection),
		errors.Is(err, scoring.ErrUnknownCategory),
		errors.Is(err, scoring.ErrInvalidMarks),
		errors.Is(err, workflow.ErrUnknownAction),
		errors.Is(err, interaction.ErrUnknownRole),
		errors.Is(err, interaction.ErrInvalidMarks),
		errors.Is(err, interaction.ErrMissingRater),
		errors.Is(err, models.ErrUnknownDepartment):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	case errors.Is(err, scoring.ErrUnknownPosition):
		return appErrors.Wrap(err, appErrors.ErrComputation.Code, appErrors.ErrComputation.Status, err.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
}

// ParseDepartment resolves a path parameter into a department or a validation error.
func ParseDepartment(raw string) (models.Department, error) {
	dept, err := models.ParseDepartment(raw)
	if err != nil {
		return "", domainError(err)
	}
	return dept, nil
}

const secretAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// generateSecret returns a random initial password.
func generateSecret(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(secretAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = secretAlphabet[n.Int64()]
	}
	return string(out), nil
}
