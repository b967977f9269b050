package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/patil-rushikesh/FDW-backend/internal/models"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

type identityRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Directory resolves faculty identities from the user table.
type Directory struct {
	repo identityRepository
}

// NewDirectory constructs a directory over the user repository.
func NewDirectory(repo identityRepository) *Directory {
	return &Directory{repo: repo}
}

// Lookup returns the rank and designation of a faculty member.
func (d *Directory) Lookup(ctx context.Context, facultyID string) (*models.Identity, error) {
	user, err := d.repo.FindByID(ctx, facultyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found in directory")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up faculty")
	}
	return &models.Identity{
		ID:          user.ID,
		Name:        user.Name,
		Department:  user.Department,
		Position:    user.Position,
		Designation: user.Designation,
	}, nil
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

func actorID(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}
