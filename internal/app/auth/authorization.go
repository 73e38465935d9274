package auth

import (
	"context"
	"fmt"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/repositories"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
)

// Messages of the permission errors returned here
const (
	msgProgressDenied = "Keine Berechtigung, den Fortschritt dieses Benutzers einzusehen"
	msgUserDenied     = "Keine Berechtigung für diesen Benutzer"
)

// AuthorizationService answers resource level access questions that the
// role middleware cannot
type AuthorizationService struct {
	userRepo repositories.IUserRepository
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(userRepo repositories.IUserRepository) *AuthorizationService {
	return &AuthorizationService{userRepo: userRepo}
}

// IsTrainer reports whether actor is a Berufsbildner
func IsTrainer(actor *models.User) bool {
	return actor != nil && actor.Role() == models.RoleTrainer
}

// CanViewProgress is true for the user themself and for a trainer listed in
// the target's Berufsbildner
func CanViewProgress(actor, target *models.User) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.ID == target.ID {
		return true
	}
	return IsTrainer(actor) && target.HasTrainer(actor.ID)
}

// CanAccessUser is true for the user themself and for any trainer. It
// governs reading and updating a user record.
func CanAccessUser(actor *models.User, targetID int64) bool {
	if actor == nil {
		return false
	}
	return actor.ID == targetID || IsTrainer(actor)
}

func (s *AuthorizationService) load(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading user %d: %w", id, err)
	}
	return user, nil
}

// ProgressTarget resolves the user whose progress actor wants to see. A zero
// targetID means the actor. Non trainers are rejected before the lookup so
// apprentices cannot discover which user ids exist.
func (s *AuthorizationService) ProgressTarget(ctx context.Context, actor *models.User, targetID int64) (*models.User, error) {
	if targetID == 0 || targetID == actor.ID {
		return actor, nil
	}
	if !IsTrainer(actor) {
		return nil, apperrors.NewForbiddenError(msgProgressDenied)
	}

	target, err := s.load(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !CanViewProgress(actor, target) {
		return nil, apperrors.NewForbiddenError(msgProgressDenied)
	}
	return target, nil
}

// ValidateUserAccess returns ErrPermissionDenied unless actor may read or
// update the user with targetID
func (s *AuthorizationService) ValidateUserAccess(actor *models.User, targetID int64) error {
	if !CanAccessUser(actor, targetID) {
		return apperrors.NewForbiddenError(msgUserDenied)
	}
	return nil
}
