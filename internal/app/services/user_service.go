package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	appAuth "github.com/bildungsfortschritt/api/internal/app/auth"
	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/models/dto"
	"github.com/bildungsfortschritt/api/internal/app/progress"
	"github.com/bildungsfortschritt/api/internal/app/repositories"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
	"github.com/bildungsfortschritt/api/internal/pkg/auth"
	"github.com/bildungsfortschritt/api/internal/pkg/metrics"
	"github.com/bildungsfortschritt/api/internal/pkg/validation"
)

// UserService defines the interface for user operations. actor is always
// the authenticated caller.
type UserService interface {
	List(ctx context.Context) ([]*models.User, error)
	ListStudents(ctx context.Context, actor *models.User) ([]*models.User, error)
	Current(ctx context.Context, actor *models.User) (*models.User, error)
	Get(ctx context.Context, actor *models.User, id int64) (*models.User, error)
	Create(ctx context.Context, actor *models.User, req *dto.CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, actor *models.User, id int64, req *dto.UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, actor *models.User, id int64) error

	Progress(ctx context.Context, actor *models.User, targetID int64) (*dto.ProgressResponse, error)
	CompleteModule(ctx context.Context, actor *models.User, moduleID int64) (*dto.CompleteModuleResponse, error)
	UncompleteModule(ctx context.Context, actor *models.User, moduleID int64) (*dto.CompleteModuleResponse, error)
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	userRepo   repositories.IUserRepository
	moduleRepo repositories.IModuleRepository
	loader     catalogLoader
	authz      *appAuth.AuthorizationService
	logger     zerolog.Logger
	now        func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(repos *repositories.Repositories, authz *appAuth.AuthorizationService, logger zerolog.Logger) UserService {
	return &userServiceImpl{
		userRepo:   repos.Users,
		moduleRepo: repos.Modules,
		loader:     catalogLoader{modules: repos.Modules, competencies: repos.Competencies},
		authz:      authz,
		logger:     logger,
		now:        time.Now,
	}
}

// List returns every user
func (s *userServiceImpl) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return users, nil
}

// ListStudents returns the apprentices assigned to actor with completed modules populated
func (s *userServiceImpl) ListStudents(ctx context.Context, actor *models.User) ([]*models.User, error) {
	users, err := s.userRepo.ListByTrainer(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}

	students := make([]*models.User, 0, len(users))
	for _, u := range users {
		if !u.IsBB {
			students = append(students, u)
		}
	}
	if err := s.loader.populate(ctx, students...); err != nil {
		return nil, err
	}
	return students, nil
}

// Current re-reads the caller and populates their completed modules
func (s *userServiceImpl) Current(ctx context.Context, actor *models.User) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.loader.populate(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns a user visible to actor
func (s *userServiceImpl) Get(ctx context.Context, actor *models.User, id int64) (*models.User, error) {
	if err := s.authz.ValidateUserAccess(actor, id); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.loader.populate(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// checkTrainers makes sure every id names an existing Berufsbildner
func (s *userServiceImpl) checkTrainers(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		trainer, err := s.userRepo.GetByID(ctx, id)
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return apperrors.NewValidationError("berufsbildnerIds", fmt.Sprintf("Berufsbildner %d existiert nicht", id))
		}
		if err != nil {
			return err
		}
		if !trainer.IsBB {
			return apperrors.NewValidationError("berufsbildnerIds", fmt.Sprintf("Benutzer %d ist kein Berufsbildner", id))
		}
	}
	return nil
}

// Create adds a user on behalf of a trainer. An apprentice without explicit
// trainers is assigned to actor.
func (s *userServiceImpl) Create(ctx context.Context, actor *models.User, req *dto.CreateUserRequest) (*models.User, error) {
	email := validation.NormalizeEmail(req.Email)
	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if exists {
		return nil, apperrors.NewConflictError(MsgEmailTaken)
	}

	trainers := req.BerufsbildnerIDs
	if !req.IsBB && len(trainers) == 0 {
		trainers = []int64{actor.ID}
	}
	if err := s.checkTrainers(ctx, trainers); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:            email,
		Password:         hash,
		IsBB:             req.IsBB,
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Lehrjahr:         req.Lehrjahr,
		BerufsbildnerIDs: trainers,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, apperrors.NewCustomError(err, MsgEmailTaken)
		}
		return nil, err
	}

	s.logger.Info().Int64("userID", user.ID).Int64("createdBy", actor.ID).Msg("User created")
	return user, nil
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[int64]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}

// Update applies a partial update. Apprentices may edit their own profile
// but not their role or trainers.
func (s *userServiceImpl) Update(ctx context.Context, actor *models.User, id int64, req *dto.UpdateUserRequest) (*models.User, error) {
	if err := s.authz.ValidateUserAccess(actor, id); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	trainer := appAuth.IsTrainer(actor)
	if req.IsBB != nil && *req.IsBB != user.IsBB {
		if !trainer {
			return nil, apperrors.NewForbiddenError("Nur Berufsbildner dürfen die Rolle ändern")
		}
		user.IsBB = *req.IsBB
	}
	if req.BerufsbildnerIDs != nil && !sameIDs(*req.BerufsbildnerIDs, user.BerufsbildnerIDs) {
		if !trainer {
			return nil, apperrors.NewForbiddenError("Nur Berufsbildner dürfen Zuordnungen ändern")
		}
		if err := s.checkTrainers(ctx, *req.BerufsbildnerIDs); err != nil {
			return nil, err
		}
		user.BerufsbildnerIDs = *req.BerufsbildnerIDs
	}

	if req.Email != nil {
		email := validation.NormalizeEmail(*req.Email)
		if email != user.Email {
			exists, err := s.userRepo.EmailExists(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("error checking email: %w", err)
			}
			if exists {
				return nil, apperrors.NewConflictError(MsgEmailTaken)
			}
			user.Email = email
		}
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Lehrjahr != nil {
		user.Lehrjahr = req.Lehrjahr
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, apperrors.NewCustomError(err, MsgEmailTaken)
		}
		return nil, err
	}
	if err := s.loader.populate(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user with their completions and trainer links
func (s *userServiceImpl) Delete(ctx context.Context, actor *models.User, id int64) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("userID", id).Int64("deletedBy", actor.ID).Msg("User deleted")
	return nil
}

// Progress computes per-area competency progress for actor or one of their students
func (s *userServiceImpl) Progress(ctx context.Context, actor *models.User, targetID int64) (*dto.ProgressResponse, error) {
	target, err := s.authz.ProgressTarget(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}
	// actor comes from the auth middleware; re-read to see its latest completions
	if target.ID == actor.ID {
		if target, err = s.userRepo.GetByID(ctx, actor.ID); err != nil {
			return nil, err
		}
	}

	completed, err := s.loader.completedModules(ctx, target)
	if err != nil {
		return nil, err
	}
	catalog, err := s.loader.catalog(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.ProgressResponse{
		User:         dto.NewUserResponse(target),
		UserProgress: progress.ForUser(completed, catalog),
	}, nil
}

func (s *userServiceImpl) completionResponse(ctx context.Context, userID int64, message string) (*dto.CompleteModuleResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed, err := s.loader.completedModules(ctx, user)
	if err != nil {
		return nil, err
	}
	catalog, err := s.loader.catalog(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.CompleteModuleResponse{
		Message:          message,
		CompletedModules: dto.NewUserResponse(user).CompletedModules,
		OverallProgress:  progress.ForUser(completed, catalog).Overall,
	}, nil
}

// CompleteModule marks a module as completed by actor
func (s *userServiceImpl) CompleteModule(ctx context.Context, actor *models.User, moduleID int64) (*dto.CompleteModuleResponse, error) {
	if _, err := s.moduleRepo.GetByID(ctx, moduleID); err != nil {
		return nil, err
	}

	added, err := s.userRepo.AddCompletedModule(ctx, actor.ID, moduleID, s.now())
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, apperrors.NewConflictError("Modul wurde bereits abgeschlossen")
	}

	metrics.ModuleCompletions.WithLabelValues("complete").Inc()
	s.logger.Info().Int64("userID", actor.ID).Int64("moduleID", moduleID).Msg("Module completed")
	return s.completionResponse(ctx, actor.ID, "Modul als abgeschlossen markiert")
}

// UncompleteModule removes a completion; a module that was not completed is a no-op
func (s *userServiceImpl) UncompleteModule(ctx context.Context, actor *models.User, moduleID int64) (*dto.CompleteModuleResponse, error) {
	if _, err := s.moduleRepo.GetByID(ctx, moduleID); err != nil {
		return nil, err
	}
	if err := s.userRepo.RemoveCompletedModule(ctx, actor.ID, moduleID); err != nil {
		return nil, err
	}
	metrics.ModuleCompletions.WithLabelValues("uncomplete").Inc()
	return s.completionResponse(ctx, actor.ID, "Modul als nicht abgeschlossen markiert")
}
