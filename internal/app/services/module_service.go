package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/models/dto"
	"github.com/bildungsfortschritt/api/internal/app/progress"
	"github.com/bildungsfortschritt/api/internal/app/repositories"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
)

// ModuleService manages training modules
type ModuleService interface {
	List(ctx context.Context, query *dto.ModuleListQuery) ([]*models.Module, error)
	Get(ctx context.Context, id int64) (*models.Module, error)
	WithProgress(ctx context.Context, actor *models.User) (*dto.ModulesWithProgressResponse, error)
	Create(ctx context.Context, req *dto.ModuleRequest) (*models.Module, error)
	Update(ctx context.Context, id int64, req *dto.ModuleRequest) (*models.Module, error)
	Delete(ctx context.Context, id int64) error
}

type moduleServiceImpl struct {
	moduleRepo repositories.IModuleRepository
	userRepo   repositories.IUserRepository
	loader     catalogLoader
	logger     zerolog.Logger
}

// NewModuleService creates a new ModuleService
func NewModuleService(repos *repositories.Repositories, logger zerolog.Logger) ModuleService {
	return &moduleServiceImpl{
		moduleRepo: repos.Modules,
		userRepo:   repos.Users,
		loader:     catalogLoader{modules: repos.Modules, competencies: repos.Competencies},
		logger:     logger,
	}
}

// List returns modules ordered by code, each with its competencies
func (s *moduleServiceImpl) List(ctx context.Context, query *dto.ModuleListQuery) ([]*models.Module, error) {
	filter := repositories.ModuleFilter{}
	if query != nil {
		filter.Type = models.ModuleType(query.Type)
		filter.Query = strings.TrimSpace(query.Query)
	}

	modules, err := s.moduleRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing modules: %w", err)
	}
	if err := s.loader.attachCompetencies(ctx, modules); err != nil {
		return nil, err
	}
	return modules, nil
}

// Get returns one module with its competencies
func (s *moduleServiceImpl) Get(ctx context.Context, id int64) (*models.Module, error) {
	module, err := s.moduleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.loader.attachCompetencies(ctx, []*models.Module{module}); err != nil {
		return nil, err
	}
	return module, nil
}

// WithProgress annotates every module with actor's completion state
func (s *moduleServiceImpl) WithProgress(ctx context.Context, actor *models.User) (*dto.ModulesWithProgressResponse, error) {
	modules, err := s.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	annotated, stats := progress.ForModules(modules, user.CompletedModules)
	return &dto.ModulesWithProgressResponse{Modules: annotated, Stats: stats}, nil
}

func (s *moduleServiceImpl) validate(id int64, req *dto.ModuleRequest) error {
	for _, pre := range req.Prerequisites {
		if id != 0 && pre == id {
			return apperrors.NewValidationError("prerequisites", "Ein Modul kann nicht seine eigene Voraussetzung sein")
		}
	}
	if !models.ModuleType(req.Type).Valid() {
		return apperrors.NewValidationError("type", "Ungültiger Modultyp")
	}
	return nil
}

// Create adds a module
func (s *moduleServiceImpl) Create(ctx context.Context, req *dto.ModuleRequest) (*models.Module, error) {
	if err := s.validate(0, req); err != nil {
		return nil, err
	}

	module := &models.Module{}
	req.ToModel(module)
	module.Code = strings.TrimSpace(module.Code)
	if err := s.moduleRepo.Create(ctx, module); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("moduleID", module.ID).Str("code", module.Code).Msg("Module created")
	return s.Get(ctx, module.ID)
}

// Update replaces a module's fields and links
func (s *moduleServiceImpl) Update(ctx context.Context, id int64, req *dto.ModuleRequest) (*models.Module, error) {
	if err := s.validate(id, req); err != nil {
		return nil, err
	}

	module, err := s.moduleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.ToModel(module)
	module.Code = strings.TrimSpace(module.Code)
	if err := s.moduleRepo.Update(ctx, module); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a module; completions and references go with it
func (s *moduleServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.moduleRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("moduleID", id).Msg("Module deleted")
	return nil
}
