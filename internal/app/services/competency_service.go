package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/models/dto"
	"github.com/bildungsfortschritt/api/internal/app/progress"
	"github.com/bildungsfortschritt/api/internal/app/repositories"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
	"github.com/bildungsfortschritt/api/internal/pkg/export"
)

// CompetencyService manages the competency catalog and its coverage reports
type CompetencyService interface {
	List(ctx context.Context, query *dto.CompetencyListQuery) ([]*models.Competency, error)
	Get(ctx context.Context, id int64) (*models.Competency, error)
	ByArea(ctx context.Context, area string) ([]progress.CompetencyCoverage, error)
	Overview(ctx context.Context) (*progress.Overview, error)
	Export(ctx context.Context, format string) (*export.File, error)
	Create(ctx context.Context, req *dto.CompetencyRequest) (*models.Competency, error)
	Update(ctx context.Context, id int64, req *dto.CompetencyRequest) (*models.Competency, error)
	Delete(ctx context.Context, id int64) error
}

type competencyServiceImpl struct {
	competencyRepo repositories.ICompetencyRepository
	moduleRepo     repositories.IModuleRepository
	logger         zerolog.Logger
	now            func() time.Time
}

// NewCompetencyService creates a new CompetencyService
func NewCompetencyService(repos *repositories.Repositories, logger zerolog.Logger) CompetencyService {
	return &competencyServiceImpl{
		competencyRepo: repos.Competencies,
		moduleRepo:     repos.Modules,
		logger:         logger,
		now:            time.Now,
	}
}

func parseArea(raw string) (models.Area, error) {
	area, err := models.ParseArea(raw)
	if err != nil {
		return "", apperrors.NewCustomError(apperrors.ErrInvalidArea, "Ungültiger Bereich. Erlaubt sind a bis h")
	}
	return area, nil
}

// List returns competencies sorted by area, then code
func (s *competencyServiceImpl) List(ctx context.Context, query *dto.CompetencyListQuery) ([]*models.Competency, error) {
	filter := repositories.CompetencyFilter{}
	if query != nil {
		if query.Area != "" {
			area, err := parseArea(query.Area)
			if err != nil {
				return nil, err
			}
			filter.Area = area
		}
		filter.Query = strings.TrimSpace(query.Query)
	}

	comps, err := s.competencyRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing competencies: %w", err)
	}
	return comps, nil
}

// Get returns one competency
func (s *competencyServiceImpl) Get(ctx context.Context, id int64) (*models.Competency, error) {
	return s.competencyRepo.GetByID(ctx, id)
}

func (s *competencyServiceImpl) load(ctx context.Context, filter repositories.CompetencyFilter) ([]*models.Module, []*models.Competency, error) {
	modules, err := s.moduleRepo.List(ctx, repositories.ModuleFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("error listing modules: %w", err)
	}
	comps, err := s.competencyRepo.List(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("error listing competencies: %w", err)
	}
	return modules, comps, nil
}

// ByArea returns one area's competencies with the modules covering them
func (s *competencyServiceImpl) ByArea(ctx context.Context, raw string) ([]progress.CompetencyCoverage, error) {
	area, err := parseArea(raw)
	if err != nil {
		return nil, err
	}
	modules, comps, err := s.load(ctx, repositories.CompetencyFilter{Area: area})
	if err != nil {
		return nil, err
	}
	return progress.ForArea(area, modules, comps), nil
}

// Overview builds the catalog wide coverage report
func (s *competencyServiceImpl) Overview(ctx context.Context) (*progress.Overview, error) {
	modules, comps, err := s.load(ctx, repositories.CompetencyFilter{})
	if err != nil {
		return nil, err
	}
	overview := progress.Coverage(modules, comps, s.now())
	return &overview, nil
}

// Export renders the coverage report as csv or xlsx
func (s *competencyServiceImpl) Export(ctx context.Context, format string) (*export.File, error) {
	overview, err := s.Overview(ctx)
	if err != nil {
		return nil, err
	}
	file, err := export.Render(format, *overview, s.now())
	if err != nil {
		return nil, fmt.Errorf("error rendering export: %w", err)
	}
	return file, nil
}

// Create adds a competency
func (s *competencyServiceImpl) Create(ctx context.Context, req *dto.CompetencyRequest) (*models.Competency, error) {
	area, err := parseArea(req.Area)
	if err != nil {
		return nil, err
	}

	c := &models.Competency{}
	req.ToModel(c, area)
	c.Code = strings.TrimSpace(c.Code)
	if err := s.competencyRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("competencyID", c.ID).Str("code", c.Code).Msg("Competency created")
	return c, nil
}

// Update replaces a competency's fields
func (s *competencyServiceImpl) Update(ctx context.Context, id int64, req *dto.CompetencyRequest) (*models.Competency, error) {
	area, err := parseArea(req.Area)
	if err != nil {
		return nil, err
	}

	c, err := s.competencyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.ToModel(c, area)
	c.Code = strings.TrimSpace(c.Code)
	if err := s.competencyRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a competency and its module references
func (s *competencyServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.competencyRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("competencyID", id).Msg("Competency deleted")
	return nil
}
