package inmem

import (
	"context"
	"sort"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/repositories"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
)

type competencyRepository struct {
	db *DB
}

// NewCompetencyRepository returns a competency repository on db
func NewCompetencyRepository(db *DB) repositories.ICompetencyRepository {
	return &competencyRepository{db: db}
}

func (repo *competencyRepository) codeTaken(code string, exceptID int64) bool {
	for _, c := range repo.db.competencies {
		if c.Code == code && c.ID != exceptID {
			return true
		}
	}
	return false
}

func (repo *competencyRepository) Create(_ context.Context, c *models.Competency) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.codeTaken(c.Code, 0) {
		return apperrors.ErrCompetencyCodeExists
	}
	now := repo.db.now()
	c.ID = repo.db.nextID()
	c.CreatedAt, c.UpdatedAt = now, now
	stored := *c
	repo.db.competencies[c.ID] = &stored
	return nil
}

func (repo *competencyRepository) GetByID(_ context.Context, id int64) (*models.Competency, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	c, ok := repo.db.competencies[id]
	if !ok {
		return nil, apperrors.ErrCompetencyNotFound
	}
	out := *c
	return &out, nil
}

func (repo *competencyRepository) GetByIDs(_ context.Context, ids []int64) ([]*models.Competency, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return repo.query(func(c *models.Competency) bool { return want[c.ID] }), nil
}

func (repo *competencyRepository) List(_ context.Context, filter repositories.CompetencyFilter) ([]*models.Competency, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.query(func(c *models.Competency) bool {
		if filter.Area != "" && c.Area != filter.Area {
			return false
		}
		if filter.Query != "" &&
			!containsFold(c.Code, filter.Query) &&
			!containsFold(c.Title, filter.Query) &&
			!containsFold(c.Description, filter.Query) {
			return false
		}
		return true
	}), nil
}

func (repo *competencyRepository) query(keep func(*models.Competency) bool) []*models.Competency {
	out := []*models.Competency{}
	for _, c := range repo.db.competencies {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Area != out[j].Area {
			return out[i].Area < out[j].Area
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func (repo *competencyRepository) Update(_ context.Context, c *models.Competency) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.competencies[c.ID]
	if !ok {
		return apperrors.ErrCompetencyNotFound
	}
	if repo.codeTaken(c.Code, c.ID) {
		return apperrors.ErrCompetencyCodeExists
	}
	c.CreatedAt = stored.CreatedAt
	c.UpdatedAt = repo.db.now()
	updated := *c
	repo.db.competencies[c.ID] = &updated
	return nil
}

func (repo *competencyRepository) Delete(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.competencies[id]; !ok {
		return apperrors.ErrCompetencyNotFound
	}
	delete(repo.db.competencies, id)
	for _, m := range repo.db.modules {
		m.CompetencyIDs = removeID(m.CompetencyIDs, id)
	}
	return nil
}

type moduleRepository struct {
	db *DB
}

// NewModuleRepository returns a module repository on db
func NewModuleRepository(db *DB) repositories.IModuleRepository {
	return &moduleRepository{db: db}
}

func cloneModule(m *models.Module) *models.Module {
	c := *m
	c.CompetencyIDs = append([]int64{}, m.CompetencyIDs...)
	c.PrerequisiteIDs = append([]int64{}, m.PrerequisiteIDs...)
	c.Competencies = nil
	if m.Duration != nil {
		d := *m.Duration
		c.Duration = &d
	}
	return &c
}

func (repo *moduleRepository) validate(m *models.Module) error {
	for _, other := range repo.db.modules {
		if other.Code == m.Code && other.ID != m.ID {
			return apperrors.ErrModuleCodeExists
		}
	}
	for _, id := range m.CompetencyIDs {
		if _, ok := repo.db.competencies[id]; !ok {
			return apperrors.NewBadRequestError("Ungültige Referenz in competency_id")
		}
	}
	for _, id := range m.PrerequisiteIDs {
		if _, ok := repo.db.modules[id]; !ok || id == m.ID {
			return apperrors.NewBadRequestError("Ungültige Referenz in prerequisite_id")
		}
	}
	return nil
}

func (repo *moduleRepository) Create(_ context.Context, m *models.Module) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.validate(m); err != nil {
		return err
	}
	now := repo.db.now()
	m.ID = repo.db.nextID()
	m.CreatedAt, m.UpdatedAt = now, now
	m.CompetencyIDs = copyIDs(m.CompetencyIDs)
	m.PrerequisiteIDs = copyIDs(m.PrerequisiteIDs)
	repo.db.modules[m.ID] = cloneModule(m)
	return nil
}

func (repo *moduleRepository) GetByID(_ context.Context, id int64) (*models.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	m, ok := repo.db.modules[id]
	if !ok {
		return nil, apperrors.ErrModuleNotFound
	}
	return cloneModule(m), nil
}

func (repo *moduleRepository) GetByIDs(_ context.Context, ids []int64) ([]*models.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return repo.query(func(m *models.Module) bool { return want[m.ID] }), nil
}

func (repo *moduleRepository) List(_ context.Context, filter repositories.ModuleFilter) ([]*models.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.query(func(m *models.Module) bool {
		if filter.Type != "" && m.Type != filter.Type {
			return false
		}
		if filter.Query != "" && !containsFold(m.Code, filter.Query) && !containsFold(m.Title, filter.Query) {
			return false
		}
		return true
	}), nil
}

func (repo *moduleRepository) query(keep func(*models.Module) bool) []*models.Module {
	out := []*models.Module{}
	for _, m := range repo.db.modules {
		if keep(m) {
			out = append(out, cloneModule(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (repo *moduleRepository) Update(_ context.Context, m *models.Module) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.modules[m.ID]
	if !ok {
		return apperrors.ErrModuleNotFound
	}
	if err := repo.validate(m); err != nil {
		return err
	}
	m.CreatedAt = stored.CreatedAt
	m.UpdatedAt = repo.db.now()
	m.CompetencyIDs = copyIDs(m.CompetencyIDs)
	m.PrerequisiteIDs = copyIDs(m.PrerequisiteIDs)
	repo.db.modules[m.ID] = cloneModule(m)
	return nil
}

func (repo *moduleRepository) Delete(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.modules[id]; !ok {
		return apperrors.ErrModuleNotFound
	}
	delete(repo.db.modules, id)
	for _, other := range repo.db.modules {
		other.PrerequisiteIDs = removeID(other.PrerequisiteIDs, id)
	}
	for _, u := range repo.db.users {
		kept := u.CompletedModules[:0]
		for _, cm := range u.CompletedModules {
			if cm.ModuleID != id {
				kept = append(kept, cm)
			}
		}
		u.CompletedModules = kept
	}
	return nil
}
