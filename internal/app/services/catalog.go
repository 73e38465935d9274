package services

import (
	"context"
	"fmt"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/repositories"
)

// catalogLoader populates modules and completions with their relations
type catalogLoader struct {
	modules      repositories.IModuleRepository
	competencies repositories.ICompetencyRepository
}

// attachCompetencies sets Competencies on every module from its ids
func (l catalogLoader) attachCompetencies(ctx context.Context, modules []*models.Module) error {
	seen := make(map[int64]bool)
	var ids []int64
	for _, m := range modules {
		for _, id := range m.CompetencyIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	byID := make(map[int64]*models.Competency, len(ids))
	if len(ids) > 0 {
		comps, err := l.competencies.GetByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("error loading competencies: %w", err)
		}
		for _, c := range comps {
			byID[c.ID] = c
		}
	}

	for _, m := range modules {
		m.Competencies = make([]*models.Competency, 0, len(m.CompetencyIDs))
		for _, id := range m.CompetencyIDs {
			if c, ok := byID[id]; ok {
				m.Competencies = append(m.Competencies, c)
			}
		}
	}
	return nil
}

// populate fills CompletedModules[].Module, with competencies, for every user
func (l catalogLoader) populate(ctx context.Context, users ...*models.User) error {
	seen := make(map[int64]bool)
	var ids []int64
	for _, u := range users {
		for _, cm := range u.CompletedModules {
			if !seen[cm.ModuleID] {
				seen[cm.ModuleID] = true
				ids = append(ids, cm.ModuleID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	modules, err := l.modules.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("error loading completed modules: %w", err)
	}
	if err := l.attachCompetencies(ctx, modules); err != nil {
		return err
	}

	byID := make(map[int64]*models.Module, len(modules))
	for _, m := range modules {
		byID[m.ID] = m
	}
	for _, u := range users {
		for i := range u.CompletedModules {
			u.CompletedModules[i].Module = byID[u.CompletedModules[i].ModuleID]
		}
	}
	return nil
}

// completedModules populates user and returns the modules it completed
func (l catalogLoader) completedModules(ctx context.Context, user *models.User) ([]*models.Module, error) {
	if err := l.populate(ctx, user); err != nil {
		return nil, err
	}
	modules := make([]*models.Module, 0, len(user.CompletedModules))
	for _, cm := range user.CompletedModules {
		if cm.Module != nil {
			modules = append(modules, cm.Module)
		}
	}
	return modules, nil
}

// catalog returns every competency
func (l catalogLoader) catalog(ctx context.Context) ([]*models.Competency, error) {
	comps, err := l.competencies.List(ctx, repositories.CompetencyFilter{})
	if err != nil {
		return nil, fmt.Errorf("error loading competencies: %w", err)
	}
	return comps, nil
}
