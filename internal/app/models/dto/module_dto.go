package dto

import (
	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/progress"
)

// ModuleRequest creates or replaces a module
type ModuleRequest struct {
	Code          string  `json:"code" binding:"required,max=32"`
	Title         string  `json:"title" binding:"required,max=200"`
	Type          string  `json:"type" binding:"required,oneof=BFS BAND ÜK"`
	Description   string  `json:"description" binding:"max=2000"`
	Duration      *int    `json:"duration" binding:"omitempty,min=1,max=520"`
	Prerequisites []int64 `json:"prerequisites" binding:"omitempty,dive,min=1"`
	CompetencyIDs []int64 `json:"competencyIds" binding:"omitempty,dive,min=1"`
}

// ToModel copies the request onto a module
func (r *ModuleRequest) ToModel(m *models.Module) {
	m.Code = r.Code
	m.Title = r.Title
	m.Type = models.ModuleType(r.Type)
	m.Description = r.Description
	m.Duration = r.Duration
	m.PrerequisiteIDs = r.Prerequisites
	m.CompetencyIDs = r.CompetencyIDs
}

// ModuleListQuery filters the public module list
type ModuleListQuery struct {
	Type  string `form:"type" binding:"omitempty,oneof=BFS BAND ÜK"`
	Query string `form:"q" binding:"max=100"`
}

// ModulesWithProgressResponse lists every module with the caller's state
type ModulesWithProgressResponse struct {
	Modules []progress.ModuleProgress `json:"modules"`
	Stats   progress.Summary          `json:"stats"`
}
