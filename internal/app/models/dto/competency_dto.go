package dto

import "github.com/bildungsfortschritt/api/internal/app/models"

// CompetencyRequest creates or replaces a competency. Area is accepted in
// either case.
type CompetencyRequest struct {
	Code        string `json:"code" binding:"required,max=32"`
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"required,max=2000"`
	Area        string `json:"area" binding:"required,len=1"`
	Taxonomy    string `json:"taxonomy" binding:"required,oneof=K1 K2 K3 K4 K5 K6"`
}

// ToModel copies the request onto a competency; area must already be parsed
func (r *CompetencyRequest) ToModel(c *models.Competency, area models.Area) {
	c.Code = r.Code
	c.Title = r.Title
	c.Description = r.Description
	c.Area = area
	c.Taxonomy = models.Taxonomy(r.Taxonomy)
}

// CompetencyListQuery filters the competency list
type CompetencyListQuery struct {
	Area  string `form:"area" binding:"omitempty,len=1"`
	Query string `form:"q" binding:"max=100"`
}

// ExportQuery selects the coverage export format
type ExportQuery struct {
	Format string `form:"format" binding:"omitempty,oneof=csv xlsx"`
}
