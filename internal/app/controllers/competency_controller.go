package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bildungsfortschritt/api/internal/app/models/dto"
	"github.com/bildungsfortschritt/api/internal/app/services"
	"github.com/bildungsfortschritt/api/internal/middleware"
)

// CompetencyController handles the Leistungsziel catalog and coverage reports
type CompetencyController struct {
	competencyService services.CompetencyService
	logger            zerolog.Logger
}

// NewCompetencyController creates a new CompetencyController
func NewCompetencyController(competencyService services.CompetencyService, logger zerolog.Logger) *CompetencyController {
	return &CompetencyController{
		competencyService: competencyService,
		logger:            logger,
	}
}

// GetAllCompetencies lists competencies sorted by area and code
// @Summary List competencies
// @Tags competencies
// @Produce json
// @Param area query string false "Area a-h"
// @Param q query string false "Search in code and title"
// @Success 200 {object} dto.APIResponse{data=[]models.Competency}
// @Router /competencies [get]
func (c *CompetencyController) GetAllCompetencies(ctx *gin.Context) {
	var query dto.CompetencyListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	competencies, err := c.competencyService.List(ctx.Request.Context(), &query)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(competencies, ""))
}

// GetCompetenciesByArea lists one area with the modules covering each competency
// @Summary List competencies of an area
// @Tags competencies
// @Produce json
// @Security BearerAuth
// @Param area path string true "Area a-h"
// @Success 200 {object} dto.APIResponse{data=[]progress.CompetencyCoverage}
// @Failure 400 {object} dto.APIResponse
// @Router /competencies/area/{area} [get]
func (c *CompetencyController) GetCompetenciesByArea(ctx *gin.Context) {
	coverage, err := c.competencyService.ByArea(ctx.Request.Context(), ctx.Param("area"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(coverage, ""))
}

// GetOverview returns the coverage report
// @Summary Coverage overview
// @Tags competencies
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=progress.Overview}
// @Failure 403 {object} dto.APIResponse
// @Router /competencies/overview [get]
func (c *CompetencyController) GetOverview(ctx *gin.Context) {
	overview, err := c.competencyService.Overview(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(overview, ""))
}

// ExportOverview downloads the coverage report as csv (default) or xlsx
// @Summary Export coverage overview
// @Tags competencies
// @Produce text/csv,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Router /competencies/overview/export [get]
func (c *CompetencyController) ExportOverview(ctx *gin.Context) {
	var query dto.ExportQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	file, err := c.competencyService.Export(ctx.Request.Context(), query.Format)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	ctx.Data(http.StatusOK, file.ContentType, file.Data)
}

// GetCompetencyByID returns one competency
// @Summary Get competency
// @Tags competencies
// @Produce json
// @Param id path int true "Competency ID"
// @Success 200 {object} dto.APIResponse{data=models.Competency}
// @Failure 404 {object} dto.APIResponse
// @Router /competencies/{id} [get]
func (c *CompetencyController) GetCompetencyByID(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	competency, err := c.competencyService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(competency, ""))
}

// CreateCompetency adds a competency
// @Summary Create competency
// @Tags competencies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CompetencyRequest true "Competency"
// @Success 201 {object} dto.APIResponse{data=models.Competency}
// @Failure 400 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Router /competencies [post]
func (c *CompetencyController) CreateCompetency(ctx *gin.Context) {
	var req dto.CompetencyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	competency, err := c.competencyService.Create(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("competencyID", competency.ID).Str("code", competency.Code).Msg("Competency created")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(competency, "Leistungsziel erfolgreich erstellt"))
}

// UpdateCompetency replaces a competency
// @Summary Update competency
// @Tags competencies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Competency ID"
// @Param request body dto.CompetencyRequest true "Competency"
// @Success 200 {object} dto.APIResponse{data=models.Competency}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /competencies/{id} [put]
func (c *CompetencyController) UpdateCompetency(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.CompetencyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	competency, err := c.competencyService.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(competency, "Leistungsziel erfolgreich aktualisiert"))
}

// DeleteCompetency removes a competency and its module references
// @Summary Delete competency
// @Tags competencies
// @Produce json
// @Security BearerAuth
// @Param id path int true "Competency ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /competencies/{id} [delete]
func (c *CompetencyController) DeleteCompetency(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.competencyService.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("competencyID", id).Msg("Competency deleted")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Leistungsziel erfolgreich gelöscht"))
}
