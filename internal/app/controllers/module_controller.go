package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bildungsfortschritt/api/internal/app/models/dto"
	"github.com/bildungsfortschritt/api/internal/app/services"
	"github.com/bildungsfortschritt/api/internal/middleware"
)

// ModuleController handles training module endpoints
type ModuleController struct {
	moduleService services.ModuleService
	logger        zerolog.Logger
}

// NewModuleController creates a new ModuleController
func NewModuleController(moduleService services.ModuleService, logger zerolog.Logger) *ModuleController {
	return &ModuleController{
		moduleService: moduleService,
		logger:        logger,
	}
}

// GetAllModules lists modules, optionally filtered by type and search text
// @Summary List modules
// @Tags modules
// @Produce json
// @Param type query string false "BFS, BAND or ÜK"
// @Param q query string false "Search in code and title"
// @Success 200 {object} dto.APIResponse{data=[]models.Module}
// @Router /modules [get]
func (c *ModuleController) GetAllModules(ctx *gin.Context) {
	var query dto.ModuleListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	modules, err := c.moduleService.List(ctx.Request.Context(), &query)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(modules, ""))
}

// GetModulesWithProgress lists every module with the caller's completion state
// @Summary List modules with completion state
// @Tags modules
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ModulesWithProgressResponse}
// @Failure 401 {object} dto.APIResponse
// @Router /modules/with-progress [get]
func (c *ModuleController) GetModulesWithProgress(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}

	resp, err := c.moduleService.WithProgress(ctx.Request.Context(), user)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// GetModuleByID returns one module with its competencies
// @Summary Get module
// @Tags modules
// @Produce json
// @Param id path int true "Module ID"
// @Success 200 {object} dto.APIResponse{data=models.Module}
// @Failure 404 {object} dto.APIResponse
// @Router /modules/{id} [get]
func (c *ModuleController) GetModuleByID(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	module, err := c.moduleService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(module, ""))
}

// CreateModule adds a module
// @Summary Create module
// @Tags modules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ModuleRequest true "Module"
// @Success 201 {object} dto.APIResponse{data=models.Module}
// @Failure 400 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Router /modules [post]
func (c *ModuleController) CreateModule(ctx *gin.Context) {
	var req dto.ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	module, err := c.moduleService.Create(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("moduleID", module.ID).Str("code", module.Code).Msg("Module created")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(module, "Modul erfolgreich erstellt"))
}

// UpdateModule replaces a module
// @Summary Update module
// @Tags modules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Module ID"
// @Param request body dto.ModuleRequest true "Module"
// @Success 200 {object} dto.APIResponse{data=models.Module}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /modules/{id} [put]
func (c *ModuleController) UpdateModule(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	module, err := c.moduleService.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(module, "Modul erfolgreich aktualisiert"))
}

// DeleteModule removes a module together with its completions
// @Summary Delete module
// @Tags modules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Module ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /modules/{id} [delete]
func (c *ModuleController) DeleteModule(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.moduleService.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("moduleID", id).Msg("Module deleted")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Modul erfolgreich gelöscht"))
}
