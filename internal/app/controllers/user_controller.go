package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/models/dto"
	"github.com/bildungsfortschritt/api/internal/app/services"
	"github.com/bildungsfortschritt/api/internal/middleware"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
)

// UserController handles user administration and learning progress
type UserController struct {
	userService services.UserService
	logger      zerolog.Logger
}

// NewUserController creates a new UserController
func NewUserController(userService services.UserService, logger zerolog.Logger) *UserController {
	return &UserController{
		userService: userService,
		logger:      logger,
	}
}

// GetAllUsers lists every user
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.UserResponse}
// @Failure 401 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Router /user [get]
func (c *UserController) GetAllUsers(ctx *gin.Context) {
	users, err := c.userService.List(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponses(users), ""))
}

// GetMe returns the caller
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 401 {object} dto.APIResponse
// @Router /user/me [get]
func (c *UserController) GetMe(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	current, err := c.userService.Current(ctx.Request.Context(), user)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponse(current), ""))
}

// GetMyStudents lists the apprentices assigned to the calling trainer
// @Summary List assigned apprentices
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.UserResponse}
// @Failure 403 {object} dto.APIResponse
// @Router /user/bb/users [get]
func (c *UserController) GetMyStudents(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	students, err := c.userService.ListStudents(ctx.Request.Context(), user)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponses(students), ""))
}

// GetProgress returns the progress of the caller or, with an id, of another user
// @Summary Learning progress
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param id path int false "User ID, defaults to the caller"
// @Success 200 {object} dto.APIResponse{data=dto.ProgressResponse}
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /user/progress/{id} [get]
func (c *UserController) GetProgress(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}

	var targetID int64
	if raw := ctx.Param("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError("id", "Ungültige ID"))
			return
		}
		targetID = id
	}

	resp, err := c.userService.Progress(ctx.Request.Context(), user, targetID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// CompleteModule marks a module as completed by the caller
// @Summary Mark module completed
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CompleteModuleRequest true "Module"
// @Success 200 {object} dto.APIResponse{data=dto.CompleteModuleResponse}
// @Failure 400 {object} dto.APIResponse "Already completed"
// @Failure 404 {object} dto.APIResponse
// @Router /user/complete-module [post]
func (c *UserController) CompleteModule(ctx *gin.Context) {
	c.toggleModule(ctx, c.userService.CompleteModule)
}

// UncompleteModule removes a completion of the caller
// @Summary Unmark module completion
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CompleteModuleRequest true "Module"
// @Success 200 {object} dto.APIResponse{data=dto.CompleteModuleResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /user/uncomplete-module [post]
func (c *UserController) UncompleteModule(ctx *gin.Context) {
	c.toggleModule(ctx, c.userService.UncompleteModule)
}

type moduleToggle func(ctx context.Context, actor *models.User, moduleID int64) (*dto.CompleteModuleResponse, error)

func (c *UserController) toggleModule(ctx *gin.Context, toggle moduleToggle) {
	user, ok := actor(ctx)
	if !ok {
		return
	}

	var req dto.CompleteModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	resp, err := toggle(ctx.Request.Context(), user, req.ModuleID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, resp.Message))
}

// GetUserByID returns one user
// @Summary Get user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /user/{id} [get]
func (c *UserController) GetUserByID(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	target, err := c.userService.Get(ctx.Request.Context(), user, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponse(target), ""))
}

// CreateUser lets a trainer add a user
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateUserRequest true "User"
// @Success 201 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Router /user [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}

	var req dto.CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	created, err := c.userService.Create(ctx.Request.Context(), user, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewUserResponse(created), "Benutzer erfolgreich erstellt"))
}

// UpdateUser applies a partial update
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.UpdateUserRequest true "Changed fields"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /user/{id} [put]
func (c *UserController) UpdateUser(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	updated, err := c.userService.Update(ctx.Request.Context(), user, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponse(updated), "Benutzer erfolgreich aktualisiert"))
}

// DeleteUser removes a user
// @Summary Delete user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /user/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.userService.Delete(ctx.Request.Context(), user, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Benutzer erfolgreich gelöscht"))
}
