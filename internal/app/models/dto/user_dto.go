package dto

import (
	"time"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/progress"
)

// UserResponse is the sanitized user; it never carries the password hash
type UserResponse struct {
	ID               int64                     `json:"id"`
	Email            string                    `json:"email"`
	IsBB             bool                      `json:"isBB"`
	Role             models.Role               `json:"role" enums:"BB,LERNENDER"`
	FirstName        string                    `json:"firstName"`
	LastName         string                    `json:"lastName"`
	Lehrjahr         *int                      `json:"lehrjahr,omitempty"`
	Berufsbildner    []int64                   `json:"berufsbildner"`
	CompletedModules []CompletedModuleResponse `json:"completedModules"`
	CreatedAt        time.Time                 `json:"createdAt"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
}

// CompletedModuleResponse is one entry of a user's completed modules. Module
// is set when the caller populated it.
type CompletedModuleResponse struct {
	ModuleID    int64          `json:"moduleId"`
	Module      *models.Module `json:"module,omitempty"`
	CompletedAt time.Time      `json:"completedAt"`
}

// NewUserResponse maps a user model to its response
func NewUserResponse(user *models.User) *UserResponse {
	if user == nil {
		return nil
	}

	resp := &UserResponse{
		ID:               user.ID,
		Email:            user.Email,
		IsBB:             user.IsBB,
		Role:             user.Role(),
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		Lehrjahr:         user.Lehrjahr,
		Berufsbildner:    user.BerufsbildnerIDs,
		CompletedModules: make([]CompletedModuleResponse, 0, len(user.CompletedModules)),
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
	}
	if resp.Berufsbildner == nil {
		resp.Berufsbildner = []int64{}
	}
	for _, cm := range user.CompletedModules {
		resp.CompletedModules = append(resp.CompletedModules, CompletedModuleResponse{
			ModuleID:    cm.ModuleID,
			Module:      cm.Module,
			CompletedAt: cm.CompletedAt,
		})
	}
	return resp
}

// NewUserResponses maps a list of users
func NewUserResponses(users []*models.User) []*UserResponse {
	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

// CreateUserRequest is used by trainers to add users
type CreateUserRequest struct {
	Email            string  `json:"email" binding:"required,email"`
	Password         string  `json:"password" binding:"required,password"`
	FirstName        string  `json:"firstName" binding:"omitempty,personname"`
	LastName         string  `json:"lastName" binding:"omitempty,personname"`
	IsBB             bool    `json:"isBB"`
	Lehrjahr         *int    `json:"lehrjahr" binding:"omitempty,min=1,max=4"`
	BerufsbildnerIDs []int64 `json:"berufsbildnerIds" binding:"omitempty,dive,min=1"`
}

// UpdateUserRequest is a partial update; nil fields are left unchanged.
// IsBB and BerufsbildnerIDs are honored for trainers only.
type UpdateUserRequest struct {
	Email            *string  `json:"email" binding:"omitempty,email"`
	FirstName        *string  `json:"firstName" binding:"omitempty,personname"`
	LastName         *string  `json:"lastName" binding:"omitempty,personname"`
	Lehrjahr         *int     `json:"lehrjahr" binding:"omitempty,min=1,max=4"`
	IsBB             *bool    `json:"isBB"`
	BerufsbildnerIDs *[]int64 `json:"berufsbildnerIds" binding:"omitempty,dive,min=1"`
}

// CompleteModuleRequest names the module to mark or unmark
type CompleteModuleRequest struct {
	ModuleID int64 `json:"moduleId" binding:"required,min=1"`
}

// CompleteModuleResponse is returned after toggling a completion
type CompleteModuleResponse struct {
	Message          string                    `json:"message"`
	CompletedModules []CompletedModuleResponse `json:"completedModules"`
	OverallProgress  progress.Summary          `json:"overallProgress"`
}

// ProgressResponse is a user's competency progress per area
type ProgressResponse struct {
	User *UserResponse `json:"user"`
	progress.UserProgress
}
