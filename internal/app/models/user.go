package models

import (
	"time"
)

// User is either a trainer (IsBB) or an apprentice
type User struct {
	ID               int64             `json:"id" db:"id" example:"1"`
	Email            string            `json:"email" db:"email" example:"lernender@example.com"`
	Password         string            `json:"-" db:"password"` // bcrypt hash, never serialized
	IsBB             bool              `json:"isBB" db:"is_bb"`
	FirstName        string            `json:"firstName" db:"first_name" example:"Max"`
	LastName         string            `json:"lastName" db:"last_name" example:"Muster"`
	Lehrjahr         *int              `json:"lehrjahr,omitempty" db:"lehrjahr" example:"2"`
	BerufsbildnerIDs []int64           `json:"berufsbildner"`
	CompletedModules []CompletedModule `json:"completedModules"`
	CreatedAt        time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time         `json:"updatedAt" db:"updated_at"`
}

// CompletedModule records when a user finished a module
type CompletedModule struct {
	ModuleID    int64     `json:"moduleId" db:"module_id"`
	CompletedAt time.Time `json:"completedAt" db:"completed_at"`
	Module      *Module   `json:"module,omitempty"`
}

// Role derives the user's role from IsBB
func (u *User) Role() Role {
	if u.IsBB {
		return RoleTrainer
	}
	return RoleApprentice
}

// HasCompleted reports whether moduleID is in the user's completed list
func (u *User) HasCompleted(moduleID int64) bool {
	for _, cm := range u.CompletedModules {
		if cm.ModuleID == moduleID {
			return true
		}
	}
	return false
}

// HasTrainer reports whether trainerID is one of the user's Berufsbildner
func (u *User) HasTrainer(trainerID int64) bool {
	for _, id := range u.BerufsbildnerIDs {
		if id == trainerID {
			return true
		}
	}
	return false
}
