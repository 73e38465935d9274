package models

import "time"

// Module is a unit of training that covers a set of competencies
type Module struct {
	ID              int64         `json:"id" db:"id"`
	Code            string        `json:"code" db:"code" example:"M319"`
	Title           string        `json:"title" db:"title"`
	Type            ModuleType    `json:"type" db:"type" example:"BFS"`
	Description     string        `json:"description,omitempty" db:"description"`
	Duration        *int          `json:"duration,omitempty" db:"duration"` // weeks
	PrerequisiteIDs []int64       `json:"prerequisites"`
	CompetencyIDs   []int64       `json:"competencyIds"`
	Competencies    []*Competency `json:"competencies,omitempty"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" db:"updated_at"`
}
