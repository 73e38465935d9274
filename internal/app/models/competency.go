package models

import "time"

// Competency is a "Leistungsziel" of the curriculum
type Competency struct {
	ID          int64     `json:"id" db:"id"`
	Code        string    `json:"code" db:"code" example:"A1.1"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Area        Area      `json:"area" db:"area" example:"a"`
	Taxonomy    Taxonomy  `json:"taxonomy" db:"taxonomy" example:"K3"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
