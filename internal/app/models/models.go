package models

import (
	"fmt"
	"strings"
)

// Role is derived from User.IsBB and never stored on its own
type Role string

const (
	RoleTrainer    Role = "BB"
	RoleApprentice Role = "LERNENDER"
)

// Area is a competency area, "a" through "h"
type Area string

// Areas lists every valid area in display order
var Areas = []Area{"a", "b", "c", "d", "e", "f", "g", "h"}

// ParseArea accepts an area in either case
func ParseArea(s string) (Area, error) {
	a := Area(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("invalid area %q", s)
	}
	return a, nil
}

func (a Area) Valid() bool {
	for _, v := range Areas {
		if a == v {
			return true
		}
	}
	return false
}

// Upper returns the display key used by the coverage overview
func (a Area) Upper() string {
	return strings.ToUpper(string(a))
}

// Taxonomy is the cognitive level of a competency
type Taxonomy string

const (
	TaxonomyK1 Taxonomy = "K1"
	TaxonomyK2 Taxonomy = "K2"
	TaxonomyK3 Taxonomy = "K3"
	TaxonomyK4 Taxonomy = "K4"
	TaxonomyK5 Taxonomy = "K5"
	TaxonomyK6 Taxonomy = "K6"
)

func (t Taxonomy) Valid() bool {
	switch t {
	case TaxonomyK1, TaxonomyK2, TaxonomyK3, TaxonomyK4, TaxonomyK5, TaxonomyK6:
		return true
	}
	return false
}

// ModuleType tells where a module is taught
type ModuleType string

const (
	ModuleTypeSchool  ModuleType = "BFS"
	ModuleTypeCourse  ModuleType = "ÜK"
	ModuleTypeCompany ModuleType = "BAND"
)

func (t ModuleType) Valid() bool {
	switch t {
	case ModuleTypeSchool, ModuleTypeCourse, ModuleTypeCompany:
		return true
	}
	return false
}
