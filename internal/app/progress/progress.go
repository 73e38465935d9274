// Package progress computes per-user competency progress and catalog coverage.
// It performs no I/O; callers pass in the catalog and modules they loaded.
package progress

import (
	"sort"
	"time"

	"github.com/bildungsfortschritt/api/internal/app/models"
)

// Percent rounds 100*part/whole half up. A zero whole yields 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return (200*part + whole) / (2 * whole)
}

// Summary is a completed/total pair with its rounded percentage
type Summary struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

func newSummary(completed, total int) Summary {
	return Summary{Completed: completed, Total: total, Percentage: Percent(completed, total)}
}

// CompetencyStatus is a catalog competency annotated for one user
type CompetencyStatus struct {
	models.Competency
	Completed bool `json:"completed"`
}

// AreaProgress is a user's progress within one area
type AreaProgress struct {
	Completed    int                `json:"completed"`
	Total        int                `json:"total"`
	Percentage   int                `json:"percentage"`
	Competencies []CompetencyStatus `json:"competencies"`
}

// UserProgress is keyed by lower-case area
type UserProgress struct {
	Progress map[string]*AreaProgress `json:"progress"`
	Overall  Summary                  `json:"overallProgress"`
}

// SortCatalog orders competencies by area, then code
func SortCatalog(catalog []*models.Competency) {
	sort.SliceStable(catalog, func(i, j int) bool {
		if catalog[i].Area != catalog[j].Area {
			return catalog[i].Area < catalog[j].Area
		}
		return catalog[i].Code < catalog[j].Code
	})
}

// Reachable returns the union of competency ids over the given modules
func Reachable(modules []*models.Module) map[int64]struct{} {
	reached := make(map[int64]struct{})
	for _, m := range modules {
		if m == nil {
			continue
		}
		for _, id := range m.CompetencyIDs {
			reached[id] = struct{}{}
		}
	}
	return reached
}

// ForUser computes progress from the modules a user completed. Only
// competencies present in the catalog are counted, and only areas that
// occur in the catalog appear in the result.
func ForUser(completed []*models.Module, catalog []*models.Competency) UserProgress {
	reached := Reachable(completed)

	sorted := append([]*models.Competency(nil), catalog...)
	SortCatalog(sorted)

	result := UserProgress{Progress: make(map[string]*AreaProgress)}
	done := 0
	for _, c := range sorted {
		area, ok := result.Progress[string(c.Area)]
		if !ok {
			area = &AreaProgress{Competencies: []CompetencyStatus{}}
			result.Progress[string(c.Area)] = area
		}

		_, isDone := reached[c.ID]
		area.Total++
		if isDone {
			area.Completed++
			done++
		}
		area.Competencies = append(area.Competencies, CompetencyStatus{Competency: *c, Completed: isDone})
	}

	for _, area := range result.Progress {
		area.Percentage = Percent(area.Completed, area.Total)
	}
	result.Overall = newSummary(done, len(sorted))
	return result
}

// ModuleProgress is a module annotated with the caller's completion state
type ModuleProgress struct {
	models.Module
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}

// ForModules annotates every module with the completion state from completed
func ForModules(modules []*models.Module, completed []models.CompletedModule) ([]ModuleProgress, Summary) {
	at := make(map[int64]time.Time, len(completed))
	for _, cm := range completed {
		at[cm.ModuleID] = cm.CompletedAt
	}

	out := make([]ModuleProgress, 0, len(modules))
	done := 0
	for _, m := range modules {
		mp := ModuleProgress{Module: *m}
		if t, ok := at[m.ID]; ok {
			t := t
			mp.Completed = true
			mp.CompletedAt = &t
			done++
		}
		out = append(out, mp)
	}
	return out, newSummary(done, len(modules))
}
