package progress

import (
	"sort"
	"time"

	"github.com/bildungsfortschritt/api/internal/app/models"
)

// ModuleRef is the short form of a module used inside coverage entries
type ModuleRef struct {
	ID    int64             `json:"id"`
	Code  string            `json:"code"`
	Title string            `json:"title"`
	Type  models.ModuleType `json:"type"`
}

// CompetencyCoverage is a catalog competency with the modules covering it
type CompetencyCoverage struct {
	models.Competency
	IsCovered   bool        `json:"isCovered"`
	Modules     []ModuleRef `json:"modules"`
	ModuleCount int         `json:"moduleCount"`
}

// AreaStats summarizes coverage of one area
type AreaStats struct {
	Total      int `json:"total"`
	Covered    int `json:"covered"`
	Uncovered  int `json:"uncovered"`
	Percentage int `json:"percentage"`
}

// ModuleCoverage lists the competencies one module covers
type ModuleCoverage struct {
	ModuleRef
	CompetencyCount int                  `json:"competencyCount"`
	Competencies    []*models.Competency `json:"competencies"`
}

// Totals is the catalog-wide coverage summary
type Totals struct {
	TotalCompetencies  int `json:"totalCompetencies"`
	CoveredCount       int `json:"coveredCount"`
	UncoveredCount     int `json:"uncoveredCount"`
	CoveragePercentage int `json:"coveragePercentage"`
}

// Metadata describes when and over how many areas an overview was built
type Metadata struct {
	GeneratedAt time.Time `json:"generatedAt"`
	TotalAreas  int       `json:"totalAreas"`
}

// Overview is the trainer's coverage report. Area keys are upper-case.
type Overview struct {
	Overview           Totals                          `json:"overview"`
	AreaStats          map[string]AreaStats            `json:"areaStats"`
	CompetenciesByArea map[string][]CompetencyCoverage `json:"competenciesByArea"`
	Modules            []ModuleCoverage                `json:"modules"`
	Metadata           Metadata                        `json:"metadata"`
}

func sortedModules(modules []*models.Module) []*models.Module {
	out := append([]*models.Module(nil), modules...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func refOf(m *models.Module) ModuleRef {
	return ModuleRef{ID: m.ID, Code: m.Code, Title: m.Title, Type: m.Type}
}

// coverers maps each competency id to the modules referencing it, in module code order
func coverers(modules []*models.Module) map[int64][]ModuleRef {
	out := make(map[int64][]ModuleRef)
	for _, m := range sortedModules(modules) {
		seen := make(map[int64]bool, len(m.CompetencyIDs))
		for _, id := range m.CompetencyIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			out[id] = append(out[id], refOf(m))
		}
	}
	return out
}

func annotate(c *models.Competency, by map[int64][]ModuleRef) CompetencyCoverage {
	refs := by[c.ID]
	if refs == nil {
		refs = []ModuleRef{}
	}
	return CompetencyCoverage{
		Competency:  *c,
		IsCovered:   len(refs) > 0,
		Modules:     refs,
		ModuleCount: len(refs),
	}
}

// Coverage builds the coverage overview. A competency is uncovered when no
// module references it at all.
func Coverage(modules []*models.Module, catalog []*models.Competency, now time.Time) Overview {
	by := coverers(modules)

	sorted := append([]*models.Competency(nil), catalog...)
	SortCatalog(sorted)

	result := Overview{
		AreaStats:          make(map[string]AreaStats),
		CompetenciesByArea: make(map[string][]CompetencyCoverage),
		Modules:            []ModuleCoverage{},
	}

	covered := 0
	for _, c := range sorted {
		key := c.Area.Upper()
		entry := annotate(c, by)
		result.CompetenciesByArea[key] = append(result.CompetenciesByArea[key], entry)

		stats := result.AreaStats[key]
		stats.Total++
		if entry.IsCovered {
			stats.Covered++
			covered++
		} else {
			stats.Uncovered++
		}
		result.AreaStats[key] = stats
	}

	for key, stats := range result.AreaStats {
		stats.Percentage = Percent(stats.Covered, stats.Total)
		result.AreaStats[key] = stats
	}

	byID := make(map[int64]*models.Competency, len(sorted))
	for _, c := range sorted {
		byID[c.ID] = c
	}
	for _, m := range sortedModules(modules) {
		mc := ModuleCoverage{ModuleRef: refOf(m), Competencies: []*models.Competency{}}
		for _, id := range m.CompetencyIDs {
			if c, ok := byID[id]; ok {
				mc.Competencies = append(mc.Competencies, c)
			}
		}
		mc.CompetencyCount = len(mc.Competencies)
		result.Modules = append(result.Modules, mc)
	}

	result.Overview = Totals{
		TotalCompetencies:  len(sorted),
		CoveredCount:       covered,
		UncoveredCount:     len(sorted) - covered,
		CoveragePercentage: Percent(covered, len(sorted)),
	}
	result.Metadata = Metadata{GeneratedAt: now, TotalAreas: len(result.AreaStats)}
	return result
}

// ForArea returns the competencies of one area annotated with their coverers
func ForArea(area models.Area, modules []*models.Module, catalog []*models.Competency) []CompetencyCoverage {
	by := coverers(modules)

	sorted := append([]*models.Competency(nil), catalog...)
	SortCatalog(sorted)

	out := []CompetencyCoverage{}
	for _, c := range sorted {
		if c.Area == area {
			out = append(out, annotate(c, by))
		}
	}
	return out
}

// Rows flattens an overview into area then code order, which is the export order
func (o Overview) Rows() []CompetencyCoverage {
	keys := make([]string, 0, len(o.CompetenciesByArea))
	for k := range o.CompetenciesByArea {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rows []CompetencyCoverage
	for _, k := range keys {
		rows = append(rows, o.CompetenciesByArea[k]...)
	}
	return rows
}
