package progress

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bildungsfortschritt/api/internal/app/models"
)

func comp(id int64, code string, area models.Area) *models.Competency {
	return &models.Competency{ID: id, Code: code, Title: code, Area: area, Taxonomy: models.TaxonomyK3}
}

func mod(id int64, code string, competencyIDs ...int64) *models.Module {
	return &models.Module{ID: id, Code: code, Title: code, Type: models.ModuleTypeSchool, CompetencyIDs: competencyIDs}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		part, whole, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13}, // 12.5 rounds up
		{3, 5, 60},
		{5, 5, 100},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Percent(tc.part, tc.whole), "%d/%d", tc.part, tc.whole)
	}
}

func TestForUser(t *testing.T) {
	catalog := []*models.Competency{
		comp(1, "A1.1", "a"),
		comp(2, "A1.2", "a"),
		comp(3, "A1.3", "a"),
		comp(4, "B1.1", "b"),
	}

	t.Run("partial completion", func(t *testing.T) {
		got := ForUser([]*models.Module{mod(10, "M106", 1, 4)}, catalog)

		require.Len(t, got.Progress, 2)
		a := got.Progress["a"]
		assert.Equal(t, 1, a.Completed)
		assert.Equal(t, 3, a.Total)
		assert.Equal(t, 33, a.Percentage)
		require.Len(t, a.Competencies, 3)
		assert.True(t, a.Competencies[0].Completed)
		assert.False(t, a.Competencies[1].Completed)

		assert.Equal(t, 100, got.Progress["b"].Percentage)
		assert.Equal(t, Summary{Completed: 2, Total: 4, Percentage: 50}, got.Overall)
	})

	t.Run("overlapping modules count once", func(t *testing.T) {
		got := ForUser([]*models.Module{mod(10, "M106", 1, 2), mod(11, "M114", 2)}, catalog)
		assert.Equal(t, 2, got.Overall.Completed)
	})

	t.Run("unknown competency ids are ignored", func(t *testing.T) {
		got := ForUser([]*models.Module{mod(10, "M106", 99)}, catalog)
		assert.Equal(t, 0, got.Overall.Completed)
	})

	t.Run("empty catalog", func(t *testing.T) {
		got := ForUser([]*models.Module{mod(10, "M106", 1)}, nil)
		assert.Empty(t, got.Progress)
		assert.Equal(t, Summary{}, got.Overall)
	})

	t.Run("unmark restores previous state", func(t *testing.T) {
		before := ForUser(nil, catalog)
		marked := ForUser([]*models.Module{mod(10, "M106", 1)}, catalog)
		after := ForUser(nil, catalog)

		assert.NotEqual(t, before.Overall, marked.Overall)
		assert.Equal(t, before, after)
	})
}

func TestCoverage(t *testing.T) {
	catalog := []*models.Competency{
		comp(1, "A1.1", "a"),
		comp(2, "A1.2", "a"),
		comp(3, "B1.1", "b"),
		comp(4, "C1.1", "c"),
		comp(5, "G1.1", "g"),
	}
	modules := []*models.Module{
		mod(20, "M319", 1, 3),
		mod(21, "M106", 1, 2),
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	got := Coverage(modules, catalog, now)

	assert.Equal(t, Totals{TotalCompetencies: 5, CoveredCount: 3, UncoveredCount: 2, CoveragePercentage: 60}, got.Overview)
	assert.Equal(t, AreaStats{Total: 2, Covered: 2, Uncovered: 0, Percentage: 100}, got.AreaStats["A"])
	assert.Equal(t, AreaStats{Total: 1, Covered: 0, Uncovered: 1, Percentage: 0}, got.AreaStats["G"])
	assert.Equal(t, 4, got.Metadata.TotalAreas)
	assert.Equal(t, now, got.Metadata.GeneratedAt)

	a11 := got.CompetenciesByArea["A"][0]
	assert.Equal(t, "A1.1", a11.Code)
	assert.True(t, a11.IsCovered)
	require.Len(t, a11.Modules, 2)
	assert.Equal(t, "M106", a11.Modules[0].Code, "coverers follow module code order")
	assert.Equal(t, 2, a11.ModuleCount)

	require.Len(t, got.Modules, 2)
	assert.Equal(t, "M106", got.Modules[0].Code)
	assert.Equal(t, 2, got.Modules[0].CompetencyCount)

	rows := got.Rows()
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"A1.1", "A1.2", "B1.1", "C1.1", "G1.1"},
		[]string{rows[0].Code, rows[1].Code, rows[2].Code, rows[3].Code, rows[4].Code})
}

func TestCoverage_SixOfTen(t *testing.T) {
	var catalog []*models.Competency
	var covered []int64
	for i := int64(1); i <= 10; i++ {
		catalog = append(catalog, comp(i, fmt.Sprintf("A1.%d", i), "a"))
		if i <= 6 {
			covered = append(covered, i)
		}
	}

	o := Coverage([]*models.Module{mod(100, "M100", covered...)}, catalog, time.Now())
	assert.Equal(t, Totals{TotalCompetencies: 10, CoveredCount: 6, UncoveredCount: 4, CoveragePercentage: 60}, o.Overview)
	assert.Equal(t, AreaStats{Total: 10, Covered: 6, Uncovered: 4, Percentage: 60}, o.AreaStats["A"])
}

func TestCoverage_EmptyCatalog(t *testing.T) {
	got := Coverage(nil, nil, time.Now())

	assert.Equal(t, Totals{}, got.Overview)
	assert.Empty(t, got.AreaStats)
	assert.Empty(t, got.CompetenciesByArea)
	assert.Empty(t, got.Modules)

	body, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"areaStats":{}`)
	assert.Contains(t, string(body), `"modules":[]`)
}

func TestForArea(t *testing.T) {
	catalog := []*models.Competency{comp(1, "A1.1", "a"), comp(2, "B1.1", "b")}
	got := ForArea("a", []*models.Module{mod(10, "M106", 1)}, catalog)

	require.Len(t, got, 1)
	assert.True(t, got[0].IsCovered)
	assert.Equal(t, "M106", got[0].Modules[0].Code)

	assert.Empty(t, ForArea("h", nil, catalog))
}

func TestForModules(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	modules := []*models.Module{mod(1, "M106"), mod(2, "M114"), mod(3, "M319")}

	out, stats := ForModules(modules, []models.CompletedModule{{ModuleID: 2, CompletedAt: at}})

	require.Len(t, out, 3)
	assert.False(t, out[0].Completed)
	assert.Nil(t, out[0].CompletedAt)
	assert.True(t, out[1].Completed)
	assert.Equal(t, at, *out[1].CompletedAt)
	assert.Equal(t, Summary{Completed: 1, Total: 3, Percentage: 33}, stats)
}
