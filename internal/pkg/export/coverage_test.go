package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/progress"
)

func sampleOverview() progress.Overview {
	catalog := []*models.Competency{
		{ID: 1, Code: "B1.1", Title: "Datenbank", Description: "Entwirft Tabellen", Area: "b", Taxonomy: models.TaxonomyK3},
		{ID: 2, Code: "A1.1", Title: "Auftrag klären", Description: "Klärt Anforderungen", Area: "a", Taxonomy: models.TaxonomyK2},
		{ID: 3, Code: "A1.2", Title: "Planen", Description: "Plant, prüft", Area: "a", Taxonomy: models.TaxonomyK4},
	}
	modules := []*models.Module{
		{ID: 10, Code: "M319", Title: "Applikationen entwerfen", Type: models.ModuleTypeSchool, CompetencyIDs: []int64{2}},
		{ID: 11, Code: "M106", Title: "Datenbanken abfragen", Type: models.ModuleTypeSchool, CompetencyIDs: []int64{1, 2}},
	}
	return progress.Coverage(modules, catalog, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
}

func TestRows(t *testing.T) {
	rows := Rows(sampleOverview())
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"A", "A1.1", "Auftrag klären", "Klärt Anforderungen", "K2", StatusCovered, "M106; M319"}, rows[0])
	assert.Equal(t, "A1.2", rows[1][1])
	assert.Equal(t, StatusUncovered, rows[1][5])
	assert.Equal(t, "", rows[1][6])
	assert.Equal(t, "B", rows[2][0])
}

func TestWriteCoverageCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCoverageCSV(&buf, sampleOverview()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, Header, records[0])
	// embedded comma survives quoting
	assert.Equal(t, "Plant, prüft", records[2][3])
}

func TestRender(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	f, err := Render("", sampleOverview(), now)
	require.NoError(t, err)
	assert.Equal(t, "leistungsziele_uebersicht_2025-03-01.csv", f.Name)
	assert.True(t, strings.HasPrefix(string(f.Data), "\ufeffBereich,Code"))

	f, err = Render(FormatXLSX, sampleOverview(), now)
	require.NoError(t, err)
	assert.Equal(t, "leistungsziele_uebersicht_2025-03-01.xlsx", f.Name)

	book, err := excelize.OpenReader(bytes.NewReader(f.Data))
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{"Leistungsziele", "Bereiche"}, book.GetSheetList())

	rows, err := book.GetRows("Leistungsziele")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "M106; M319", rows[1][6])

	areas, err := book.GetRows("Bereiche")
	require.NoError(t, err)
	require.Len(t, areas, 4)
	assert.Equal(t, []string{"A", "2", "1", "1", "50"}, areas[1])
	assert.Equal(t, []string{"Total", "3", "2", "1", "67"}, areas[3])

	_, err = Render("pdf", sampleOverview(), now)
	assert.Error(t, err)
}

func TestRender_EmptyOverview(t *testing.T) {
	empty := progress.Coverage(nil, nil, time.Now())

	f, err := Render(FormatCSV, empty, time.Now())
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(f.Data, []byte("\ufeff")))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = Render(FormatXLSX, empty, time.Now())
	assert.NoError(t, err)
}

func TestWriteCoverageCSV_FormulaCells(t *testing.T) {
	catalog := []*models.Competency{
		{ID: 1, Code: "A1.1", Title: "=HYPERLINK(\"http://x\")", Description: "+1", Area: "a", Taxonomy: models.TaxonomyK1},
		{ID: 2, Code: "A1.2", Title: "@SUM(A1)", Description: "-2", Area: "a", Taxonomy: models.TaxonomyK1},
		{ID: 3, Code: "A1.3", Title: "Normal", Description: "a=b", Area: "a", Taxonomy: models.TaxonomyK1},
	}
	o := progress.Coverage(nil, catalog, time.Now())

	var buf bytes.Buffer
	require.NoError(t, WriteCoverageCSV(&buf, o))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "'=HYPERLINK(\"http://x\")", records[1][2])
	assert.Equal(t, "'+1", records[1][3])
	assert.Equal(t, "'@SUM(A1)", records[2][2])
	assert.Equal(t, "'-2", records[2][3])
	assert.Equal(t, "Normal", records[3][2])
	assert.Equal(t, "a=b", records[3][3])

	// the workbook stores strings, so it keeps the text unchanged
	book, err := NewCoverageWorkbook(o)
	require.NoError(t, err)
	defer book.Close()
	v, err := book.GetCellValue("Leistungsziele", "C2")
	require.NoError(t, err)
	assert.Equal(t, "=HYPERLINK(\"http://x\")", v)
}
