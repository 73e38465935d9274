// Package export renders the competency coverage overview as CSV or XLSX
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bildungsfortschritt/api/internal/app/progress"
)

// Supported formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Status labels of the coverage column
const (
	StatusCovered   = "Abgedeckt"
	StatusUncovered = "Fehlend"
)

// Header is the column layout of the competency sheet
var Header = []string{"Bereich", "Code", "Titel", "Beschreibung", "Taxonomie", "Status", "Module"}

var areaHeader = []string{"Bereich", "Total", "Abgedeckt", "Fehlend", "Prozent"}

// File is a rendered export ready to be sent
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Filename builds leistungsziele_uebersicht_<date>.<ext>
func Filename(now time.Time, ext string) string {
	return fmt.Sprintf("leistungsziele_uebersicht_%s.%s", now.Format("2006-01-02"), ext)
}

// Rows flattens the overview into sheet rows in area, then code order
func Rows(o progress.Overview) [][]string {
	entries := o.Rows()
	rows := make([][]string, 0, len(entries))
	for _, c := range entries {
		status := StatusUncovered
		if c.IsCovered {
			status = StatusCovered
		}
		codes := make([]string, 0, len(c.Modules))
		for _, m := range c.Modules {
			codes = append(codes, m.Code)
		}
		rows = append(rows, []string{
			c.Area.Upper(),
			c.Code,
			c.Title,
			c.Description,
			string(c.Taxonomy),
			status,
			strings.Join(codes, "; "),
		})
	}
	return rows
}

func areaRows(o progress.Overview) [][]string {
	keys := make([]string, 0, len(o.AreaStats))
	for k := range o.AreaStats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys)+1)
	for _, k := range keys {
		s := o.AreaStats[k]
		rows = append(rows, []string{k, strconv.Itoa(s.Total), strconv.Itoa(s.Covered), strconv.Itoa(s.Uncovered), strconv.Itoa(s.Percentage)})
	}
	t := o.Overview
	rows = append(rows, []string{"Total", strconv.Itoa(t.TotalCompetencies), strconv.Itoa(t.CoveredCount), strconv.Itoa(t.UncoveredCount), strconv.Itoa(t.CoveragePercentage)})
	return rows
}

// csvSafe keeps spreadsheet programs from evaluating a cell as a formula
func csvSafe(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

// WriteCoverageCSV writes a header and one row per competency. Cells that a
// spreadsheet would read as a formula are prefixed with a quote.
func WriteCoverageCSV(w io.Writer, o progress.Overview) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range Rows(o) {
		for i := range row {
			row[i] = csvSafe(row[i])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

type sheetSpec struct {
	title  string
	header []string
	rows   [][]string
}

// NewCoverageWorkbook builds a workbook with the competency sheet and the per area stats
func NewCoverageWorkbook(o progress.Overview) (*excelize.File, error) {
	sheets := []sheetSpec{
		{title: "Leistungsziele", header: Header, rows: Rows(o)},
		{title: "Bereiche", header: areaHeader, rows: areaRows(o)},
	}

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.title); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.title); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		if err := writeRow(f, s.title, 1, s.header); err != nil {
			return nil, err
		}
		lastCol, err := excelize.ColumnNumberToName(len(s.header))
		if err != nil {
			return nil, fmt.Errorf("header width: %w", err)
		}
		end := lastCol + "1"
		if err := f.SetCellStyle(s.title, "A1", end, bold); err != nil {
			return nil, fmt.Errorf("style header of %s: %w", s.title, err)
		}
		if err := f.AutoFilter(s.title, "A1:"+end, nil); err != nil {
			return nil, fmt.Errorf("autofilter %s: %w", s.title, err)
		}

		for r, row := range s.rows {
			if err := writeRow(f, s.title, r+2, row); err != nil {
				return nil, err
			}
		}

		// width from the header and the first 50 rows, clamped to 12..40
		for c := 1; c <= len(s.header); c++ {
			widest := len([]rune(s.header[c-1]))
			for r := 0; r < min(50, len(s.rows)); r++ {
				if l := len([]rune(s.rows[r][c-1])); l > widest {
					widest = l
				}
			}
			w := min(max(float64(widest)*0.9, 12), 40)
			name, err := excelize.ColumnNumberToName(c)
			if err != nil {
				return nil, fmt.Errorf("column %d: %w", c, err)
			}
			if err := f.SetColWidth(s.title, name, name, w); err != nil {
				return nil, fmt.Errorf("set width of %s!%s: %w", s.title, name, err)
			}
		}
	}
	return f, nil
}

// Render produces the export in the requested format; "" means csv
func Render(format string, o progress.Overview, now time.Time) (*File, error) {
	switch format {
	case "", FormatCSV:
		var buf bytes.Buffer
		// UTF-8 BOM
		buf.WriteString("\ufeff")
		if err := WriteCoverageCSV(&buf, o); err != nil {
			return nil, err
		}
		return &File{Name: Filename(now, FormatCSV), ContentType: "text/csv; charset=utf-8", Data: buf.Bytes()}, nil

	case FormatXLSX:
		f, err := NewCoverageWorkbook(o)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		buf, err := f.WriteToBuffer()
		if err != nil {
			return nil, fmt.Errorf("write workbook: %w", err)
		}
		return &File{
			Name:        Filename(now, FormatXLSX),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        buf.Bytes(),
		}, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	for c, val := range values {
		cell, err := excelize.CoordinatesToCellName(c+1, row)
		if err != nil {
			return fmt.Errorf("cell %d,%d: %w", c+1, row, err)
		}
		if err := f.SetCellStr(sheet, cell, val); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
