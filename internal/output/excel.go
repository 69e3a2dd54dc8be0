// internal/output/excel.go
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/recipevault/pkg/types"
)

const (
	// DefaultSummarySheet lists every recipe on one row.
	DefaultSummarySheet = "Recipes"
	// maxSheetName is the Excel limit on sheet name length.
	maxSheetName = 31
	// maxCellLength is the Excel limit on characters in one cell.
	maxCellLength = 32767
)

// ExcelOptions tune workbook output.
type ExcelOptions struct {
	SummarySheet string
	// SkipDetailSheets omits the per-recipe sheets.
	SkipDetailSheets bool
	ColumnWidths     map[string]float64
}

// ExcelWriter writes a workbook with a summary sheet and one sheet per
// recipe holding its ingredient and instruction columns.
type ExcelWriter struct {
	opts ExcelOptions
}

// NewExcelWriter creates a new Excel writer
func NewExcelWriter(opts ExcelOptions) *ExcelWriter {
	if opts.SummarySheet == "" {
		opts.SummarySheet = DefaultSummarySheet
	}
	return &ExcelWriter{opts: opts}
}

// Format implements Writer.
func (w *ExcelWriter) Format() Format { return FormatExcel }

// Write implements Writer.
func (w *ExcelWriter) Write(out io.Writer, recipes []types.Recipe) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName(file.GetSheetName(0), w.opts.SummarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}
	wrapStyle, err := file.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return err
	}

	if err := w.writeSummary(file, recipes, headerStyle, wrapStyle); err != nil {
		return err
	}

	if !w.opts.SkipDetailSheets {
		used := map[string]bool{strings.ToLower(w.opts.SummarySheet): true}
		for i := range recipes {
			name := uniqueSheetName(detailSheetName(i+1, recipes[i].Title), used)
			if err := w.writeDetail(file, name, &recipes[i], headerStyle, wrapStyle); err != nil {
				return fmt.Errorf("failed to write sheet %q: %w", name, err)
			}
		}
	}

	file.SetActiveSheet(0)
	return file.Write(out)
}

func (w *ExcelWriter) writeSummary(file *excelize.File, recipes []types.Recipe, headerStyle, wrapStyle int) error {
	sheet := w.opts.SummarySheet
	if err := file.SetSheetRow(sheet, "A1", &recipeColumns); err != nil {
		return err
	}
	lastCol := columnName(len(recipeColumns))
	if err := file.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i := range recipes {
		r := &recipes[i]
		row := i + 2
		values := []interface{}{
			r.ID,
			r.Title,
			r.URL,
			r.ImageURL(),
			r.ScrapedAt.UTC().Format(timeLayout),
			formatOptionalTime(r),
			truncateCell(strings.Join(r.Ingredients, "\n")),
			truncateCell(strings.Join(r.Instructions, "\n")),
		}
		cell := "A" + strconv.Itoa(row)
		if err := file.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		if r.URL != "" {
			if err := file.SetCellHyperLink(sheet, "C"+strconv.Itoa(row), r.URL, "External"); err != nil {
				return err
			}
		}
	}

	if len(recipes) > 0 {
		lastRow := strconv.Itoa(len(recipes) + 1)
		if err := file.SetCellStyle(sheet, "A2", lastCol+lastRow, wrapStyle); err != nil {
			return err
		}
		if err := file.AutoFilter(sheet, "A1:"+lastCol+lastRow, nil); err != nil {
			return err
		}
	}

	widths := map[string]float64{
		"id": 6, "title": 30, "url": 40, "image": 30,
		"scraped_at": 20, "created_at": 20, "ingredients": 50, "instructions": 60,
	}
	for name, width := range w.opts.ColumnWidths {
		widths[name] = width
	}
	for col, header := range recipeColumns {
		name := columnName(col + 1)
		if err := file.SetColWidth(sheet, name, name, widths[header]); err != nil {
			return err
		}
	}

	return file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (w *ExcelWriter) writeDetail(file *excelize.File, sheet string, r *types.Recipe, headerStyle, wrapStyle int) error {
	if _, err := file.NewSheet(sheet); err != nil {
		return err
	}

	if err := file.SetCellValue(sheet, "A1", r.Title); err != nil {
		return err
	}
	if err := file.SetCellValue(sheet, "A2", r.URL); err != nil {
		return err
	}
	if r.URL != "" {
		if err := file.SetCellHyperLink(sheet, "A2", r.URL, "External"); err != nil {
			return err
		}
	}

	header := []interface{}{"Ingredients", "Instructions"}
	if err := file.SetSheetRow(sheet, "A4", &header); err != nil {
		return err
	}
	if err := file.SetCellStyle(sheet, "A1", "A1", headerStyle); err != nil {
		return err
	}
	if err := file.SetCellStyle(sheet, "A4", "B4", headerStyle); err != nil {
		return err
	}

	rows := len(r.Ingredients)
	if len(r.Instructions) > rows {
		rows = len(r.Instructions)
	}
	for i := 0; i < rows; i++ {
		row := strconv.Itoa(i + 5)
		if i < len(r.Ingredients) {
			if err := file.SetCellStr(sheet, "A"+row, truncateCell(r.Ingredients[i])); err != nil {
				return err
			}
		}
		if i < len(r.Instructions) {
			step := fmt.Sprintf("%d. %s", i+1, r.Instructions[i])
			if err := file.SetCellStr(sheet, "B"+row, truncateCell(step)); err != nil {
				return err
			}
		}
	}
	if rows > 0 {
		if err := file.SetCellStyle(sheet, "A5", "B"+strconv.Itoa(rows+4), wrapStyle); err != nil {
			return err
		}
	}

	if err := file.SetColWidth(sheet, "A", "A", 45); err != nil {
		return err
	}
	return file.SetColWidth(sheet, "B", "B", 80)
}

func formatOptionalTime(r *types.Recipe) string {
	if r.CreatedAt.IsZero() {
		return ""
	}
	return r.CreatedAt.UTC().Format(timeLayout)
}

func truncateCell(s string) string {
	if len(s) <= maxCellLength {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxCellLength {
		return s
	}
	return string(runes[:maxCellLength])
}

// detailSheetName builds "<n> <title>" without the characters Excel forbids.
func detailSheetName(n int, title string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, title)
	clean = strings.Trim(strings.TrimSpace(clean), "'")

	name := strconv.Itoa(n)
	if clean != "" {
		name += " " + clean
	}
	runes := []rune(name)
	if len(runes) > maxSheetName {
		name = strings.TrimSpace(string(runes[:maxSheetName]))
	}
	return name
}

// uniqueSheetName suffixes name until it is unused. Excel compares sheet
// names case-insensitively.
func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		runes := []rune(name)
		if len(runes)+len(suffix) > maxSheetName {
			runes = runes[:maxSheetName-len(suffix)]
		}
		candidate = string(runes) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// columnName converts a column number to Excel column name (A, B, C, ..., AA, AB, etc.)
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
