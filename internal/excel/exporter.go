// Package excel writes extraction results as a styled, titled worksheet and carries
// forward the most recent sheets of the previous export.
package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"jordanella.com/noruhunter-go/internal/logging"
)

const (
	// SheetDateLayout names dated sheets and files
	SheetDateLayout = "2006-01-02"
	// TableStyle is applied to every exported table
	TableStyle = "TableStyleLight8"
	// DefaultMaxCopiedSheets is how many prior sheets are carried forward
	DefaultMaxCopiedSheets = 6

	titleRowHeight = 25
	minColWidth    = 8
	maxColWidth    = 40
)

// Cell fills used by the extractors
const (
	FillNotInRoster  = "FFFFE0"
	FillExceedsLimit = "FFDFDF"
)

// Column is one output column
type Column struct {
	Header string
}

// Cell is one data value with an optional solid background (RRGGBB).
type Cell struct {
	Value interface{}
	Fill  string
}

// Result describes what Export wrote
type Result struct {
	Path         string
	Sheet        string
	Rows         int
	CopiedSheets []string
	SourceFile   string
}

// Exporter writes workbooks. The zero value is not usable; call NewExporter.
type Exporter struct {
	MaxCopiedSheets int
	logger          *logging.Logger
	now             func() time.Time
}

// NewExporter creates an exporter
func NewExporter(logger *logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Exporter{
		MaxCopiedSheets: DefaultMaxCopiedSheets,
		logger:          logger,
		now:             time.Now,
	}
}

// SetClock overrides the clock used to decide which file is today's
func (e *Exporter) SetClock(now func() time.Time) {
	e.now = now
}

// Export writes a new workbook at path with a single titled sheet followed by up to
// MaxCopiedSheets dated sheets from the newest earlier workbook in the same directory.
func (e *Exporter) Export(path, sheetName, title string, columns []Column, rows [][]Cell) (*Result, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("export needs at least one column")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := e.writeSheet(f, sheetName, title, columns, rows); err != nil {
		return nil, err
	}

	result := &Result{Path: path, Sheet: sheetName, Rows: len(rows)}

	source, err := FindLatestWorkbook(filepath.Dir(path), e.now())
	if err != nil {
		return nil, err
	}
	if source != "" && !samePath(source, path) {
		copied, err := e.copyRecentSheets(f, source, sheetName)
		if err != nil {
			return nil, err
		}
		result.SourceFile = source
		result.CopiedSheets = copied
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	e.logger.InfoWithContext("Workbook saved", map[string]interface{}{
		"path":   path,
		"rows":   len(rows),
		"copied": len(result.CopiedSheets),
	})
	return result, nil
}

func (e *Exporter) writeSheet(f *excelize.File, sheet, title string, columns []Column, rows [][]Cell) error {
	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}

	// Title
	if err := f.MergeCell(sheet, "A1", lastCol+"1"); err != nil {
		return fmt.Errorf("failed to merge title: %w", err)
	}
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 16, Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create title style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", titleStyle); err != nil {
		return err
	}
	if err := f.SetRowHeight(sheet, 1, titleRowHeight); err != nil {
		return err
	}

	// Header
	widths := make([]int, len(columns))
	headers := make([]interface{}, len(columns))
	for i, c := range columns {
		headers[i] = c.Header
		widths[i] = displayWidth(c.Header)
	}
	if err := f.SetSheetRow(sheet, "A2", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Data
	fills := map[string]int{}
	for r, row := range rows {
		for c := range columns {
			var cell Cell
			if c < len(row) {
				cell = row[c]
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+3)
			if err != nil {
				return err
			}
			if cell.Value != nil {
				if err := f.SetCellValue(sheet, axis, cell.Value); err != nil {
					return fmt.Errorf("failed to write %s: %w", axis, err)
				}
				if w := displayWidth(fmt.Sprint(cell.Value)); w > widths[c] {
					widths[c] = w
				}
			}
			if cell.Fill == "" {
				continue
			}
			style, ok := fills[cell.Fill]
			if !ok {
				style, err = f.NewStyle(&excelize.Style{
					Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{cell.Fill}},
				})
				if err != nil {
					return fmt.Errorf("failed to create fill %s: %w", cell.Fill, err)
				}
				fills[cell.Fill] = style
			}
			if err := f.SetCellStyle(sheet, axis, axis, style); err != nil {
				return err
			}
		}
	}

	for i, w := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, float64(clamp(w+2, minColWidth, maxColWidth))); err != nil {
			return err
		}
	}

	// An Excel table needs at least one body row.
	lastRow := len(rows) + 2
	if lastRow < 3 {
		lastRow = 3
	}
	ref := fmt.Sprintf("A2:%s%d", lastCol, lastRow)
	if err := f.SetSheetDimension(sheet, "A1:"+ref[3:]); err != nil {
		return err
	}
	stripes := true
	return f.AddTable(sheet, &excelize.Table{
		Range:          ref,
		Name:           TableName(sheet),
		StyleName:      TableStyle,
		ShowRowStripes: &stripes,
	})
}

// TableName derives the table name for a sheet
func TableName(sheet string) string {
	return "Table_" + strings.NewReplacer("-", "_", " ", "_").Replace(sheet)
}

// FindLatestWorkbook returns the most recently modified .xlsx in dir whose name does not
// start with today's date, or "" when there is none.
func FindLatestWorkbook(dir string, today time.Time) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to list %s: %w", dir, err)
	}

	prefix := today.Format(SheetDateLayout)
	var latest string
	var latestMod time.Time
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".xlsx") ||
			strings.HasPrefix(name, prefix) || strings.HasPrefix(name, "~$") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = filepath.Join(dir, name)
			latestMod = info.ModTime()
		}
	}
	return latest, nil
}

// recentSheets returns up to limit date-named sheets, newest first.
func recentSheets(names []string, limit int, exclude string) []string {
	var dated []string
	for _, n := range names {
		if n == exclude {
			continue
		}
		if _, err := time.Parse(SheetDateLayout, n); err == nil {
			dated = append(dated, n)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dated)))
	if len(dated) > limit {
		dated = dated[:limit]
	}
	return dated
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// displayWidth approximates the column width of s, counting wide characters twice.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r < utf8.RuneSelf {
			w++
		} else {
			w += 2
		}
	}
	return w
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
