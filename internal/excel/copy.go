package excel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const defaultRowHeight = 15

// copyRecentSheets appends the newest dated sheets of the workbook at source to dst.
func (e *Exporter) copyRecentSheets(dst *excelize.File, source, current string) ([]string, error) {
	src, err := excelize.OpenFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open previous workbook %s: %w", source, err)
	}
	defer src.Close()

	names := recentSheets(src.GetSheetList(), e.MaxCopiedSheets, current)
	copied := make([]string, 0, len(names))
	for _, name := range names {
		if _, err := dst.NewSheet(name); err != nil {
			return copied, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
		if err := copySheet(src, dst, name); err != nil {
			return copied, fmt.Errorf("failed to copy sheet %s: %w", name, err)
		}
		copied = append(copied, name)
	}

	if len(copied) > 0 {
		e.logger.DebugWithContext("Copied previous sheets", map[string]interface{}{
			"source": source,
			"sheets": copied,
		})
	}
	return copied, nil
}

func copySheet(src, dst *excelize.File, sheet string) error {
	merges, err := src.GetMergeCells(sheet)
	if err != nil {
		return err
	}
	tables, err := src.GetTables(sheet)
	if err != nil {
		return err
	}
	maxCol, maxRow, err := sheetExtent(src, sheet, merges, tables)
	if err != nil {
		return err
	}

	styles := map[int]int{}
	for row := 1; row <= maxRow; row++ {
		for col := 1; col <= maxCol; col++ {
			axis, _ := excelize.CoordinatesToCellName(col, row)
			if err := copyCell(src, dst, sheet, axis, styles); err != nil {
				return fmt.Errorf("%s: %w", axis, err)
			}
		}
		if h, err := src.GetRowHeight(sheet, row); err == nil && h != defaultRowHeight {
			if err := dst.SetRowHeight(sheet, row, h); err != nil {
				return err
			}
		}
	}

	for col := 1; col <= maxCol; col++ {
		name, _ := excelize.ColumnNumberToName(col)
		w, err := src.GetColWidth(sheet, name)
		if err != nil {
			return err
		}
		if err := dst.SetColWidth(sheet, name, name, w); err != nil {
			return err
		}
	}

	for _, mc := range merges {
		if err := dst.MergeCell(sheet, mc.GetStartAxis(), mc.GetEndAxis()); err != nil {
			return err
		}
	}

	if maxCol > 0 && maxRow > 0 {
		end, _ := excelize.CoordinatesToCellName(maxCol, maxRow)
		if err := dst.SetSheetDimension(sheet, "A1:"+end); err != nil {
			return err
		}
	}

	for i := range tables {
		table := tables[i]
		if err := dst.AddTable(sheet, &table); err != nil {
			return fmt.Errorf("table %s: %w", table.Name, err)
		}
	}
	return nil
}

func copyCell(src, dst *excelize.File, sheet, axis string, styles map[int]int) error {
	raw, err := src.GetCellValue(sheet, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return err
	}
	if raw != "" {
		cellType, err := src.GetCellType(sheet, axis)
		if err != nil {
			return err
		}
		if err := dst.SetCellValue(sheet, axis, typedValue(cellType, raw)); err != nil {
			return err
		}
	}

	id, err := src.GetCellStyle(sheet, axis)
	if err != nil || id == 0 {
		return err
	}
	style, ok := styles[id]
	if !ok {
		def, err := src.GetStyle(id)
		if err != nil {
			return err
		}
		if style, err = dst.NewStyle(def); err != nil {
			return err
		}
		styles[id] = style
	}
	return dst.SetCellStyle(sheet, axis, axis, style)
}

// typedValue restores numbers and booleans, which are stored without a string type.
func typedValue(t excelize.CellType, raw string) interface{} {
	switch t {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return raw
	case excelize.CellTypeBool:
		return raw == "1" || raw == "TRUE" || raw == "true"
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// sheetExtent returns the last used column and row. Styled but empty cells are only
// found through the sheet dimension, tables and merges, so all of them are consulted.
func sheetExtent(f *excelize.File, sheet string, merges []excelize.MergeCell, tables []excelize.Table) (int, int, error) {
	var maxCol, maxRow int
	grow := func(ref string) {
		if i := strings.LastIndex(ref, ":"); i >= 0 {
			ref = ref[i+1:]
		}
		if col, row, err := excelize.CellNameToCoordinates(ref); err == nil {
			if col > maxCol {
				maxCol = col
			}
			if row > maxRow {
				maxRow = row
			}
		}
	}

	if dim, err := f.GetSheetDimension(sheet); err == nil && dim != "" {
		grow(dim)
	}
	for _, mc := range merges {
		grow(mc.GetEndAxis())
	}
	for _, t := range tables {
		grow(t.Range)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) > maxRow {
		maxRow = len(rows)
	}
	for _, r := range rows {
		if len(r) > maxCol {
			maxCol = len(r)
		}
	}
	return maxCol, maxRow, nil
}
