package segment

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelLoader extracts units from spreadsheet workbooks: every non-empty
// cell becomes one unit, sheet by sheet in row-major order.
type ExcelLoader struct{}

// LoadSegments implements Loader.
func (ExcelLoader) LoadSegments(ctx context.Context, path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("segment: open workbook: %w", err)
	}
	defer f.Close()

	var units []string
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("segment: read sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			for _, cell := range row {
				if cell = strings.TrimSpace(cell); cell != "" {
					units = append(units, cell)
				}
			}
		}
	}

	if len(units) == 0 {
		return nil, ErrNoText
	}
	return units, nil
}
