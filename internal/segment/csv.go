package segment

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVLoader extracts units from CSV files: every non-empty cell becomes one
// unit, in row-major order.
type CSVLoader struct{}

// LoadSegments implements Loader.
func (CSVLoader) LoadSegments(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("segment: open csv file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows are fine
	r.LazyQuotes = true

	var units []string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("segment: read csv: %w", err)
		}
		for _, cell := range record {
			if cell = strings.TrimSpace(cell); cell != "" {
				units = append(units, cell)
			}
		}
	}

	if len(units) == 0 {
		return nil, ErrNoText
	}
	return units, nil
}
