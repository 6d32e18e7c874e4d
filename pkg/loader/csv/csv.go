package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/datapeak/backend/pkg/common"
)

// ErrNoHeader is returned when the CSV input has no header row.
var ErrNoHeader = errors.New("csv input has no header row")

// ParseRecords reads a CSV stream into dataset records. The first row is the
// header; every following row becomes one record mapping header fields to
// values. Numeric and boolean cells are converted to their scalar types so
// downstream extraction can tell them apart from text; empty cells are kept
// as empty strings and skipped later by extraction.
func ParseRecords(r io.Reader) ([]common.Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records := make([]common.Record, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", len(records)+2, err)
		}

		record := make(common.Record, len(header))
		for i, field := range header {
			if field == "" || i >= len(row) {
				continue
			}
			record[field] = parseCell(row[i])
		}
		records = append(records, record)
	}

	return records, nil
}

// parseCell converts a raw cell to the scalar a JSON decode would produce:
// bool, float64, or string.
func parseCell(cell string) any {
	trimmed := strings.TrimSpace(cell)

	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}

	if trimmed != "" {
		if number, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return number
		}
	}

	return trimmed
}
