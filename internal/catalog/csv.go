package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVFile implements the Source interface by reading a CSV file on every call
type CSVFile struct {
	path string
}

// NewCSVFile creates a CSVFile source for path
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

// Path returns the file the source reads
func (c *CSVFile) Path() string {
	return c.path
}

// Rows reads the file fresh
func (c *CSVFile) Rows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	rows, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", c.path, err)
	}
	return rows, nil
}

// ParseCSV reads rows with a header naming the Name, Barcode, X, Y, Z and Allergens
// columns (case-insensitive). A Location column may stand in for X/Y/Z.
// Short rows are padded with empty fields so validation happens per record.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := columns[key]; !dup {
			columns[key] = i
		}
	}
	if _, ok := columns["name"]; !ok {
		return nil, errors.New("catalog header has no Name column")
	}
	_, hasX := columns["x"]
	_, hasLocation := columns["location"]
	if !hasX && !hasLocation {
		return nil, errors.New("catalog header has neither X/Y/Z nor Location columns")
	}

	rows := make([]Row, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		row := Row{
			Line:      line,
			Name:      field("name"),
			Barcode:   field("barcode"),
			X:         field("x"),
			Y:         field("y"),
			Z:         field("z"),
			Location:  field("location"),
			Allergens: field("allergens"),
		}
		if row == (Row{Line: line}) {
			continue // blank line padding
		}
		rows = append(rows, row)
	}
	return rows, nil
}
