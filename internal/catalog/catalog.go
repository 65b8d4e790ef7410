// Package catalog resolves scanned barcodes and product names against the
// store's product, location and allergen reference data.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Catalog handles product lookups over a Source
type Catalog struct {
	source Source
}

// New creates a Catalog reading from source
func New(source Source) *Catalog {
	return &Catalog{source: source}
}

// LookupBarcode returns the first record, in source order, whose barcode equals code
func (c *Catalog) LookupBarcode(ctx context.Context, code string) (*ProductRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}
	return c.first(ctx, func(row Row) bool { return row.Barcode == code })
}

// LookupName returns the first record, in source order, whose name equals name ignoring case
func (c *Catalog) LookupName(ctx context.Context, name string) (*ProductRecord, error) {
	want := foldName(name)
	if want == "" {
		return nil, ErrNotFound
	}
	return c.first(ctx, func(row Row) bool { return foldName(row.Name) == want })
}

// List returns every record that validates, plus the errors of those that do not
func (c *Catalog) List(ctx context.Context) ([]*ProductRecord, []error, error) {
	rows, err := c.source.Rows(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("reading catalog: %w", err)
	}

	records := make([]*ProductRecord, 0, len(rows))
	var malformed []error
	for _, row := range rows {
		record, err := ParseRecord(row)
		if err != nil {
			malformed = append(malformed, err)
			continue
		}
		records = append(records, record)
	}
	return records, malformed, nil
}

// first validates only the matching row; a malformed match is reported, not skipped
func (c *Catalog) first(ctx context.Context, match func(Row) bool) (*ProductRecord, error) {
	rows, err := c.source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	for _, row := range rows {
		if !match(row) {
			continue
		}
		return ParseRecord(row)
	}
	return nil, ErrNotFound
}

func foldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
