package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zombor/shelf-scanner/internal/safety"
)

// ParseRecord validates a raw row into a ProductRecord.
// A location that does not hold exactly three numbers is a *RecordError, never a zero value.
func ParseRecord(row Row) (*ProductRecord, error) {
	loc, err := parseRowLocation(row)
	if err != nil {
		return nil, err
	}

	return &ProductRecord{
		Name:      strings.TrimSpace(row.Name),
		Barcode:   strings.TrimSpace(row.Barcode),
		Location:  loc,
		Allergens: safety.ParseAllergens(row.Allergens),
	}, nil
}

func parseRowLocation(row Row) (Location, error) {
	if row.X == "" && row.Y == "" && row.Z == "" && row.Location != "" {
		loc, err := ParseLocation(row.Location)
		if err != nil {
			return Location{}, &RecordError{Line: row.Line, Name: row.Name, Field: "Location", Value: row.Location, Err: err}
		}
		return loc, nil
	}

	var values [3]float64
	for i, field := range []struct{ name, value string }{{"X", row.X}, {"Y", row.Y}, {"Z", row.Z}} {
		v, err := parseCoordinate(field.value)
		if err != nil {
			return Location{}, &RecordError{Line: row.Line, Name: row.Name, Field: field.name, Value: field.value, Err: err}
		}
		values[i] = v
	}
	return Location{X: values[0], Y: values[1], Theta: values[2]}, nil
}

// ParseLocation parses "(x, y, theta)", "[x, y, theta]" or "x, y, theta"
func ParseLocation(s string) (Location, error) {
	inner := strings.TrimSpace(s)
	if n := len(inner); n >= 2 && ((inner[0] == '(' && inner[n-1] == ')') || (inner[0] == '[' && inner[n-1] == ']')) {
		inner = inner[1 : n-1]
	}

	parts := strings.Split(inner, ",")
	if len(parts) != 3 {
		return Location{}, fmt.Errorf("want 3 components, got %d", len(parts))
	}

	var values [3]float64
	for i, part := range parts {
		v, err := parseCoordinate(part)
		if err != nil {
			return Location{}, fmt.Errorf("component %d: %w", i+1, err)
		}
		values[i] = v
	}
	return Location{X: values[0], Y: values[1], Theta: values[2]}, nil
}

func parseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("missing value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}
