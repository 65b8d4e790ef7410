package scanning

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSymbol reports a readable frame that holds none of the allowed symbologies.
	ErrNoSymbol = errors.New("no symbol found")
	// ErrCorruptImage reports bytes that could not be decoded into a raster.
	ErrCorruptImage = errors.New("corrupt image")
	// ErrUnsupportedFormat is wrapped alongside ErrCorruptImage when the image format is unknown.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Symbology identifies a barcode encoding standard
type Symbology string

const (
	SymbologyQRCode  Symbology = "QR_CODE"
	SymbologyEAN13   Symbology = "EAN_13"
	SymbologyCode128 Symbology = "CODE_128"
)

// DefaultSymbologies is the allow-list searched when none is configured, in search order
var DefaultSymbologies = []Symbology{SymbologyQRCode, SymbologyEAN13, SymbologyCode128}

// ParseSymbology maps a user supplied name (e.g. "qr", "ean13", "CODE_128") to a Symbology
func ParseSymbology(name string) (Symbology, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	normalized = strings.NewReplacer("_", "", "-", "").Replace(normalized)
	switch normalized {
	case "QR", "QRCODE":
		return SymbologyQRCode, nil
	case "EAN13":
		return SymbologyEAN13, nil
	case "CODE128":
		return SymbologyCode128, nil
	}
	return "", fmt.Errorf("unknown symbology %q", name)
}

// Symbol is one decoded barcode
type Symbol struct {
	Payload   string    `json:"payload"`
	Symbology Symbology `json:"symbology"`
}

// Decoder defines the interface for symbol decoding operations
type Decoder interface {
	// Decode searches raster bytes for the first allowed symbol.
	// It returns ErrNoSymbol when none is present and an error wrapping
	// ErrCorruptImage when the bytes cannot be read as an image.
	Decode(data []byte, contentType string) (*Symbol, error)
}
