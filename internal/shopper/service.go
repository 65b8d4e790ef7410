// Package shopper implements the consumer side of a scan: it polls the scan
// session, consumes a decoded payload, resolves it against the catalog, checks
// the shopper's allergy and hands safe product locations to the robot.
package shopper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zombor/shelf-scanner/internal/camera"
	"github.com/zombor/shelf-scanner/internal/catalog"
	"github.com/zombor/shelf-scanner/internal/safety"
	"github.com/zombor/shelf-scanner/internal/scanning"
	"github.com/zombor/shelf-scanner/internal/session"
)

// Scanner is the scan session surface the service drives
type Scanner interface {
	Start() (session.Status, error)
	Stop() session.Status
	Status() session.Status
	Consume() (*session.Detection, bool)
}

// Navigator sends the robot to a product location
type Navigator interface {
	NavigateTo(ctx context.Context, loc catalog.Location) error
}

// FrameSource provides the latest camera frame
type FrameSource interface {
	Latest() (camera.Frame, bool)
}

// Shopper is the person the robot is assisting
type Shopper struct {
	Name    string `json:"name"`
	Allergy string `json:"allergy"`
}

// OutcomeKind classifies a resolved lookup
type OutcomeKind string

const (
	OutcomeSafe     OutcomeKind = "safe"
	OutcomeUnsafe   OutcomeKind = "unsafe"
	OutcomeNotFound OutcomeKind = "not_found"
)

// Outcome is the user-facing result of a scan or search
type Outcome struct {
	Kind       OutcomeKind            `json:"kind"`
	Query      string                 `json:"query"`
	Symbology  scanning.Symbology     `json:"symbology,omitempty"`
	Product    *catalog.ProductRecord `json:"product,omitempty"`
	Verdict    *safety.Verdict        `json:"verdict,omitempty"`
	Message    string                 `json:"message"`
	Navigating bool                   `json:"navigating"`
}

// PollResult is the session status plus, once a payload was consumed, its outcome
type PollResult struct {
	Status  session.Status `json:"status"`
	Outcome *Outcome       `json:"outcome,omitempty"`
}

// Service handles shopper operations
type Service struct {
	scanner   Scanner
	catalog   *catalog.Catalog
	decoder   scanning.Decoder
	frames    FrameSource
	navigator Navigator
}

// NewService creates a new Service. navigator may be nil when no robot bridge is configured.
func NewService(scanner Scanner, cat *catalog.Catalog, decoder scanning.Decoder, frames FrameSource, navigator Navigator) *Service {
	return &Service{
		scanner:   scanner,
		catalog:   cat,
		decoder:   decoder,
		frames:    frames,
		navigator: navigator,
	}
}

// StartScan arms the scan session for shopper
func (s *Service) StartScan(shopper Shopper) (session.Status, error) {
	status, err := s.scanner.Start()
	if err != nil {
		return status, fmt.Errorf("starting scan: %w", err)
	}
	slog.Info("Scan requested", "shopper", shopper.Name, "run_id", status.RunID)
	return status, nil
}

// StopScan disarms the scan session
func (s *Service) StopScan() session.Status {
	return s.scanner.Stop()
}

// Poll consumes a decoded payload if one is waiting and resolves it for shopper.
// Only the first poller after a decode gets an Outcome.
func (s *Service) Poll(ctx context.Context, shopper Shopper) (*PollResult, error) {
	detection, ok := s.scanner.Consume()
	if !ok {
		return &PollResult{Status: s.scanner.Status()}, nil
	}

	outcome, err := s.resolve(ctx, lookupBarcode, detection.Payload, shopper)
	if err != nil {
		return nil, err
	}
	outcome.Symbology = detection.Symbology
	return &PollResult{Status: s.scanner.Status(), Outcome: outcome}, nil
}

// SearchByName resolves a product typed in by the shopper
func (s *Service) SearchByName(ctx context.Context, name string, shopper Shopper) (*Outcome, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("product name is required")
	}
	return s.resolve(ctx, lookupName, name, shopper)
}

// LookupBarcode resolves a barcode without going through the scan session
func (s *Service) LookupBarcode(ctx context.Context, code string, shopper Shopper) (*Outcome, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("barcode is required")
	}
	return s.resolve(ctx, lookupBarcode, code, shopper)
}

// ListProducts returns the valid catalog records and the errors of malformed ones
func (s *Service) ListProducts(ctx context.Context) ([]*catalog.ProductRecord, []error, error) {
	return s.catalog.List(ctx)
}

// DecodeUpload decodes a single uploaded image or PDF page
func (s *Service) DecodeUpload(data []byte, contentType string) (*scanning.Symbol, error) {
	symbol, err := s.decoder.Decode(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding upload: %w", err)
	}
	return symbol, nil
}

// LatestFrame returns the most recent camera frame
func (s *Service) LatestFrame() (camera.Frame, bool) {
	return s.frames.Latest()
}

type lookupMode int

const (
	lookupBarcode lookupMode = iota
	lookupName
)

func (s *Service) resolve(ctx context.Context, mode lookupMode, query string, shopper Shopper) (*Outcome, error) {
	var (
		record *catalog.ProductRecord
		err    error
	)
	switch mode {
	case lookupName:
		record, err = s.catalog.LookupName(ctx, query)
	default:
		record, err = s.catalog.LookupBarcode(ctx, query)
	}

	if errors.Is(err, catalog.ErrNotFound) {
		return &Outcome{
			Kind:    OutcomeNotFound,
			Query:   query,
			Message: notFoundMessage(mode, query),
		}, nil
	}
	if err != nil {
		if errors.Is(err, catalog.ErrMalformedRecord) {
			slog.Error("Catalog record is malformed", "query", query, "error", err)
		}
		return nil, fmt.Errorf("looking up %q: %w", query, err)
	}

	verdict := safety.Check(shopper.Allergy, record.Allergens)
	outcome := &Outcome{
		Kind:    OutcomeSafe,
		Query:   query,
		Product: record,
		Verdict: &verdict,
	}
	if !verdict.Safe {
		outcome.Kind = OutcomeUnsafe
		outcome.Message = fmt.Sprintf("%s %s. %s DO NOT EAT.", record.Name, foundVerb(mode), verdict.Message)
		return outcome, nil
	}

	outcome.Message = fmt.Sprintf("%s %s! This product is good to eat. Please follow the robot.", record.Name, foundVerb(mode))
	outcome.Navigating = s.navigate(ctx, record)
	return outcome, nil
}

func (s *Service) navigate(ctx context.Context, record *catalog.ProductRecord) bool {
	if s.navigator == nil {
		return false
	}
	if err := s.navigator.NavigateTo(ctx, record.Location); err != nil {
		slog.Warn("Failed to hand location to robot", "product", record.Name, "error", err)
		return false
	}
	slog.Info("Robot navigating", "product", record.Name, "x", record.Location.X, "y", record.Location.Y, "theta", record.Location.Theta)
	return true
}

func foundVerb(mode lookupMode) string {
	if mode == lookupName {
		return "found"
	}
	return "decoded"
}

func notFoundMessage(mode lookupMode, query string) string {
	if mode == lookupName {
		return fmt.Sprintf("Sorry, '%s' was not found in the catalog.", query)
	}
	return fmt.Sprintf("Barcode %s decoded, but product not found in the catalog.", query)
}
