package shopper

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/zombor/shelf-scanner/internal/catalog"
	"github.com/zombor/shelf-scanner/internal/scanning"
	"github.com/zombor/shelf-scanner/internal/session"
)

const maxUploadSize = int64(20 << 20) // 20MB

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// shopperFromRequest reads the shopper from form or query values
func shopperFromRequest(r *http.Request) Shopper {
	return Shopper{
		Name:    strings.TrimSpace(r.FormValue("name")),
		Allergy: strings.TrimSpace(r.FormValue("allergy")),
	}
}

// lookupErrorStatus maps a lookup failure onto a response
func lookupErrorStatus(err error) (int, string) {
	if errors.Is(err, catalog.ErrMalformedRecord) {
		return http.StatusInternalServerError, "Catalog record is malformed"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleStartScan arms the scan session
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	shopper := shopperFromRequest(r)
	status, err := s.service.StartScan(shopper)
	if errors.Is(err, session.ErrShutdown) {
		writeError(w, http.StatusServiceUnavailable, "Scanner is shutting down")
		return
	}
	if err != nil {
		slog.Error("Error starting scan", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, status)
}

// handleStopScan disarms the scan session
func (s *Server) handleStopScan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.StopScan())
}

// handleScanStatus polls the session and resolves a fresh decode for the shopper
func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Poll(r.Context(), shopperFromRequest(r))
	if err != nil {
		slog.Error("Error resolving scan", "error", err)
		status, message := lookupErrorStatus(err)
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleLatestFrame serves the most recent camera frame
func (s *Server) handleLatestFrame(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.service.LatestFrame()
	if !ok {
		writeError(w, http.StatusNotFound, "Image not yet available. Waiting for camera connection...")
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", frame.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(frame.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Last-Modified", frame.FetchedAt.UTC().Format(http.TimeFormat))
	w.Write(frame.Data)
}

// handleSearchProduct resolves a product by name
func (s *Server) handleSearchProduct(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "Product name is required")
		return
	}

	shopper := Shopper{Allergy: strings.TrimSpace(r.URL.Query().Get("allergy"))}
	outcome, err := s.service.SearchByName(r.Context(), name, shopper)
	if err != nil {
		slog.Error("Error searching product", "product", name, "error", err)
		status, message := lookupErrorStatus(err)
		writeError(w, status, message)
		return
	}
	writeOutcome(w, outcome)
}

// handleLookupBarcode resolves a barcode typed or scanned elsewhere
func (s *Server) handleLookupBarcode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "Barcode is required")
		return
	}

	outcome, err := s.service.LookupBarcode(r.Context(), code, shopperFromRequest(r))
	if err != nil {
		slog.Error("Error looking up barcode", "barcode", code, "error", err)
		status, message := lookupErrorStatus(err)
		writeError(w, status, message)
		return
	}
	writeOutcome(w, outcome)
}

// writeOutcome answers 404 for a catalog miss and 200 otherwise
func writeOutcome(w http.ResponseWriter, outcome *Outcome) {
	if outcome.Kind == OutcomeNotFound {
		writeJSON(w, http.StatusNotFound, outcome)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// productList is the catalog listing response
type productList struct {
	Products  []*catalog.ProductRecord `json:"products"`
	Malformed []string                 `json:"malformed"`
}

// handleListProducts returns every valid catalog record
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	records, malformed, err := s.service.ListProducts(r.Context())
	if err != nil {
		slog.Error("Error listing products", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	list := productList{
		Products:  records,
		Malformed: make([]string, 0, len(malformed)),
	}
	if list.Products == nil {
		list.Products = make([]*catalog.ProductRecord, 0)
	}
	for _, e := range malformed {
		list.Malformed = append(list.Malformed, e.Error())
	}
	writeJSON(w, http.StatusOK, list)
}

// handleDecodeUpload decodes an uploaded image or PDF
func (s *Server) handleDecodeUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			errorMsg = fmt.Sprintf("File is too large. Maximum size is %dMB.", maxUploadSize>>20)
		}
		writeError(w, http.StatusBadRequest, errorMsg)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading uploaded file", "error", err)
		writeError(w, http.StatusInternalServerError, "Error reading file")
		return
	}

	symbol, err := s.service.DecodeUpload(data, header.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, scanning.ErrNoSymbol):
		writeError(w, http.StatusUnprocessableEntity, "No barcode or QR code found in the image")
		return
	case errors.Is(err, scanning.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "Unsupported file format. Supported: JPEG, PNG, GIF, HEIC, HEIF, PDF")
		return
	case errors.Is(err, scanning.ErrCorruptImage):
		writeError(w, http.StatusBadRequest, "The file could not be read as an image")
		return
	case err != nil:
		slog.Error("Error decoding upload", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slog.Info("Decoded upload", "filename", header.Filename, "symbology", symbol.Symbology)
	writeJSON(w, http.StatusOK, symbol)
}
