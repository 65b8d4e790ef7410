package catalog

// Location is where a product sits on the store map
type Location struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// ProductRecord is a validated catalog entry
type ProductRecord struct {
	Name      string   `json:"name"`
	Barcode   string   `json:"barcode,omitempty"`
	Location  Location `json:"location"`
	Allergens []string `json:"allergens"` // Normalized, "None" drops to empty
}

// Row is one catalog record as read from its source, before validation.
// Location is the legacy single-column "(x, y, theta)" form used when X/Y/Z are absent.
type Row struct {
	Line      int    `json:"line"`
	Name      string `json:"name"`
	Barcode   string `json:"barcode"`
	X         string `json:"x"`
	Y         string `json:"y"`
	Z         string `json:"z"`
	Location  string `json:"location,omitempty"`
	Allergens string `json:"allergens"`
}
