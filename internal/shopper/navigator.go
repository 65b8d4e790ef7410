package shopper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/shelf-scanner/internal/catalog"
)

// HTTPNavigator implements the Navigator interface by posting to a robot bridge
type HTTPNavigator struct {
	baseURL string
	client  *http.Client
}

// NewHTTPNavigator creates a navigator for the bridge at baseURL
func NewHTTPNavigator(baseURL string) (*HTTPNavigator, error) {
	if baseURL == "" {
		return nil, errors.New("robot bridge URL is required")
	}
	return &HTTPNavigator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// NavigateTo posts the target pose to {baseURL}/navigate
func (n *HTTPNavigator) NavigateTo(ctx context.Context, loc catalog.Location) error {
	body, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("marshaling location: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/navigate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("robot bridge responded %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
