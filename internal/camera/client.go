// Package camera fetches snapshots from the networked shelf camera and keeps
// the most recent one for display.
package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single snapshot fetch
const DefaultTimeout = 5 * time.Second

// maxFrameSize caps a snapshot body; SVGA JPEGs from the camera are far smaller
const maxFrameSize = 16 << 20

// ErrEmptyFrame reports a successful response without a body
var ErrEmptyFrame = errors.New("camera returned an empty frame")

// StatusError reports a non-2xx response from the camera
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("camera responded %s", e.Status)
}

// Snapshot is one fetched frame
type Snapshot struct {
	Data        []byte
	ContentType string
}

// Client fetches snapshots from a camera's HTTP endpoint
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a Client for url. A zero timeout uses DefaultTimeout.
func NewClient(url string, timeout time.Duration) (*Client, error) {
	if url == "" {
		return nil, errors.New("camera URL is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// URL returns the snapshot endpoint
func (c *Client) URL() string {
	return c.url
}

// Fetch performs one unauthenticated GET against the camera
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if len(data) > maxFrameSize {
		return nil, fmt.Errorf("snapshot exceeds %d bytes", maxFrameSize)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}

	return &Snapshot{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
