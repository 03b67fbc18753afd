package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPInvoker posts the request to an HTTP endpoint serving the inference function
type HTTPInvoker struct {
	url    string
	client *http.Client
}

// NewHTTPInvoker creates an invoker for url
func NewHTTPInvoker(url string) *HTTPInvoker {
	return &HTTPInvoker{
		url:    url,
		client: &http.Client{},
	}
}

// Name returns the transport name
func (h *HTTPInvoker) Name() string {
	return fmt.Sprintf("http:%s", h.url)
}

// Invoke posts payload and returns the response body
func (h *HTTPInvoker) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call inference endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("inference endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
