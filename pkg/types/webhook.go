package types

import "strings"

// WebhookRequest is one inbound call, independent of the transport that delivered it
type WebhookRequest struct {
	Method          string
	Body            string
	Headers         map[string]string
	IsBase64Encoded bool

	// Ack, when set, lets the handler answer the caller before it finishes
	// working. Transports that cannot respond early leave it nil.
	Ack func()
}

// Header looks a header up case-insensitively
func (r WebhookRequest) Header(name string) string {
	if v, ok := r.Headers[name]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// WebhookResponse is what the handler hands back to the transport
type WebhookResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}
