package inference

import (
	"context"
	"fmt"
)

// Supported transports
const (
	TransportLambda = "lambda"
	TransportHTTP   = "http"
)

// TransportConfig selects and configures an Invoker
type TransportConfig struct {
	Transport    string // "lambda" or "http"
	Region       string
	FunctionName string
	URL          string
}

// DefaultUnwrapDepth returns how many times a transport encodes the envelope
func DefaultUnwrapDepth(transport string) int {
	if transport == TransportHTTP {
		return 1
	}
	return 2
}

// NewInvoker creates the configured transport
func NewInvoker(ctx context.Context, cfg TransportConfig) (Invoker, error) {
	switch cfg.Transport {
	case TransportLambda, "":
		return NewLambdaInvoker(ctx, cfg.Region, cfg.FunctionName)

	case TransportHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("inference URL not configured")
		}
		return NewHTTPInvoker(cfg.URL), nil

	default:
		return nil, fmt.Errorf("unknown inference transport: %s (supported: lambda, http)", cfg.Transport)
	}
}
