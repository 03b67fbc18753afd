package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/sirupsen/logrus"

	"github.com/valentinpelus/birdwatch/pkg/types"
)

// DefaultModelVersion is reported when the envelope omits model_version
const DefaultModelVersion = "v0.1-poc"

var (
	// ErrUnavailable is the parent of every failure where the function
	// answered but produced nothing usable
	ErrUnavailable = errors.New("inference unavailable")

	// ErrEmptyPayload means the function returned no payload at all
	ErrEmptyPayload = fmt.Errorf("%w: empty payload", ErrUnavailable)

	// ErrNoPredictions means the envelope decoded but held no predictions
	ErrNoPredictions = fmt.Errorf("%w: no predictions", ErrUnavailable)
)

// UpstreamError carries the envelope's error field
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("inference function returned error: %s", e.Message)
}

// Unwrap lets errors.Is match ErrUnavailable
func (e *UpstreamError) Unwrap() error {
	return ErrUnavailable
}

// Invoker is a request/response transport to the inference function
type Invoker interface {
	Invoke(ctx context.Context, payload []byte) ([]byte, error)
	Name() string
}

// Config tunes a Client
type Config struct {
	// UnwrapDepth is how many times the raw payload is JSON encoded.
	// Lambda RequestResponse invocations of a handler that returns a string
	// are encoded twice; a plain HTTP transport is encoded once.
	UnwrapDepth int
	Timeout     time.Duration
}

// Client invokes the inference function and normalizes its envelope
type Client struct {
	invoker     Invoker
	unwrapDepth int
	timeout     time.Duration
	executor    failsafe.Executor[[]byte]
	logger      logrus.FieldLogger
}

// NewClient creates a new inference client around invoker
func NewClient(invoker Invoker, cfg Config, logger logrus.FieldLogger) *Client {
	depth := cfg.UnwrapDepth
	if depth < 1 {
		depth = 1
	}

	breaker := circuitbreaker.NewBuilder[[]byte]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		Build()

	return &Client{
		invoker:     invoker,
		unwrapDepth: depth,
		timeout:     cfg.Timeout,
		executor:    failsafe.With[[]byte](breaker),
		logger:      logger,
	}
}

// Name returns the transport name (for logging)
func (c *Client) Name() string {
	return fmt.Sprintf("%s (unwrap depth %d)", c.invoker.Name(), c.unwrapDepth)
}

// Classify returns a short outcome label for err
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "circuit_open"
	default:
		return "failed"
	}
}

// Invoke asks the function to identify the image at imageURL. It blocks
// until the function answers, the timeout elapses or the breaker refuses.
// Nothing is retried.
func (c *Client) Invoke(ctx context.Context, imageURL string) (types.InferenceEnvelope, error) {
	payload, err := json.Marshal(types.InferenceRequest{ImageURL: imageURL})
	if err != nil {
		return types.InferenceEnvelope{}, fmt.Errorf("failed to marshal inference request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.executor.WithContext(ctx).Get(func() ([]byte, error) {
		return c.invoker.Invoke(ctx, payload)
	})
	if err != nil {
		return types.InferenceEnvelope{}, fmt.Errorf("failed to invoke %s: %w", c.invoker.Name(), err)
	}

	envelope, err := Unwrap(raw, c.unwrapDepth)
	if err != nil {
		return types.InferenceEnvelope{}, err
	}

	if envelope.Error != "" {
		return types.InferenceEnvelope{}, &UpstreamError{Message: envelope.Error}
	}
	if len(envelope.Predictions) == 0 {
		return types.InferenceEnvelope{}, ErrNoPredictions
	}
	if envelope.ModelVersion == "" {
		envelope.ModelVersion = DefaultModelVersion
	}

	c.logger.WithFields(logrus.Fields{
		"model_version": envelope.ModelVersion,
		"predictions":   len(envelope.Predictions),
		"top_species":   envelope.Predictions[0].Species,
	}).Debug("Inference succeeded")

	return envelope, nil
}

// Unwrap decodes raw as an envelope that was JSON encoded depth times:
// depth-1 string decodes followed by one envelope decode.
func Unwrap(raw []byte, depth int) (types.InferenceEnvelope, error) {
	var envelope types.InferenceEnvelope

	data := raw
	for level := 1; level < depth; level++ {
		if isEmpty(data) {
			return envelope, ErrEmptyPayload
		}
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return envelope, fmt.Errorf("failed to unwrap payload level %d: %w", level, err)
		}
		data = []byte(inner)
	}

	if isEmpty(data) {
		return envelope, ErrEmptyPayload
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return envelope, fmt.Errorf("failed to decode inference envelope: %w", err)
	}
	return envelope, nil
}

func isEmpty(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`))
}
