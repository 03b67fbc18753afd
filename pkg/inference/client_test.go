package inference

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valentinpelus/birdwatch/pkg/types"
)

type fakeInvoker struct {
	payload []byte
	err     error
	calls   int
	request []byte
}

func (f *fakeInvoker) Name() string { return "fake" }

func (f *fakeInvoker) Invoke(_ context.Context, payload []byte) ([]byte, error) {
	f.calls++
	f.request = payload
	return f.payload, f.err
}

func doubleEncode(t *testing.T, v any) []byte {
	t.Helper()
	inner, err := json.Marshal(v)
	require.NoError(t, err)
	outer, err := json.Marshal(string(inner))
	require.NoError(t, err)
	return outer
}

func newClient(invoker Invoker, depth int) *Client {
	logger, _ := test.NewNullLogger()
	return NewClient(invoker, Config{UnwrapDepth: depth, Timeout: time.Second}, logger)
}

func TestClient_Invoke_DoubleEncoded(t *testing.T) {
	invoker := &fakeInvoker{payload: doubleEncode(t, types.InferenceEnvelope{
		ModelVersion: "v0.1",
		Predictions: []types.Prediction{
			{Species: "House Finch", Confidence: 0.9},
			{Species: "Mourning Dove", Confidence: 0.05},
		},
	})}

	envelope, err := newClient(invoker, 2).Invoke(context.Background(), "https://files.example.com/bird.jpg")
	require.NoError(t, err)

	assert.Equal(t, "v0.1", envelope.ModelVersion)
	require.Len(t, envelope.Predictions, 2)
	assert.Equal(t, "House Finch", envelope.Predictions[0].Species)
	assert.JSONEq(t, `{"image_url":"https://files.example.com/bird.jpg"}`, string(invoker.request))
	assert.Equal(t, 1, invoker.calls)
}

func TestClient_Invoke_SingleEncoded(t *testing.T) {
	invoker := &fakeInvoker{payload: []byte(`{"predictions":[{"species":"Columba livia","confidence":0.8}]}`)}

	envelope, err := newClient(invoker, 1).Invoke(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, DefaultModelVersion, envelope.ModelVersion)
	assert.Equal(t, "Columba livia", envelope.Predictions[0].Species)
}

func TestClient_Invoke_DepthMismatch(t *testing.T) {
	invoker := &fakeInvoker{payload: []byte(`{"predictions":[{"species":"Columba livia","confidence":0.8}]}`)}

	_, err := newClient(invoker, 2).Invoke(context.Background(), "u")
	require.Error(t, err)
	assert.Equal(t, "failed", Classify(err))
}

func TestClient_Invoke_Failures(t *testing.T) {
	tests := []struct {
		name    string
		invoker *fakeInvoker
		outcome string
		target  error
	}{
		{name: "nil payload", invoker: &fakeInvoker{}, outcome: "unavailable", target: ErrEmptyPayload},
		{name: "null payload", invoker: &fakeInvoker{payload: []byte("null")}, outcome: "unavailable", target: ErrEmptyPayload},
		{name: "empty inner string", invoker: &fakeInvoker{payload: []byte(`""`)}, outcome: "unavailable", target: ErrEmptyPayload},
		{name: "envelope error", invoker: &fakeInvoker{payload: []byte(`"{\"error\":\"AI error\"}"`)}, outcome: "unavailable", target: ErrUnavailable},
		{name: "no predictions", invoker: &fakeInvoker{payload: []byte(`"{\"model_version\":\"v1\",\"predictions\":[]}"`)}, outcome: "unavailable", target: ErrNoPredictions},
		{name: "malformed json", invoker: &fakeInvoker{payload: []byte(`"{not json"`)}, outcome: "failed"},
		{name: "transport error", invoker: &fakeInvoker{err: errors.New("connection reset")}, outcome: "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newClient(tt.invoker, 2).Invoke(context.Background(), "u")
			require.Error(t, err)
			assert.Equal(t, tt.outcome, Classify(err))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Equal(t, 1, tt.invoker.calls, "never retried")
		})
	}
}

func TestClient_Invoke_UpstreamErrorMessage(t *testing.T) {
	invoker := &fakeInvoker{payload: doubleEncode(t, types.InferenceEnvelope{Error: "AI analysis failed"})}

	_, err := newClient(invoker, 2).Invoke(context.Background(), "u")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "AI analysis failed", upstream.Message)
}

func TestClient_Invoke_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	invoker := &fakeInvoker{err: errors.New("timeout")}
	client := newClient(invoker, 2)

	opened := false
	for i := 0; i < 20; i++ {
		_, err := client.Invoke(context.Background(), "u")
		require.Error(t, err)
		if Classify(err) == "circuit_open" {
			opened = true
			break
		}
	}

	assert.True(t, opened, "breaker should open on repeated transport failures")
	assert.LessOrEqual(t, invoker.calls, 10)
}

func TestUnwrap(t *testing.T) {
	envelope, err := Unwrap([]byte(`"\"{\\\"model_version\\\":\\\"v3\\\"}\""`), 3)
	require.NoError(t, err)
	assert.Equal(t, "v3", envelope.ModelVersion)

	_, err = Unwrap([]byte("  "), 1)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestDefaultUnwrapDepth(t *testing.T) {
	assert.Equal(t, 2, DefaultUnwrapDepth(TransportLambda))
	assert.Equal(t, 1, DefaultUnwrapDepth(TransportHTTP))
}
