package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WiresHTTPTransport(t *testing.T) {
	t.Setenv("INFERENCE_TRANSPORT", "http")
	t.Setenv("INFERENCE_URL", "http://127.0.0.1:9/invoke")
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("SLACK_SIGNING_SECRET", "secret")
	t.Setenv("FEEDBACK_AMQP_URL", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/feedback?sslmode=disable")
	t.Setenv("LOG_LEVEL", "error")

	a, err := New(context.Background())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 1, a.Config.InferenceUnwrapDepth)
	assert.NotNil(t, a.Router)
	assert.NotNil(t, a.Recorder)
	assert.NotNil(t, a.Processor)
	assert.Contains(t, a.Inference.Name(), "unwrap depth 1")
	assert.Nil(t, a.publisher)
}

func TestNew_RejectsUnknownTransport(t *testing.T) {
	t.Setenv("INFERENCE_TRANSPORT", "carrier-pigeon")
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("LOG_LEVEL", "error")

	_, err := New(context.Background())
	assert.Error(t, err)
}
