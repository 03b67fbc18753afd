package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valentinpelus/birdwatch/internal/config"
	"github.com/valentinpelus/birdwatch/internal/metrics"
	"github.com/valentinpelus/birdwatch/internal/processor"
	"github.com/valentinpelus/birdwatch/pkg/feedback"
	"github.com/valentinpelus/birdwatch/pkg/slack"
	"github.com/valentinpelus/birdwatch/pkg/types"
)

const allowedChannel = "C1234567890"

type stubIdentifier struct {
	envelope types.InferenceEnvelope
}

func (s *stubIdentifier) Invoke(context.Context, string) (types.InferenceEnvelope, error) {
	return s.envelope, nil
}

type capturePoster struct {
	messages []types.SlackMessage
}

func (c *capturePoster) PostMessage(_ context.Context, message types.SlackMessage) (string, error) {
	c.messages = append(c.messages, message)
	return "9.9", nil
}

type pipeline struct {
	router *Router
	poster *capturePoster
	mock   sqlmock.Sqlmock
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	logger, _ := test.NewNullLogger()
	m := metrics.New(prometheus.NewRegistry())

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	store := feedback.NewStore(func(context.Context) (*sql.DB, error) { return db, nil }, logger)

	poster := &capturePoster{}
	identifier := &stubIdentifier{envelope: types.InferenceEnvelope{
		ModelVersion: "v0.1-poc",
		Predictions: []types.Prediction{
			{Species: "House Finch", Confidence: 0.9},
			{Species: "Mourning Dove", Confidence: 0.05},
		},
	}}

	router := NewRouter(Options{
		SigningSecret: testSecret,
		SignatureMode: config.SignatureModeStrict,
		Files:         processor.NewFileShareProcessor(identifier, poster, allowedChannel, m, logger),
		Feedback:      feedback.NewRecorder(store, poster, nil, logger),
		Metrics:       m,
		Logger:        logger,
	})
	router.now = func() time.Time { return fixedNow }
	return &pipeline{router: router, poster: poster, mock: mock}
}

func fileShared(channel string) string {
	return `{"type":"event_callback","event":{"type":"file_shared","channel_id":"` + channel + `",` +
		`"file":{"name":"test.jpg","url_private":"https://example.com/image.jpg"},"event_ts":"1234567890.123456"}}`
}

func actionsBlock(t *testing.T, message types.SlackMessage) (*types.SlackButton, *types.SlackSelect) {
	t.Helper()
	var (
		button *types.SlackButton
		menu   *types.SlackSelect
	)
	for _, block := range message.Blocks {
		if block.Type == "actions" {
			require.NotEmpty(t, block.Elements)
			b, ok := block.Elements[0].(*types.SlackButton)
			require.True(t, ok)
			button = b
		}
		if block.Accessory != nil {
			menu = block.Accessory
		}
	}
	require.NotNil(t, button)
	require.NotNil(t, menu)
	return button, menu
}

func TestScenario_FileSharedOnAllowedChannel(t *testing.T) {
	p := newPipeline(t)

	resp := p.router.Handle(context.Background(), signedRequest(fileShared(allowedChannel)))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", resp.Body)
	require.Len(t, p.poster.messages, 1)
	msg := p.poster.messages[0]
	assert.Equal(t, allowedChannel, msg.Channel)
	assert.Equal(t, "1234567890.123456", msg.ThreadTS)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "House Finch")
	assert.Contains(t, string(raw), "Mourning Dove")

	button, _ := actionsBlock(t, msg)
	var payload types.ActionPayload
	require.NoError(t, json.Unmarshal([]byte(button.Value), &payload))
	assert.Equal(t, "House Finch", payload.TopSpecies)
	assert.Equal(t, types.ActionCorrect, payload.Action)
}

func TestScenario_FileSharedOnOtherChannel(t *testing.T) {
	p := newPipeline(t)

	resp := p.router.Handle(context.Background(), signedRequest(fileShared("C_OTHER")))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, p.poster.messages)
}

func TestScenario_IncorrectFeedbackRoundTrip(t *testing.T) {
	p := newPipeline(t)
	p.router.Handle(context.Background(), signedRequest(fileShared(allowedChannel)))
	require.Len(t, p.poster.messages, 1)

	_, menu := actionsBlock(t, p.poster.messages[0])
	var picked types.SlackOption
	for _, option := range menu.Options {
		if option.Text.Text == "Mourning Dove" {
			picked = option
			break
		}
	}
	require.NotEmpty(t, picked.Value)

	p.mock.ExpectExec("INSERT INTO feedback").
		WithArgs(sqlmock.AnyArg(), "1234567890.123456", "U123", "v0.1-poc", false, "House Finch", "Mourning Dove", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	p.mock.ExpectClose()

	optionJSON, err := json.Marshal(picked)
	require.NoError(t, err)
	payload := `{"type":"block_actions","user":{"id":"U123"},"channel":{"id":"` + allowedChannel + `"},` +
		`"actions":[{"action_id":"` + slack.ActionIDIncorrect + `","selected_option":` + string(optionJSON) + `}]}`
	req := signedRequest(interactionBody(payload))
	req.Headers["Content-Type"] = "application/x-www-form-urlencoded"
	acked := false
	req.Ack = func() { acked = true }

	resp := p.router.Handle(context.Background(), req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, acked)
	assert.NoError(t, p.mock.ExpectationsWereMet())
	require.Len(t, p.poster.messages, 2)
	confirmation := p.poster.messages[1]
	assert.Equal(t, feedback.ConfirmationText, confirmation.Text)
	assert.Equal(t, "1234567890.123456", confirmation.ThreadTS)
	assert.Equal(t, allowedChannel, confirmation.Channel)
}

func TestScenario_StrictModeRejectsUnsigned(t *testing.T) {
	p := newPipeline(t)

	resp := p.router.Handle(context.Background(), types.WebhookRequest{
		Method: http.MethodPost,
		Body:   fileShared(allowedChannel),
	})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, p.poster.messages)
}
