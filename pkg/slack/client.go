package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/valentinpelus/birdwatch/pkg/types"
)

// DefaultAPIURL is the Slack Web API base URL
const DefaultAPIURL = "https://slack.com/api"

// Poster sends a message to a channel and returns its timestamp
type Poster interface {
	PostMessage(ctx context.Context, message types.SlackMessage) (string, error)
}

// Client wraps the Slack Web API
type Client struct {
	apiURL   string
	botToken string
	client   *http.Client
	logger   logrus.FieldLogger
}

// NewClient creates a new Slack client
func NewClient(apiURL, botToken string, logger logrus.FieldLogger) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL:   strings.TrimRight(apiURL, "/"),
		botToken: botToken,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// HasBotToken checks if a bot token is configured
func (c *Client) HasBotToken() bool {
	return c.botToken != ""
}

// PostMessage sends a message using the chat.postMessage API
// Reference: https://api.slack.com/methods/chat.postMessage
func (c *Client) PostMessage(ctx context.Context, message types.SlackMessage) (string, error) {
	if !c.HasBotToken() {
		return "", fmt.Errorf("bot token required for chat.postMessage")
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	resp, err := c.call(ctx, http.MethodPost, "chat.postMessage", jsonData)
	if err != nil {
		return "", err
	}

	c.logger.WithFields(logrus.Fields{
		"channel":   message.Channel,
		"thread_ts": message.ThreadTS,
		"ts":        resp.TS,
	}).Debug("Message sent to Slack")
	return resp.TS, nil
}

// ReplyInThread sends a plain text reply through poster. An empty threadTS
// posts to the channel itself.
func ReplyInThread(ctx context.Context, poster Poster, channel, threadTS, text string) error {
	_, err := poster.PostMessage(ctx, types.SlackMessage{
		Channel:  channel,
		ThreadTS: threadTS,
		Text:     text,
	})
	return err
}

// AuthTest verifies the bot token
func (c *Client) AuthTest(ctx context.Context) error {
	if !c.HasBotToken() {
		return fmt.Errorf("bot token not configured")
	}
	if _, err := c.call(ctx, http.MethodPost, "auth.test", nil); err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, payload []byte) (*types.SlackResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+"/"+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send to Slack: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Slack API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var slackResp types.SlackResponse
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return nil, fmt.Errorf("failed to parse Slack response: %w", err)
	}

	if !slackResp.OK {
		return nil, fmt.Errorf("Slack error: %s", slackResp.Error)
	}

	return &slackResp, nil
}
