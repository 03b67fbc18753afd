package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/valentinpelus/birdwatch/internal/config"
	"github.com/valentinpelus/birdwatch/internal/logging"
	"github.com/valentinpelus/birdwatch/internal/metrics"
	"github.com/valentinpelus/birdwatch/pkg/feedback"
	"github.com/valentinpelus/birdwatch/pkg/slack"
	"github.com/valentinpelus/birdwatch/pkg/types"
)

const maxLoggedBody = 500

// FileShareProcessor handles file_shared events
type FileShareProcessor interface {
	ProcessFileShared(ctx context.Context, event types.InnerEvent)
}

// FeedbackRecorder handles the two feedback actions of a result message
type FeedbackRecorder interface {
	RecordCorrect(ctx context.Context, value, userID, channelID string, ack func()) feedback.Outcome
	RecordIncorrect(ctx context.Context, value, userID, channelID string, ack func()) feedback.Outcome
}

// Options configure a Router
type Options struct {
	SigningSecret string
	SignatureMode string // config.SignatureModeLenient or config.SignatureModeStrict
	Files         FileShareProcessor
	Feedback      FeedbackRecorder
	Metrics       *metrics.Metrics
	Logger        logrus.FieldLogger
}

// Router authenticates webhook requests and dispatches them by payload type
type Router struct {
	signingSecret string
	strict        bool
	files         FileShareProcessor
	feedback      FeedbackRecorder
	metrics       *metrics.Metrics
	logger        logrus.FieldLogger
	now           func() time.Time
}

// NewRouter creates a new router
func NewRouter(opts Options) *Router {
	return &Router{
		signingSecret: opts.SigningSecret,
		strict:        opts.SignatureMode == config.SignatureModeStrict,
		files:         opts.Files,
		feedback:      opts.Feedback,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		now:           time.Now,
	}
}

func textResponse(status int, body string) types.WebhookResponse {
	return types.WebhookResponse{StatusCode: status, Body: body}
}

// Handle processes one webhook request. It never panics and never returns
// an error: every failure is expressed as a response.
func (r *Router) Handle(ctx context.Context, req types.WebhookRequest) (resp types.WebhookResponse) {
	kind := "unknown"
	defer func() {
		r.metrics.WebhookRequests.WithLabelValues(kind, strconv.Itoa(resp.StatusCode)).Inc()
	}()

	if req.Method != http.MethodPost {
		r.logger.Infof("Unsupported HTTP method: %s", req.Method)
		kind = "method"
		return textResponse(http.StatusNotFound, "Not found")
	}

	rawBody := req.Body
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithFields(logrus.Fields{
				"error": fmt.Sprint(rec),
				"body":  logging.Truncate(rawBody, maxLoggedBody),
				"stack": string(debug.Stack()),
			}).Error("Unhandled error in webhook handler")
			resp = textResponse(http.StatusInternalServerError, "Internal Server Error")
		}
	}()

	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			kind = "malformed"
			return r.internalError(err, rawBody)
		}
		rawBody = string(decoded)
	}

	if denied, ok := r.authenticate(req, rawBody); !ok {
		kind = "unauthenticated"
		return denied
	}

	if isInteraction(req, rawBody) {
		kind = "interaction"
		return r.handleInteraction(ctx, req, rawBody)
	}

	var envelope types.EventEnvelope
	if err := json.Unmarshal([]byte(rawBody), &envelope); err != nil {
		kind = "malformed"
		return r.internalError(err, rawBody)
	}
	kind = envelope.Type

	switch envelope.Type {
	case types.EventTypeURLVerification:
		r.logger.Info("Handling URL verification")
		return types.WebhookResponse{
			StatusCode: http.StatusOK,
			Body:       envelope.Challenge,
			Headers:    map[string]string{"Content-Type": "text/plain"},
		}

	case types.EventTypeCallback:
		var inner types.InnerEvent
		if len(envelope.Event) > 0 {
			if err := json.Unmarshal(envelope.Event, &inner); err != nil {
				return r.internalError(err, rawBody)
			}
		}
		if inner.Type == types.EventTypeFileShared {
			r.files.ProcessFileShared(ctx, inner)
		} else {
			r.logger.Debugf("Ignoring %s event", inner.Type)
		}

	default:
		kind = "other"
		r.logger.Debugf("Ignoring %s payload", envelope.Type)
	}

	return textResponse(http.StatusOK, "OK")
}

// authenticate applies the signature policy. When ok is false the returned
// response must be sent as is.
func (r *Router) authenticate(req types.WebhookRequest, rawBody string) (types.WebhookResponse, bool) {
	timestamp := req.Header(slack.HeaderTimestamp)
	signature := req.Header(slack.HeaderSignature)

	if timestamp == "" && signature == "" {
		if r.strict {
			r.logger.Warn("Rejecting request without Slack signature headers")
			return textResponse(http.StatusUnauthorized, "Unauthorized"), false
		}
		r.logger.Warn("No Slack signature headers present, processing unauthenticated request")
		return types.WebhookResponse{}, true
	}

	if r.signingSecret == "" {
		r.logger.Error("SLACK_SIGNING_SECRET not configured")
		return textResponse(http.StatusInternalServerError, "Server configuration error"), false
	}

	if timestamp == "" || signature == "" ||
		!slack.VerifySignatureAt(r.signingSecret, timestamp, rawBody, signature, r.now()) {
		r.logger.WithField("timestamp", timestamp).Warn("Invalid Slack signature")
		return textResponse(http.StatusUnauthorized, "Unauthorized"), false
	}

	r.logger.Debug("Slack signature verified")
	return types.WebhookResponse{}, true
}

func (r *Router) internalError(err error, rawBody string) types.WebhookResponse {
	r.logger.WithFields(logrus.Fields{
		"error": err.Error(),
		"body":  logging.Truncate(rawBody, maxLoggedBody),
	}).Error("Failed to process webhook")
	return textResponse(http.StatusInternalServerError, "Internal Server Error")
}

func isInteraction(req types.WebhookRequest, rawBody string) bool {
	if strings.HasPrefix(req.Header("Content-Type"), "application/x-www-form-urlencoded") {
		return true
	}
	return strings.HasPrefix(rawBody, "payload=")
}
