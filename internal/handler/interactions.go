package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/valentinpelus/birdwatch/pkg/feedback"
	"github.com/valentinpelus/birdwatch/pkg/slack"
	"github.com/valentinpelus/birdwatch/pkg/types"
)

const interactionTypeBlockActions = "block_actions"

// handleInteraction dispatches a block_actions payload to the feedback
// recorder. Slack only needs an empty 200 as acknowledgement.
func (r *Router) handleInteraction(ctx context.Context, req types.WebhookRequest, rawBody string) types.WebhookResponse {
	values, err := url.ParseQuery(rawBody)
	if err != nil {
		return r.internalError(err, rawBody)
	}

	raw := values.Get("payload")
	if raw == "" {
		r.logger.Debug("Ignoring form post without interaction payload")
		return textResponse(http.StatusOK, "OK")
	}

	var payload types.BlockActionsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return r.internalError(err, rawBody)
	}

	if payload.Type != interactionTypeBlockActions || len(payload.Actions) == 0 {
		r.logger.Debugf("Ignoring %s interaction", payload.Type)
		return textResponse(http.StatusOK, "")
	}

	action := payload.Actions[0]
	log := r.logger.WithFields(logrus.Fields{
		"action_id": action.ActionID,
		"user":      payload.User.ID,
		"channel":   payload.Channel.ID,
	})

	var (
		kind    types.ActionKind
		outcome feedback.Outcome
	)
	switch action.ActionID {
	case slack.ActionIDCorrect:
		kind = types.ActionCorrect
		outcome = r.feedback.RecordCorrect(ctx, action.Value, payload.User.ID, payload.Channel.ID, req.Ack)

	case slack.ActionIDIncorrect:
		kind = types.ActionIncorrect
		value := ""
		if action.SelectedOption != nil {
			value = action.SelectedOption.Value
		}
		outcome = r.feedback.RecordIncorrect(ctx, value, payload.User.ID, payload.Channel.ID, req.Ack)

	default:
		log.Debug("Ignoring unknown action")
		return textResponse(http.StatusOK, "")
	}

	r.metrics.FeedbackRecords.WithLabelValues(string(kind), string(outcome)).Inc()
	log.WithField("outcome", outcome).Info("Feedback action handled")
	return textResponse(http.StatusOK, "")
}
