package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/valentinpelus/birdwatch/pkg/slack"
	"github.com/valentinpelus/birdwatch/pkg/types"
)

// Messages sent back to the user after a feedback action
const (
	ConfirmationText = "✅ Thank you! Your feedback has been recorded."
	FailureText      = "Error saving feedback. Please try again."
)

// ErrInvalidAction means the opaque action value could not be used
var ErrInvalidAction = errors.New("invalid feedback action")

// Outcome is the terminal state of one feedback action
type Outcome string

const (
	OutcomeRecorded Outcome = "recorded"
	OutcomeFailed   Outcome = "failed"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeSkipped  Outcome = "skipped"
)

// Inserter persists one record
type Inserter interface {
	Insert(ctx context.Context, record types.FeedbackRecord) error
}

// EventPublisher announces recorded feedback to downstream consumers
type EventPublisher interface {
	PublishRecorded(ctx context.Context, record types.FeedbackRecord) error
}

// Recorder turns a feedback action into a stored record and exactly one reply
type Recorder struct {
	store     Inserter
	poster    slack.Poster
	publisher EventPublisher
	logger    logrus.FieldLogger

	newID func() string
	now   func() time.Time
}

// NewRecorder creates a new recorder. publisher may be nil.
func NewRecorder(store Inserter, poster slack.Poster, publisher EventPublisher, logger logrus.FieldLogger) *Recorder {
	return &Recorder{
		store:     store,
		poster:    poster,
		publisher: publisher,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// RecordCorrect handles the "top prediction is right" button
func (r *Recorder) RecordCorrect(ctx context.Context, value, userID, channelID string, ack func()) Outcome {
	return r.record(ctx, types.ActionCorrect, value, userID, channelID, ack)
}

// RecordIncorrect handles a pick from the correction menu. An empty value
// means no option was selected and nothing happens.
func (r *Recorder) RecordIncorrect(ctx context.Context, value, userID, channelID string, ack func()) Outcome {
	if value == "" {
		return OutcomeSkipped
	}
	return r.record(ctx, types.ActionIncorrect, value, userID, channelID, ack)
}

func (r *Recorder) record(ctx context.Context, kind types.ActionKind, value, userID, channelID string, ack func()) Outcome {
	if ack != nil {
		ack()
	}

	log := r.logger.WithFields(logrus.Fields{
		"action":  kind,
		"user":    userID,
		"channel": channelID,
	})

	payload, err := ParseAction(value, kind)
	if err == nil && userID == "" {
		err = fmt.Errorf("%w: missing user", ErrInvalidAction)
	}
	if err != nil {
		log.WithError(err).Warn("Discarding feedback action")
		r.reply(ctx, log, channelID, "", FailureText)
		return OutcomeInvalid
	}

	record := types.FeedbackRecord{
		FeedbackID:     r.newID(),
		SlackMessageID: payload.ThreadTS,
		UserID:         userID,
		ModelVersion:   payload.ModelVersion,
		IsCorrect:      kind == types.ActionCorrect,
		TopPrediction:  payload.TopSpecies,
		Timestamp:      r.now().UnixMilli(),
	}
	if kind == types.ActionIncorrect {
		corrected := payload.CorrectedSpecies
		record.CorrectedSpecies = &corrected
	}

	log = log.WithFields(logrus.Fields{
		"feedback_id": record.FeedbackID,
		"thread_ts":   payload.ThreadTS,
	})

	if err := r.store.Insert(ctx, record); err != nil {
		log.WithError(err).Error("Error storing feedback")
		r.reply(ctx, log, channelID, payload.ThreadTS, FailureText)
		return OutcomeFailed
	}

	if r.publisher != nil {
		if err := r.publisher.PublishRecorded(ctx, record); err != nil {
			log.WithError(err).Warn("Failed to publish feedback event")
		}
	}

	r.reply(ctx, log, channelID, payload.ThreadTS, ConfirmationText)
	return OutcomeRecorded
}

func (r *Recorder) reply(ctx context.Context, log logrus.FieldLogger, channelID, threadTS, text string) {
	if err := slack.ReplyInThread(ctx, r.poster, channelID, threadTS, text); err != nil {
		log.WithError(err).Error("Failed to send feedback acknowledgement")
	}
}

// ParseAction decodes an opaque action value for the kind of element that carried it
func ParseAction(value string, kind types.ActionKind) (types.ActionPayload, error) {
	var payload types.ActionPayload
	if err := json.Unmarshal([]byte(value), &payload); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	switch {
	case payload.ThreadTS == "":
		return payload, fmt.Errorf("%w: missing thread_ts", ErrInvalidAction)
	case payload.ModelVersion == "":
		return payload, fmt.Errorf("%w: missing modelVersion", ErrInvalidAction)
	case payload.TopSpecies == "":
		return payload, fmt.Errorf("%w: missing topSpecies", ErrInvalidAction)
	case kind == types.ActionIncorrect && payload.CorrectedSpecies == "":
		return payload, fmt.Errorf("%w: missing correctedSpecies", ErrInvalidAction)
	}

	return payload, nil
}
