package processor

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/valentinpelus/birdwatch/internal/metrics"
	"github.com/valentinpelus/birdwatch/pkg/inference"
	"github.com/valentinpelus/birdwatch/pkg/slack"
	"github.com/valentinpelus/birdwatch/pkg/types"
)

// Replies sent instead of a result message
const (
	UnavailableText = "Sorry, the AI model is currently unavailable. Please try again later."
	FailedText      = "Error processing your image. The AI analysis failed. Please try again."
)

// Identifier asks the inference function for ranked predictions
type Identifier interface {
	Invoke(ctx context.Context, imageURL string) (types.InferenceEnvelope, error)
}

// FileShareProcessor identifies images shared in the bird channel and
// replies in thread with interactive results
type FileShareProcessor struct {
	identifier     Identifier
	poster         slack.Poster
	allowedChannel string
	metrics        *metrics.Metrics
	logger         logrus.FieldLogger
}

// NewFileShareProcessor creates a new file share processor
func NewFileShareProcessor(identifier Identifier, poster slack.Poster, allowedChannel string, m *metrics.Metrics, logger logrus.FieldLogger) *FileShareProcessor {
	return &FileShareProcessor{
		identifier:     identifier,
		poster:         poster,
		allowedChannel: allowedChannel,
		metrics:        m,
		logger:         logger,
	}
}

// ProcessFileShared runs inference for the shared file and posts exactly one
// threaded reply. Events from any other channel are ignored. Failures are
// reported to the user, never to the caller.
func (p *FileShareProcessor) ProcessFileShared(ctx context.Context, event types.InnerEvent) {
	channel := event.ChannelRef()
	threadTS := event.ThreadTS()
	log := p.logger.WithFields(logrus.Fields{
		"channel":   channel,
		"thread_ts": threadTS,
	})

	if channel != p.allowedChannel {
		log.Infof("Ignoring file_shared event, only processing %s", p.allowedChannel)
		return
	}

	file := event.FileRef()
	if file == nil {
		log.Warn("file_shared event carries no file URL")
		p.reply(ctx, log, channel, threadTS, FailedText)
		return
	}
	log = log.WithField("file", file.Name)

	start := time.Now()
	envelope, err := p.identifier.Invoke(ctx, file.URLPrivate)
	p.metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	p.metrics.InferenceRequests.WithLabelValues(inference.Classify(err)).Inc()

	if err != nil {
		if errors.Is(err, inference.ErrUnavailable) {
			log.WithError(err).Warn("AI model unavailable")
			p.reply(ctx, log, channel, threadTS, UnavailableText)
			return
		}
		log.WithError(err).Error("Error invoking AI model")
		p.reply(ctx, log, channel, threadTS, FailedText)
		return
	}

	message, err := slack.BuildResultMessage(envelope, file.Name, threadTS)
	if err != nil {
		log.WithError(err).Error("Failed to build result message")
		p.reply(ctx, log, channel, threadTS, FailedText)
		return
	}
	message.Channel = channel
	message.ThreadTS = threadTS

	if _, err := p.poster.PostMessage(ctx, message); err != nil {
		log.WithError(err).Error("Failed to send analysis results")
		return
	}

	log.WithFields(logrus.Fields{
		"model_version": envelope.ModelVersion,
		"top_species":   envelope.Predictions[0].Species,
	}).Info("Analysis results sent")
}

func (p *FileShareProcessor) reply(ctx context.Context, log logrus.FieldLogger, channel, threadTS, text string) {
	if err := slack.ReplyInThread(ctx, p.poster, channel, threadTS, text); err != nil {
		log.WithError(err).Error("Failed to send reply")
	}
}
