package app

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/valentinpelus/birdwatch/internal/config"
	"github.com/valentinpelus/birdwatch/internal/handler"
	"github.com/valentinpelus/birdwatch/internal/logging"
	"github.com/valentinpelus/birdwatch/internal/metrics"
	"github.com/valentinpelus/birdwatch/internal/processor"
	"github.com/valentinpelus/birdwatch/pkg/feedback"
	"github.com/valentinpelus/birdwatch/pkg/inference"
	"github.com/valentinpelus/birdwatch/pkg/slack"
)

const serviceName = "birdwatch"

// App holds all application dependencies
type App struct {
	Config      *config.Config
	Logger      *logrus.Entry
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	SlackClient *slack.Client
	Inference   *inference.Client
	Recorder    *feedback.Recorder
	Processor   *processor.FileShareProcessor
	Router      *handler.Router

	publisher *feedback.AMQPPublisher
}

// New initializes a new application with all dependencies
func New(ctx context.Context) (*App, error) {
	logger := logging.New(serviceName, os.Getenv("LOG_LEVEL"))
	config.LoadEnv(logger)

	cfg := config.LoadConfig()
	logger.Logger.SetLevel(logging.ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Warn("Configuration incomplete")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize Slack client
	slackClient := slack.NewClient(cfg.SlackAPIURL, cfg.SlackBotToken, logger.WithField("component", "slack"))
	if slackClient.HasBotToken() {
		if err := slackClient.AuthTest(ctx); err != nil {
			logger.WithError(err).Warn("Slack bot token validation failed")
		} else {
			logger.Info("Slack bot token validated successfully")
		}
	}

	// Initialize inference transport
	invoker, err := inference.NewInvoker(ctx, inference.TransportConfig{
		Transport:    cfg.InferenceTransport,
		Region:       cfg.InferenceRegion,
		FunctionName: cfg.InferenceFunction,
		URL:          cfg.InferenceURL,
	})
	if err != nil {
		return nil, err
	}
	inferenceClient := inference.NewClient(invoker, inference.Config{
		UnwrapDepth: cfg.InferenceUnwrapDepth,
		Timeout:     cfg.InferenceTimeout,
	}, logger.WithField("component", "inference"))
	logger.Infof("Using inference transport: %s", inferenceClient.Name())

	// Initialize feedback persistence
	if cfg.FeedbackDSN() == "" {
		logger.Warn("Feedback database not configured, feedback actions will fail")
	}
	store := feedback.NewStore(feedback.PostgresOpener(cfg.FeedbackDSN()), logger.WithField("component", "store"))

	a := &App{
		Config:      cfg,
		Logger:      logger,
		Registry:    registry,
		Metrics:     m,
		SlackClient: slackClient,
		Inference:   inferenceClient,
	}

	var publisher feedback.EventPublisher
	if cfg.FeedbackAMQPURL != "" {
		p, err := feedback.NewAMQPPublisher(cfg.FeedbackAMQPURL, cfg.FeedbackAMQPExchange, logger.WithField("component", "publisher"))
		if err != nil {
			logger.WithError(err).Warn("Feedback events disabled")
		} else {
			a.publisher = p
			publisher = p
			logger.Infof("Publishing feedback events to exchange %s", cfg.FeedbackAMQPExchange)
		}
	}

	a.Recorder = feedback.NewRecorder(store, slackClient, publisher, logger.WithField("component", "feedback"))
	a.Processor = processor.NewFileShareProcessor(inferenceClient, slackClient, cfg.SlackBirdChannelID, m,
		logger.WithField("component", "processor"))
	a.Router = handler.NewRouter(handler.Options{
		SigningSecret: cfg.SlackSigningSecret,
		SignatureMode: cfg.SignatureMode,
		Files:         a.Processor,
		Feedback:      a.Recorder,
		Metrics:       m,
		Logger:        logger.WithField("component", "router"),
	})

	return a, nil
}

// LogStartupInfo logs application startup information
func (a *App) LogStartupInfo() {
	a.Logger.Infof("Starting Birdwatch on port %s", a.Config.Port)
	a.Logger.Infof("Bird channel: %s", a.Config.SlackBirdChannelID)

	if a.Config.SlackSigningSecret != "" {
		a.Logger.Infof("Request signing: enabled (%s mode)", a.Config.SignatureMode)
	} else {
		a.Logger.Warn("Request signing: disabled (WARNING: SLACK_SIGNING_SECRET not set)")
	}

	if a.SlackClient.HasBotToken() {
		a.Logger.Info("Slack replies: enabled")
	} else {
		a.Logger.Warn("Slack replies: disabled (no bot token)")
	}
}

// Close releases long-lived connections
func (a *App) Close() error {
	if a.publisher != nil {
		return a.publisher.Close()
	}
	return nil
}
