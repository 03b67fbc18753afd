package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/valentinpelus/birdwatch/internal/handler"
	"github.com/valentinpelus/birdwatch/internal/metrics"
	"github.com/valentinpelus/birdwatch/internal/middleware"
	"github.com/valentinpelus/birdwatch/pkg/types"
)

// Slack caps event payloads well below this
const maxBodyBytes = 1 << 20

// Webhook is the transport-independent request handler
type Webhook interface {
	Handle(ctx context.Context, req types.WebhookRequest) types.WebhookResponse
}

// Server wraps the HTTP server
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	webhook    Webhook
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	logger     logrus.FieldLogger
}

// New creates a new HTTP server
func New(port string, webhook Webhook, m *metrics.Metrics, gatherer prometheus.Gatherer, logger logrus.FieldLogger) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		webhook:  webhook,
		metrics:  m,
		gatherer: gatherer,
		logger:   logger,
	}
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.SetupRoutes()
	return s
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() {
	s.mux.HandleFunc("/slack/events", middleware.Instrument("events", s.metrics, s.handleWebhook))
	s.mux.HandleFunc("/slack/actions", middleware.Instrument("actions", s.metrics, s.handleWebhook))
	s.mux.HandleFunc("/health", handler.HandleHealth)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// Handler exposes the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleWebhook adapts an HTTP request to the router. The router may
// acknowledge early, in which case the final response is dropped and the
// remaining work runs detached from the client connection.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.logger.WithError(err).Error("Failed to read request body")
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}

	var (
		once  sync.Once
		acked bool
	)
	ack := func() {
		once.Do(func() {
			acked = true
			// a zero length lets the client finish reading while work continues
			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusOK)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		})
	}

	resp := s.webhook.Handle(context.WithoutCancel(r.Context()), types.WebhookRequest{
		Method:  r.Method,
		Body:    string(body),
		Headers: headers,
		Ack:     ack,
	})

	if acked {
		return
	}
	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		if _, err := io.WriteString(w, resp.Body); err != nil {
			s.logger.WithError(err).Debug("Failed to write response body")
		}
	}
}
