package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/valentinpelus/birdwatch/pkg/types"
)

// RoutingKeyRecorded is the routing key of recorded feedback events
const RoutingKeyRecorded = "feedback.recorded"

// ErrPublisherClosed is returned by PublishRecorded after Close
var ErrPublisherClosed = errors.New("feedback publisher closed")

// Dialer opens a broker connection
type Dialer func(url string) (*amqp.Connection, error)

// AMQPPublisher publishes recorded feedback on a durable topic exchange.
// A lost connection is redialed on the next publish.
type AMQPPublisher struct {
	url      string
	exchange string
	dial     Dialer
	logger   logrus.FieldLogger

	mu     sync.Mutex
	conn   *amqp.Connection
	closed bool
}

// NewAMQPPublisher dials url and declares exchange
func NewAMQPPublisher(url, exchange string, logger logrus.FieldLogger) (*AMQPPublisher, error) {
	p := newAMQPPublisher(url, exchange, amqp.Dial, logger)

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func newAMQPPublisher(url, exchange string, dial Dialer, logger logrus.FieldLogger) *AMQPPublisher {
	return &AMQPPublisher{
		url:      url,
		exchange: exchange,
		dial:     dial,
		logger:   logger,
	}
}

// PublishRecorded publishes record as a persistent JSON message
func (p *AMQPPublisher) PublishRecorded(ctx context.Context, record types.FeedbackRecord) error {
	msg, err := buildPublishing(record)
	if err != nil {
		return err
	}

	conn, err := p.connection()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		p.logger.WithError(err).Warn("Failed to open broker channel, redialing")
		p.drop(conn)
		if conn, err = p.connection(); err != nil {
			return err
		}
		if ch, err = conn.Channel(); err != nil {
			return fmt.Errorf("failed to open channel: %w", err)
		}
	}
	defer ch.Close()

	if err := ch.PublishWithContext(ctx, p.exchange, RoutingKeyRecorded, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish feedback event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"exchange":    p.exchange,
		"feedback_id": record.FeedbackID,
	}).Debug("Published feedback event")
	return nil
}

// Close closes the broker connection. Later publishes fail with ErrPublisherClosed.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// connection returns the live connection, dialing a new one when it was lost
func (p *AMQPPublisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPublisherClosed
	}
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	return p.connectLocked()
}

// drop discards conn so the next call to connection redials
func (p *AMQPPublisher) drop(conn *amqp.Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == conn {
		_ = conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) connectLocked() (*amqp.Connection, error) {
	conn, err := p.dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	go p.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))

	p.conn = conn
	return conn, nil
}

// watch logs an unexpected connection loss. The channel is closed without a
// value on a graceful Close.
func (p *AMQPPublisher) watch(closed <-chan *amqp.Error) {
	if err, ok := <-closed; ok && err != nil {
		p.logger.WithField("reason", err.Reason).Warn("Broker connection lost, redialing on next publish")
	}
}

func buildPublishing(record types.FeedbackRecord) (amqp.Publishing, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal feedback event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    record.FeedbackID,
		Type:         RoutingKeyRecorded,
		Timestamp:    time.UnixMilli(record.Timestamp),
		Body:         body,
	}, nil
}
