package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/internal/metrics"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes envelopes to a topic exchange, routed by the
// event topic.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	service  string
	logger   *zap.Logger
}

// NewRabbitMQ dials url and declares exchange as a durable topic exchange.
func NewRabbitMQ(url, exchange, service string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	p := newRabbitMQPublisher(channel, exchange, service, logger)
	p.conn = conn
	return p, nil
}

func newRabbitMQPublisher(channel amqpChannel, exchange, service string, logger *zap.Logger) *RabbitMQPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RabbitMQPublisher{channel: channel, exchange: exchange, service: service, logger: logger}
}

func (p *RabbitMQPublisher) PublishCatalogBuilt(ctx context.Context, evt model.CatalogBuiltEvent) error {
	env, err := NewCatalogBuiltEnvelope(DefaultTopic, evt, time.Now())
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("publisher.marshal_failed", zap.String("exchange", p.exchange), zap.Error(err))
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	start := time.Now()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,   // exchange
		DefaultTopic, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.ID.String(),
			CorrelationId: env.CorrelationID.String(),
			Type:          env.EventType,
			AppId:         p.service,
			Timestamp:     env.Timestamp,
			Body:          body,
		},
	)
	metrics.ObserveDuration(metrics.PublishLatency, start, "rabbitmq")

	if err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("exchange", p.exchange),
			zap.String("run_id", evt.RunID.String()),
			zap.Error(err))
		metrics.IncPublish("rabbitmq", "error")
		return err
	}

	p.logger.Info("publisher.publish_success",
		zap.String("exchange", p.exchange),
		zap.String("run_id", evt.RunID.String()),
		zap.Int("products", evt.Products))
	metrics.IncPublish("rabbitmq", "ok")
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
