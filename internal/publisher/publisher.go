// Package publisher announces completed catalog refreshes to a message broker.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/pkg/model"
)

const (
	EventTypeCatalogBuilt = "catalog.built"
	EventVersion          = "1.0.0"
	DefaultTopic          = "evt.catalog.built.v1"
)

// EventPublisher is implemented by every broker binding.
type EventPublisher interface {
	PublishCatalogBuilt(ctx context.Context, evt model.CatalogBuiltEvent) error
	Close() error
}

// NewCatalogBuiltEnvelope wraps evt in the canonical envelope. The run id
// doubles as correlation id so every event of a run can be traced back to it.
func NewCatalogBuiltEnvelope(topic string, evt model.CatalogBuiltEvent, now time.Time) (*model.Envelope, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: evt.RunID,
		Topic:         topic,
		EventType:     EventTypeCatalogBuilt,
		Version:       EventVersion,
		Timestamp:     now.UTC(),
		Payload:       payload,
	}, nil
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishCatalogBuilt(context.Context, model.CatalogBuiltEvent) error { return nil }

func (Nop) Close() error { return nil }

// Options selects and configures a broker binding.
type Options struct {
	Broker       string // nats | rabbitmq | none
	Service      string
	NATSURL      string
	NATSSubject  string
	AMQPURL      string
	AMQPExchange string
}

// Open connects the broker named by opts.Broker. An empty broker or "none"
// yields Nop.
func Open(opts Options, logger *zap.Logger) (EventPublisher, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Broker)) {
	case "", "none":
		return Nop{}, nil
	case "nats":
		return NewNATS(opts.NATSURL, opts.NATSSubject, opts.Service, logger)
	case "rabbitmq", "amqp":
		return NewRabbitMQ(opts.AMQPURL, opts.AMQPExchange, opts.Service, logger)
	default:
		return nil, fmt.Errorf("unknown event broker %q", opts.Broker)
	}
}
