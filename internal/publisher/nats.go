package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/internal/metrics"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

// jetStream is the part of nats.JetStreamContext the publisher needs.
type jetStream interface {
	PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSPublisher publishes envelopes to a JetStream subject.
type NATSPublisher struct {
	nc      *nats.Conn
	js      jetStream
	subject string
	service string
	logger  *zap.Logger
}

// NewNATS connects to url and enables JetStream.
func NewNATS(url, subject, service string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name(service))
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}
	return newNATSPublisher(nc, js, subject, service, logger), nil
}

func newNATSPublisher(nc *nats.Conn, js jetStream, subject, service string, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subject == "" {
		subject = DefaultTopic
	}
	return &NATSPublisher{nc: nc, js: js, subject: subject, service: service, logger: logger}
}

func (p *NATSPublisher) PublishCatalogBuilt(ctx context.Context, evt model.CatalogBuiltEvent) error {
	env, err := NewCatalogBuiltEnvelope(p.subject, evt, time.Now())
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("publisher.marshal_failed", zap.String("subject", p.subject), zap.Error(err))
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"Nats-Msg-Id":    []string{env.ID.String()},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	metrics.ObserveDuration(metrics.PublishLatency, start, "nats")

	if err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("subject", p.subject),
			zap.String("run_id", evt.RunID.String()),
			zap.Error(err))
		metrics.IncPublish("nats", "error")
		return err
	}

	p.logger.Info("publisher.publish_success",
		zap.String("subject", p.subject),
		zap.String("run_id", evt.RunID.String()),
		zap.Int("products", evt.Products))
	metrics.IncPublish("nats", "ok")
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
	return nil
}
