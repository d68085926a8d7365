package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/types"
)

// CallAnalyzed is the payload announced after a record is stored.
type CallAnalyzed struct {
	Record     types.CallRecord `json:"record"`
	AnalyzedAt time.Time        `json:"analyzed_at"`
	RequestID  string           `json:"request_id,omitempty"`
}

// conn is the slice of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher announces analysed calls on a NATS subject.
type Publisher struct {
	conn    conn
	subject string
	log     *logger.Logger
}

func Connect(url, token, subject string, log *logger.Logger) (*Publisher, error) {
	log = log.Component("events")
	opts := []nats.Option{
		nats.Name("call-insights-go"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: nc, subject: subject, log: log}, nil
}

func (p *Publisher) PublishAnalyzed(evt CallAnalyzed) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	p.log.WithField("subject", p.subject).Debug("call analyzed event published")
	return nil
}

func (p *Publisher) Close() error {
	return p.conn.Drain()
}
