// Package natsutil publishes typed JSON events to NATS with OpenTelemetry
// trace propagation.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publish serializes v as JSON and publishes to the given subject.
// Trace context from ctx is injected into NATS message headers.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return nc.PublishMsg(msg)
}

// Publisher sends values of one type to a fixed subject.
type Publisher[T any] struct {
	nc      *nats.Conn
	subject string
}

// Connect dials url and returns a Publisher for subject.
func Connect[T any](url, subject string) (*Publisher[T], error) {
	nc, err := nats.Connect(url, nats.Name("recipe-recommender"))
	if err != nil {
		return nil, fmt.Errorf("natsutil: connect %s: %w", url, err)
	}
	return NewPublisher[T](nc, subject), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher[T any](nc *nats.Conn, subject string) *Publisher[T] {
	return &Publisher[T]{nc: nc, subject: subject}
}

// Publish sends v.
func (p *Publisher[T]) Publish(ctx context.Context, v T) error {
	if err := Publish(ctx, p.nc, p.subject, v); err != nil {
		return fmt.Errorf("natsutil: publish %s: %w", p.subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher[T]) Close() error {
	return p.nc.Drain()
}
