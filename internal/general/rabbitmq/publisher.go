package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrNotReady = errors.New("rabbitmq: publish channel is not open")

// MQPublisher adapts the Client to ports.Publisher.
type MQPublisher struct {
	Client *Client
}

// NewMQPublisher constructs an MQPublisher using the provided RabbitMQ client.
func NewMQPublisher(client *Client) *MQPublisher {
	return &MQPublisher{Client: client}
}

// Publish sends a JSON body to exchange with routingKey and waits for the broker confirm.
func (publisher *MQPublisher) Publish(exchange, routingKey string, body []byte) error {
	return publisher.Client.PublishMessage(exchange, routingKey, body)
}

// PublishMessage publishes a persistent JSON message and waits up to confirmTimeout for the ack.
func (client *Client) PublishMessage(exchange, routingKey string, body []byte) error {
	client.mu.RLock()
	ch := client.pubChan
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() || ch == nil || ch.IsClosed() {
		return ErrNotReady
	}

	// one publish in flight at a time keeps confirms aligned with publishes
	client.pubMu.Lock()
	defer client.pubMu.Unlock()
	confirms := client.pubConfirms

	ctx, cancel := context.WithTimeout(context.Background(), confirmTimeout)
	defer cancel()

	err := ch.PublishWithContext(ctx, exchange, routingKey, true, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: publish %s/%s: %w", exchange, routingKey, err)
	}

	select {
	case c, ok := <-confirms:
		if !ok {
			return ErrNotReady
		}
		if !c.Ack {
			return fmt.Errorf("rabbitmq: publish %s/%s not acknowledged", exchange, routingKey)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
