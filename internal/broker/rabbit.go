// Package broker is the gateway to the RabbitMQ topic exchange: confirmed
// publishes, durable per-role queues with manual ack, and dead-lettering for
// poison messages.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/config"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
)

const publishConfirmTimeout = 10 * time.Second

// Handler processes one delivery. A nil return acknowledges the message; an
// error negative-acknowledges it without requeue so it dead-letters.
type Handler func(ctx context.Context, body []byte) error

// Client owns one connection to the broker. The publish channel is guarded
// by a mutex; consumers each open their own channel.
type Client struct {
	conn     *amqp.Connection
	exchange string
	logger   logging.Interface

	mu       sync.Mutex
	pubCh    *amqp.Channel
	confirms chan amqp.Confirmation
}

// Dial connects, opens a confirmed publish channel, declares the topic
// exchange, and verifies reachability with a healthcheck publish.
func Dial(cfg config.BrokerConfig) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	c := &Client{
		conn:     conn,
		exchange: cfg.Exchange,
		logger:   logging.Component("broker"),
	}
	if err := c.openPublishChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := c.Healthcheck(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("broker healthcheck: %w", err)
	}
	return c, nil
}

func (c *Client) openPublishChannel() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open publish channel: %w", err)
	}
	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return fmt.Errorf("enable publisher confirms: %w", err)
	}
	c.pubCh = ch
	c.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return nil
}

// Publish marshals the payload and publishes it persistently, waiting for
// the broker's confirm.
func (c *Client) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}
	return c.PublishRaw(ctx, routingKey, body)
}

// PublishRaw publishes pre-marshaled bytes. Used by Publish and by
// dead-letter re-injection tooling.
func (c *Client) PublishRaw(ctx context.Context, routingKey string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.pubCh.PublishWithContext(ctx, c.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	select {
	case confirm := <-c.confirms:
		if !confirm.Ack {
			return fmt.Errorf("publish %s: broker nacked delivery %d", routingKey, confirm.DeliveryTag)
		}
		return nil
	case <-time.After(publishConfirmTimeout):
		return fmt.Errorf("publish %s: confirm timeout", routingKey)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Healthcheck publishes a no-op message to verify broker reachability.
func (c *Client) Healthcheck(ctx context.Context) error {
	return c.PublishRaw(ctx, keyHealthcheck, []byte(`{"healthcheck":true}`))
}

// Consume binds a durable queue to one routing key and delivers messages to
// the handler with prefetch 1 and manual acknowledgement. Failed handlers
// nack without requeue so the message reaches the queue's dead-letter
// companion. Blocks until ctx is canceled; an in-flight handler finishes
// before return.
func (c *Client) Consume(ctx context.Context, queue, routingKey string, handler Handler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := c.declareQueue(ch, queue, routingKey); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}
	c.logger.Infof("consuming queue %s (key %s)", queue, routingKey)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", queue)
			}
			start := time.Now()
			err := handler(ctx, d.Body)
			metrics.HandlerDuration.WithLabelValues(queue).Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.QueueMessages.WithLabelValues(queue, "error").Inc()
				c.logger.Warnf("handler failed on %s, dead-lettering: %v", queue, err)
				if nackErr := d.Nack(false, false); nackErr != nil {
					return fmt.Errorf("nack on %s: %w", queue, nackErr)
				}
				continue
			}
			metrics.QueueMessages.WithLabelValues(queue, "ok").Inc()
			if ackErr := d.Ack(false); ackErr != nil {
				return fmt.Errorf("ack on %s: %w", queue, ackErr)
			}
		}
	}
}

// declareQueue sets up the durable work queue, its dead-letter exchange and
// the dead-letter queue.
func (c *Client) declareQueue(ch *amqp.Channel, queue, routingKey string) error {
	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}

	dlx := c.exchange + ".dlx"
	if err := ch.ExchangeDeclare(dlx, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter exchange %s: %w", dlx, err)
	}
	dlq := queue + ".dlq"
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter queue %s: %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, routingKey, dlx, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue %s: %w", dlq, err)
	}

	args := amqp.Table{"x-dead-letter-exchange": dlx}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, routingKey, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queue, err)
	}
	return nil
}

// Close shuts the connection down cleanly.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pubCh != nil {
		_ = c.pubCh.Close()
	}
	_ = c.conn.Close()
}
