package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishPiggySync publishes a sync message for a created or updated piggy
// bank row.
func (c *Client) PublishPiggySync(ctx context.Context, id, version int64) error {
	if err := c.publish(ctx, NewPiggySyncMessage(id, version)); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published piggy sync message",
		"id", id, "version", version,
		"exchange", c.exchangeName, "queue", c.queueName)
	return nil
}

// PublishPiggyDelete publishes a delete message for a removed piggy bank.
func (c *Client) PublishPiggyDelete(ctx context.Context, id int64, title, owner string) error {
	if err := c.publish(ctx, NewPiggyDeleteMessage(id, title, owner)); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published piggy delete message",
		"id", id, "owner", owner,
		"exchange", c.exchangeName, "queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Handler receives decoded queue messages.
type Handler interface {
	HandleSyncMessage(ctx context.Context, msg *PiggySyncMessage) error
	HandleDeleteMessage(ctx context.Context, msg *PiggyDeleteMessage) error
}

// Consume dispatches queue messages to the handler until ctx is cancelled.
// Malformed messages are rejected without requeue; handler failures are
// requeued for another attempt.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming piggy sync messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			if err := c.dispatch(ctx, handler, delivery.Body); err != nil {
				if badMessage(err) {
					slog.ErrorContext(ctx, "Rejecting malformed message", "error", err)
					delivery.Nack(false, false)
				} else {
					slog.ErrorContext(ctx, "Failed to handle message, requeueing", "error", err)
					delivery.Nack(false, true)
				}
				continue
			}

			delivery.Ack(false)
		}
	}
}

type malformedError struct{ err error }

func (e malformedError) Error() string { return e.err.Error() }
func (e malformedError) Unwrap() error { return e.err }

func badMessage(err error) bool {
	_, ok := err.(malformedError)
	return ok
}

func (c *Client) dispatch(ctx context.Context, handler Handler, body []byte) error {
	kind, err := decodeKind(body)
	if err != nil {
		return malformedError{fmt.Errorf("decode message kind: %w", err)}
	}

	switch kind {
	case KindPiggySync:
		var msg PiggySyncMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return malformedError{fmt.Errorf("decode sync message: %w", err)}
		}
		return handler.HandleSyncMessage(ctx, &msg)
	case KindPiggyDelete:
		var msg PiggyDeleteMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return malformedError{fmt.Errorf("decode delete message: %w", err)}
		}
		return handler.HandleDeleteMessage(ctx, &msg)
	default:
		return malformedError{fmt.Errorf("unknown message kind %q", kind)}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
