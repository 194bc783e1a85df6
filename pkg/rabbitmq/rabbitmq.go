package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"

	"realestate/pkg/logger"
)

// ErrReject marks a message that can never be processed. Handlers wrap it
// to have the delivery dropped instead of requeued.
var ErrReject = errors.New("message rejected")

// Handler processes one delivery.
type Handler func(ctx context.Context, msg amqp.Delivery) error

// channel is the subset of *amqp.Channel the client uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Client holds the RabbitMQ connection and channel. Events go to a fanout
// exchange so every consuming instance receives each one.
type Client struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
}

// DefaultExchange is the fanout exchange used when Config.Exchange is empty.
const DefaultExchange = "properties_events"

// NewClient connects to RabbitMQ, opens a channel and declares the exchange.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c, err := newClient(ch, cfg.Exchange)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func newClient(ch channel, exchange string) (*Client, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	err := ch.ExchangeDeclare(
		exchange,            // name
		amqp.ExchangeFanout, // kind
		true,                // durable
		false,               // auto-deleted
		false,               // internal
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	logger.Log.WithField("exchange", exchange).Info("RabbitMQ client connected")
	return &Client{channel: ch, exchange: exchange}, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Publish sends payload as a persistent JSON message to the exchange.
func (c *Client) Publish(ctx context.Context, payload interface{}) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message to JSON: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.channel.Publish(
		c.exchange, // exchange
		"",         // routing key: ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logger.Log.WithField("exchange", c.exchange).Debugf("sent event: %s", body)
	return nil
}

// Consume binds a private, server-named queue to the exchange and processes
// its deliveries one at a time in a goroutine until ctx is done or the
// channel closes. The queue is removed when the connection goes away.
// Successful messages are acked; messages whose handler error wraps
// ErrReject are dropped; other failures are requeued.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	q, err := c.channel.QueueDeclare(
		"",    // name: server generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare consumer queue: %w", err)
	}

	if err := c.channel.QueueBind(q.Name, "", c.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s to %s: %w", q.Name, c.exchange, err)
	}

	msgs, err := c.channel.Consume(
		q.Name, // queue
		"",     // consumer tag
		false,  // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"exchange": c.exchange, "queue": q.Name}).Info("waiting for events")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				c.process(ctx, handler, msg)
			}
		}
	}()

	return nil
}

func (c *Client) process(ctx context.Context, handler Handler, msg amqp.Delivery) {
	log := logger.Log.WithField("delivery_tag", msg.DeliveryTag)

	hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := handler(hctx, msg)
	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			log.WithError(ackErr).Error("error acking message")
		}
	case errors.Is(err, ErrReject):
		log.WithError(err).Warn("dropping message")
		if nackErr := msg.Nack(false, false); nackErr != nil {
			log.WithError(nackErr).Error("error nacking message")
		}
	default:
		log.WithError(err).Error("error processing message, requeueing")
		if nackErr := msg.Nack(false, true); nackErr != nil {
			log.WithError(nackErr).Error("error nacking message")
		}
	}
}
