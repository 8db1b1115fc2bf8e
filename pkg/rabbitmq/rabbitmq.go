package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// Client holds the RabbitMQ connection and the channel used for publishing.
// Every consumer gets a channel of its own.
type Client struct {
	conn     *amqp.Connection
	exchange string

	mu      sync.Mutex // guards channel
	channel *amqp.Channel
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string // topic exchange, declared on connect
}

// NewClient connects to RabbitMQ and declares the topic exchange.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Exchange == "" {
		return nil, fmt.Errorf("exchange name is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-delete
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	log.WithField("exchange", cfg.Exchange).Info("RabbitMQ client connected")

	return &Client{
		conn:     conn,
		exchange: cfg.Exchange,
		channel:  ch,
	}, nil
}

// Exchange returns the name of the exchange the client publishes to.
func (c *Client) Exchange() string {
	return c.exchange
}

// Close closes the publishing channel and the connection.
func (c *Client) Close() error {
	var errs []error
	c.mu.Lock()
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
		c.channel = nil
	}
	c.mu.Unlock()
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// PublishJSON marshals v and publishes it under routingKey.
func (c *Client) PublishJSON(routingKey string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message to JSON: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	err = c.channel.Publish(
		c.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Transient,
			Timestamp:    time.Now(),
			MessageId:    uuid.NewString(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	log.WithFields(log.Fields{"routing_key": routingKey, "bytes": len(body)}).Debug("Published event")
	return nil
}

// Consumer is a running subscription on a private queue.
type Consumer struct {
	channel *amqp.Channel
	tag     string
	done    chan struct{}
	once    sync.Once
	err     error
}

// Done is closed once the delivery loop has exited.
func (cs *Consumer) Done() <-chan struct{} {
	return cs.done
}

// Cancel stops deliveries and closes the consumer's channel. It is idempotent.
func (cs *Consumer) Cancel() error {
	cs.once.Do(func() {
		if err := cs.channel.Cancel(cs.tag, false); err != nil {
			cs.err = fmt.Errorf("failed to cancel consumer %s: %w", cs.tag, err)
		}
		if err := cs.channel.Close(); err != nil && cs.err == nil {
			cs.err = fmt.Errorf("failed to close consumer channel: %w", err)
		}
	})
	return cs.err
}

// Consume binds a server-named, exclusive queue to bindingKey and feeds every
// delivery to handler until ctx is done or Cancel is called. Messages the
// handler fails on are dropped rather than requeued, since a bad payload
// would otherwise loop forever.
func (c *Client) Consume(ctx context.Context, bindingKey string, handler func(msg amqp.Delivery) error) (*Consumer, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open consumer channel: %w", err)
	}

	queue, err := ch.QueueDeclare(
		"",    // name: server generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue for consuming: %w", err)
	}

	if err := ch.QueueBind(queue.Name, bindingKey, c.exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to bind queue to %s: %w", bindingKey, err)
	}

	tag := "owner-" + uuid.NewString()
	msgs, err := ch.Consume(
		queue.Name, // queue
		tag,        // consumer tag
		false,      // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	cs := &Consumer{channel: ch, tag: tag, done: make(chan struct{})}
	logger := log.WithFields(log.Fields{"binding_key": bindingKey, "consumer": tag})
	logger.Info("Waiting for events")

	go func() {
		defer close(cs.done)
		for {
			select {
			case <-ctx.Done():
				if err := cs.Cancel(); err != nil {
					logger.WithError(err).Debug("Consumer cancel after context done")
				}
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Delivery channel closed")
					return
				}
				if err := handler(msg); err != nil {
					logger.WithError(err).WithField("delivery_tag", msg.DeliveryTag).Warn("Error processing message")
					if nackErr := msg.Nack(false, false); nackErr != nil {
						logger.WithError(nackErr).Warn("Error nacking message")
					}
					continue
				}
				if ackErr := msg.Ack(false); ackErr != nil {
					logger.WithError(ackErr).Warn("Error acking message")
				}
			}
		}
	}()

	return cs, nil
}
