package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type Client struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewClient(url, queueName string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := declareTopology(ch, queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Client{
		conn:  conn,
		ch:    ch,
		queue: queueName,
	}, nil
}

// declareTopology 声明主队列及其死信交换机/死信队列
// 被 Nack(requeue=false) 的任务经 <queue>.dlx 路由到 <queue>.dlq
func declareTopology(ch *amqp.Channel, queueName string) error {
	dlxName := queueName + ".dlx"
	if err := ch.ExchangeDeclare(dlxName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlx: %w", err)
	}

	dlqName := queueName + ".dlq"
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlq: %w", err)
	}

	// 使用原队列名作为 routing key
	if err := ch.QueueBind(dlqName, queueName, dlxName, false, nil); err != nil {
		return fmt.Errorf("failed to bind dlq: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    dlxName,
		"x-dead-letter-routing-key": queueName,
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare a queue: %w", err)
	}
	return nil
}

// Publish enqueues an analysis job. replyTo and correlationID may be empty
// for fire-and-forget jobs.
func (c *Client) Publish(ctx context.Context, body []byte, replyTo, correlationID string) error {
	return c.publish(ctx, c.queue, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		ReplyTo:       replyTo,
		CorrelationId: correlationID,
		Body:          body,
	})
}

// Reply publishes a job result to the requester's reply queue through the
// default exchange.
func (c *Client) Reply(ctx context.Context, replyTo, correlationID string, body []byte) error {
	if replyTo == "" {
		return nil
	}
	return c.publish(ctx, replyTo, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		Body:          body,
	})
}

func (c *Client) publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	msg.Headers = InjectTrace(ctx, msg.Headers)
	return c.ch.PublishWithContext(ctx,
		"",         // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		msg)
}

func (c *Client) Consume(prefetchCount int) (<-chan amqp.Delivery, error) {
	// prefetchCount: 限制服务器一次发送给消费者的未确认消息数量
	// global: false 表示该限制应用于每个 Channel，而不是连接
	if err := c.ch.Qos(prefetchCount, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	return c.ch.Consume(
		c.queue, // queue
		"",      // consumer
		false,   // auto-ack (we use manual ack)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
}

// NotifyClose reports connection loss so the consumer can exit instead of
// blocking on a dead delivery channel.
func (c *Client) NotifyClose() <-chan *amqp.Error {
	return c.conn.NotifyClose(make(chan *amqp.Error, 1))
}

func (c *Client) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// headerCarrier adapts amqp.Table to the otel TextMapCarrier.
type headerCarrier amqp.Table

func (h headerCarrier) Get(key string) string {
	if v, ok := h[key].(string); ok {
		return v
	}
	return ""
}

func (h headerCarrier) Set(key, value string) { h[key] = value }

func (h headerCarrier) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	return keys
}

// InjectTrace writes the span context of ctx into message headers.
func InjectTrace(ctx context.Context, headers amqp.Table) amqp.Table {
	if headers == nil {
		headers = amqp.Table{}
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(headers))
	return headers
}

// ExtractTrace returns ctx carrying the span context found in headers.
func ExtractTrace(ctx context.Context, headers amqp.Table) context.Context {
	if headers == nil {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, headerCarrier(headers))
}

var _ propagation.TextMapCarrier = headerCarrier(nil)
