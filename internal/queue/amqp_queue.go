package queue

import (
	"fmt"

	"github.com/streadway/amqp"
)

// AMQPQueue is the RabbitMQ-backed Queue used between the server/scheduler
// binaries and the worker daemon.
type AMQPQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// DialAMQP connects to RabbitMQ and opens a channel.
func DialAMQP(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &AMQPQueue{conn: conn, channel: ch}, nil
}

func (q *AMQPQueue) declare(topic string) (amqp.Queue, error) {
	return q.channel.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

// Publish sends a message to the named durable queue.
func (q *AMQPQueue) Publish(topic string, payload []byte) error {
	declared, err := q.declare(topic)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}

	return q.channel.Publish(
		"",
		declared.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        payload,
		},
	)
}

// Subscribe consumes the named queue and runs handler for each delivery.
// Messages are acked regardless of handler outcome: a wake message only
// triggers a batch cycle, the work itself is durable in Postgres.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload []byte) error) error {
	declared, err := q.declare(topic)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}

	msgs, err := q.channel.Consume(
		declared.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			_ = handler(d.Body)
			d.Ack(false)
		}
	}()

	return nil
}

func (q *AMQPQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
