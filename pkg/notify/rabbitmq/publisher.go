// Package rabbitmq publishes reports to a RabbitMQ queue.
package rabbitmq

import (
	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/ssargent/sasinspect/pkg/notify"
)

// Factory opens RabbitMQ publishers
type Factory struct{}

// NewPublisher implements notify.Factory
func (Factory) NewPublisher(url, queue string) (notify.Publisher, error) {
	p, err := NewPublisher(url, queue)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewPublisher dials addr and declares a durable queue
func NewPublisher(addr, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(addr)
	if err != nil {
		return nil, errors.Wrap(err, "unable to dial AMQP")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "unable to create an AMQP channel")
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "unable to declare AMQP queue")
	}

	return &Publisher{
		conn:  conn,
		ch:    ch,
		queue: queue,
	}, nil
}

func (r *Publisher) Publish(body []byte, contentType string) error {
	err := r.ch.Publish(
		"",      // exchange
		r.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  contentType,
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})

	return errors.Wrap(err, "rabbitMQ publish failed")
}

func (r *Publisher) Close() error {
	return r.conn.Close()
}
