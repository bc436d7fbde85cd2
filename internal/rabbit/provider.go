package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lomoval/notecal/internal/push"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

var ErrNotConnected = errors.New("rabbit provider is not connected")

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Queue    string
}

type Provider struct {
	conn       *amqp.Connection
	queue      amqp.Queue
	channel    *amqp.Channel
	connString string
	queueName  string
}

func New(config Config) *Provider {
	return &Provider{
		connString: fmt.Sprintf(
			"amqp://%s:%s@%s:%d/",
			config.User,
			config.Password,
			config.Host,
			config.Port,
		),
		queueName: config.Queue,
	}
}

func (r *Provider) Connect() error {
	var err error
	r.conn, err = amqp.Dial(r.connString)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbit: %w", err)
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		r.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	r.queue, err = r.channel.QueueDeclare(
		r.queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		r.conn.Close()
		return fmt.Errorf("failed to declare queue %s: %w", r.queueName, err)
	}
	return nil
}

func (r *Provider) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

// Publish sends m as a persistent JSON message.
func (r *Provider) Publish(_ context.Context, m push.Message) error {
	if r.channel == nil {
		return ErrNotConnected
	}
	body, err := Encode(m)
	if err != nil {
		return err
	}
	return r.channel.Publish(
		"",           // exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    m.ID,
			Body:         body,
		})
}

type MessageProcess = func(ctx context.Context, m push.Message) error

// Consume hands every message to process until ctx is done. Messages are acked
// after process succeeds; undecodable ones are dropped and failed ones requeued once.
func (r *Provider) Consume(ctx context.Context, process MessageProcess) error {
	if r.channel == nil {
		return ErrNotConnected
	}
	msgs, err := r.channel.Consume(
		r.queue.Name, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", r.queue.Name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("rabbit delivery channel closed")
			}
			handle(ctx, d, process)
		}
	}
}

func handle(ctx context.Context, d amqp.Delivery, process MessageProcess) {
	m, err := Decode(d.Body)
	if err != nil {
		log.Errorf("failed to parse message: %s", err)
		_ = d.Nack(false, false)
		return
	}
	if err := process(ctx, m); err != nil {
		log.WithField("id", m.ID).Errorf("failed to process message: %s", err)
		_ = d.Nack(false, !d.Redelivered && !errors.Is(err, push.ErrNoToken))
		return
	}
	_ = d.Ack(false)
}

func Encode(m push.Message) ([]byte, error) {
	return json.Marshal(m)
}

func Decode(body []byte) (push.Message, error) {
	m := push.Message{}
	if err := json.Unmarshal(body, &m); err != nil {
		return push.Message{}, err
	}
	if m.ID == "" {
		return push.Message{}, errors.New("message without id")
	}
	return m, nil
}
