package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher puts a JSON payload on the email queue.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// RabbitPublisher wraps an AMQP channel and queue for publishing messages.
type RabbitPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
}

func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := DeclareQueue(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, Queue: queue}, nil
}

// DeadLetterQueue names the queue that holds jobs rejected from queue.
func DeadLetterQueue(queue string) string { return queue + ".dead" }

// DeclareQueue declares the durable email queue and its dead-letter queue.
// Rejected jobs are routed through the default exchange to the latter.
// Publisher and worker share it.
func DeclareQueue(ch *amqp.Channel, queue string) error {
	dead := DeadLetterQueue(queue)
	if _, err := ch.QueueDeclare(dead, true, false, false, false, nil); err != nil {
		return err
	}
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dead,
		},
	)
	return err
}

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// PublishJSON publishes a JSON-encoded message to the default queue.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         b,
		},
	)
}

// Queued publishes reset emails for cmd/email_worker to render and send.
type Queued struct {
	pub     Publisher
	appName string
	ttl     time.Duration
}

func NewQueued(pub Publisher, appName string, ttl time.Duration) *Queued {
	return &Queued{pub: pub, appName: appName, ttl: ttl}
}

func (q *Queued) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	job := NewResetPasswordJob(q.appName, to, resetURL, q.ttl)
	if err := q.pub.PublishJSON(ctx, job); err != nil {
		return fmt.Errorf("%w: publish: %w", ErrDeliveryFailed, err)
	}
	return nil
}

// Outcome tells the consumer what to do with a delivery.
type Outcome int

const (
	Ack Outcome = iota
	// Drop rejects without requeue; the broker moves the job to the
	// dead-letter queue.
	Drop
	// Retry requeues the job once.
	Retry
)

// HandleDelivery decodes, renders and sends one queued job. Malformed jobs
// are dropped. A transport failure is retried once; a job that fails again
// after redelivery is dropped so a broken transport cannot spin the queue.
func HandleDelivery(ctx context.Context, sender Sender, body []byte, redelivered bool) (Outcome, error) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return Drop, fmt.Errorf("bad message: %w", err)
	}
	msg, err := job.Message()
	if err != nil {
		return Drop, err
	}
	if err := sender.Send(ctx, msg); err != nil {
		if redelivered {
			return Drop, fmt.Errorf("%w after redelivery: %w", ErrDeliveryFailed, err)
		}
		return Retry, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return Ack, nil
}
