package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/ryowuandjanet/go-user-auth/config"
	"github.com/ryowuandjanet/go-user-auth/internal/container"
	"github.com/ryowuandjanet/go-user-auth/pkg/helpers"
	"github.com/ryowuandjanet/go-user-auth/pkg/mailer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	transport := cfg.MailWorkerTransport
	if !cfg.MailSendEnabled {
		logger.Warn("MAIL_SEND_ENABLED=false; jobs will be consumed and logged, not sent")
		transport = config.MailLog
	}
	sender, err := container.NewMailSender(cfg, transport, logger)
	if err != nil {
		logger.WithError(err).Fatal("mail transport")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.WithError(err).Fatal("amqp dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.WithError(err).Fatal("amqp channel")
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch across workers
	if err := ch.Qos(16, 0, false); err != nil {
		logger.WithError(err).Fatal("qos")
	}
	if err := mailer.DeclareQueue(ch, cfg.RabbitMQEmailQueue); err != nil {
		logger.WithError(err).Fatal("queue declare")
	}

	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).Fatal("consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			c, cancel := context.WithTimeout(ctx, 15*time.Second)
			outcome, err := mailer.HandleDelivery(c, sender, msg.Body, msg.Redelivered)
			cancel()

			entry := logger.WithField("delivery_tag", msg.DeliveryTag)
			switch outcome {
			case mailer.Ack:
				entry.Debug("email sent")
				_ = msg.Ack(false)
			case mailer.Drop:
				entry.WithError(err).WithField("dead_letter_queue", mailer.DeadLetterQueue(cfg.RabbitMQEmailQueue)).Error("dead-lettering email job")
				_ = msg.Nack(false, false)
			case mailer.Retry:
				entry.WithError(err).Warn("email send failed; requeueing")
				_ = msg.Nack(false, true)
			}
		}
	}()

	logger.WithFields(logrus.Fields{
		"queue":     cfg.RabbitMQEmailQueue,
		"transport": transport,
	}).Info("email worker listening")

	select {
	case <-ctx.Done():
	case <-done:
		logger.Warn("delivery channel closed")
	}
	logger.Info("shutting down...")
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
