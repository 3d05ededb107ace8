package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoRecipient    = errors.New("email job has no recipient")
	ErrDeliveryFailed = errors.New("email delivery failed")
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Direct renders the reset email in-process and hands it to a Sender.
type Direct struct {
	sender  Sender
	appName string
	ttl     time.Duration
}

func NewDirect(sender Sender, appName string, ttl time.Duration) *Direct {
	return &Direct{sender: sender, appName: appName, ttl: ttl}
}

func (d *Direct) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	msg, err := NewResetPasswordJob(d.appName, to, resetURL, d.ttl).Message()
	if err != nil {
		return err
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}

// LogSender writes a one-line record instead of delivering. Message bodies
// carry reset links and are never logged.
type LogSender struct {
	Logger *logrus.Logger
}

func (l LogSender) Send(_ context.Context, msg Message) error {
	if l.Logger != nil {
		l.Logger.WithFields(logrus.Fields{
			"to":      msg.To,
			"subject": msg.Subject,
		}).Info("mail sending disabled; message dropped")
	}
	return nil
}
